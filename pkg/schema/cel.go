package schema

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// CheckVariable is the name under which checks see the field store.
const CheckVariable = "fields"

// NewCheckEnv creates the CEL environment checks are compiled in.
func NewCheckEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable(CheckVariable, cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}
	return env, nil
}

// Compile type-checks the expression and returns a runnable program.
// The expression must evaluate to a bool.
func (c Check) Compile(env *cel.Env) (cel.Program, error) {
	ast, issues := env.Compile(c.Expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compile error: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("CEL program error: %w", err)
	}
	return prg, nil
}
