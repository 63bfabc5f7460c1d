package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/clubdesk/formflow/pkg/domain"
)

// Runner is a submitter that hands each payload to allow-listed local
// commands, for example to notify the club office or sync a CRM. Commands
// run in registration order; the first failure fails the submission.
//
// The payload is written to stdin as JSON. Top-level values are also exposed
// as FORMFLOW_FIELD_<NAME> environment variables; values are never passed as
// arguments, so they cannot inject flags.
type Runner struct {
	hooks     []HookConfig
	baseDir   string
	timeout   time.Duration
	sensitive map[string]bool
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithHooks registers loaded hook configs.
func WithHooks(hooks []HookConfig) RunnerOption {
	return func(r *Runner) {
		r.hooks = append(r.hooks, hooks...)
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithTimeout bounds each command. Zero disables the bound.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithSensitiveKeys lists payload keys withheld from hooks.
func WithSensitiveKeys(keys ...string) RunnerOption {
	return func(r *Runner) {
		for _, k := range keys {
			r.sensitive[k] = true
		}
	}
}

// NewRunner creates a process runner. Password payload keys are withheld
// unless overridden with WithSensitiveKeys.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		timeout:   30 * time.Second,
		sensitive: map[string]bool{"password": true, "confirmPassword": true},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name, command string, args ...string) {
	r.hooks = append(r.hooks, HookConfig{Name: name, Command: command, Args: args})
}

// Len reports how many hooks are registered.
func (r *Runner) Len() int {
	return len(r.hooks)
}

// Submit runs every hook that applies to wizardID.
func (r *Runner) Submit(ctx context.Context, wizardID string, payload domain.Payload) error {
	visible := make(domain.Payload, len(payload))
	for k, v := range payload {
		if !r.sensitive[k] {
			visible[k] = v
		}
	}
	body, err := json.Marshal(visible)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	for _, hook := range r.hooks {
		if len(hook.Wizards) > 0 && !slices.Contains(hook.Wizards, wizardID) {
			continue
		}
		if err := r.run(ctx, hook, wizardID, visible, body); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) run(ctx context.Context, hook HookConfig, wizardID string, payload domain.Payload, body []byte) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, hook.Command, hook.Args...)
	cmd.Dir = r.baseDir
	cmd.Stdin = bytes.NewReader(body)
	cmd.Env = append(cmd.Environ(), "FORMFLOW_WIZARD_ID="+wizardID)
	for k, v := range hook.Environment {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	for k, v := range payload {
		cmd.Env = append(cmd.Env, fmt.Sprintf("FORMFLOW_FIELD_%s=%s", envName(k), envValue(v)))
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("hook %s: %w", hook.Name, ctx.Err())
		}
		return fmt.Errorf("hook %s failed: %v: %s", hook.Name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// envName turns camelCase payload keys into SCREAMING_SNAKE_CASE.
func envName(key string) string {
	var b strings.Builder
	for i, c := range key {
		if i > 0 && c >= 'A' && c <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(c)
	}
	return strings.ToUpper(nonAlnum.ReplaceAllString(b.String(), "_"))
}

// envValue renders primitives as text and structured values as JSON.
func envValue(v any) string {
	switch v.(type) {
	case string, int, int64, float64, bool:
		return fmt.Sprintf("%v", v)
	case nil:
		return ""
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", v)
	}
}
