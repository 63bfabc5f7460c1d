package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// RunOptions contains the settings of the run command.
type RunOptions struct {
	WizardID  string
	SessionID string
	Headless  bool
	JSON      bool
	Watch     bool
	Fresh     bool
	Debug     bool

	// Values is a JSON object of initial field values.
	Values string

	In  io.Reader
	Out io.Writer
}

// Execute handles the run command, dispatching to session or watch mode.
func Execute(ctx context.Context, app *App, opts RunOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	var initial map[string]any
	if opts.Values != "" {
		if err := json.Unmarshal([]byte(opts.Values), &initial); err != nil {
			return fmt.Errorf("error parsing --values JSON: %w", err)
		}
	}

	if opts.Watch {
		if opts.Headless || opts.JSON {
			return fmt.Errorf("--watch cannot be combined with --headless or --json")
		}
		return RunWatch(ctx, app, opts)
	}
	return RunSession(ctx, app, opts, initial)
}
