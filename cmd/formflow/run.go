package main

import (
	"github.com/clubdesk/formflow/internal/cli"
	"github.com/spf13/cobra"
)

func newRunCmd(e *env) *cobra.Command {
	var opts cli.RunOptions

	cmd := &cobra.Command{
		Use:   "run [wizard-id]",
		Short: "Run a wizard interactively",
		Long: `Runs a wizard in the terminal, one prompt per visible field.

Commands at any prompt: ':back' returns to the previous step, ':quit' saves
and exits (with --session), ':clear' empties the field.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.WizardID = args[0]
			}
			opts.In = cmd.InOrStdin()
			opts.Out = cmd.OutOrStdout()
			return cli.Execute(cmd.Context(), e.app, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.SessionID, "session", "s", "", "Session ID; progress is saved and resumed")
	f.BoolVar(&opts.Fresh, "fresh", false, "Discard saved progress of the session first")
	f.BoolVar(&opts.Headless, "headless", false, "No banner, no rendering and no confirmation prompt")
	f.BoolVar(&opts.JSON, "json", false, "NDJSON input and output")
	f.BoolVarP(&opts.Watch, "watch", "w", false, "Reload when definitions change")
	f.BoolVar(&opts.Debug, "debug", false, "Log engine events to stderr")
	f.StringVar(&opts.Values, "values", "", "Initial field values as a JSON object")
	return cmd
}
