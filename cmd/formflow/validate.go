package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/clubdesk/formflow"
	"github.com/spf13/cobra"
)

func newValidateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Check wizard definitions for consistency",
		Long: `Loads every wizard in the definitions directory and reports schema errors,
unknown field references, broken conditional rules and CEL checks that do not compile.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				e.app.Config.Definitions = args[0]
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			loader, err := e.app.Loader()
			if err != nil {
				return err
			}
			ids, err := loader.List(ctx)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				return errors.New("no wizard definitions found")
			}
			sort.Strings(ids)

			var failed []error
			for _, id := range ids {
				def, err := loader.Get(ctx, id)
				if err == nil {
					_, err = formflow.New(def)
				}
				if err != nil {
					fmt.Fprintf(out, "✗ %s: %v\n", id, err)
					failed = append(failed, fmt.Errorf("%s: %w", id, err))
					continue
				}
				fmt.Fprintf(out, "✓ %s (%d steps, %d fields)\n", id, len(def.Steps), len(def.Fields))
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d wizards are invalid", len(failed), len(ids))
			}
			return nil
		},
	}
}
