package main

import (
	"fmt"

	"github.com/clubdesk/formflow/pkg/adapters/loam"
	"github.com/clubdesk/formflow/pkg/registration"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write the built-in registration wizard as an editable definition",
		Args:  cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "wizards"
			if len(args) > 0 {
				dir = args[0]
			}
			written, err := loam.Export(cmd.Context(), dir, force, registration.Definition())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, doc := range written {
				fmt.Fprintf(out, "Wrote %s\n", doc)
			}
			fmt.Fprintf(out, "Run it with: formflow run --dir %s\n", dir)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing documents")
	return cmd
}
