package main

import (
	"fmt"
	"strings"

	"github.com/clubdesk/formflow"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of formflow",
		// No configuration needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "formflow version %s\n", strings.TrimSpace(formflow.Version))
		},
	}
}
