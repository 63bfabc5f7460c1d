package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage saved sessions",
		Long:  `List, inspect and remove sessions saved in the configured store.`,
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List saved sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := e.app.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			ids, err := sessions.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("error listing sessions: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No saved sessions found.")
				return nil
			}
			fmt.Fprintln(out, "Saved sessions:")
			for _, id := range ids {
				fmt.Fprintln(out, "- "+id)
			}
			return nil
		},
	}

	inspect := &cobra.Command{
		Use:   "inspect <session-id>",
		Short: "Print the state of a session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sessions, err := e.app.Sessions(ctx)
			if err != nil {
				return err
			}
			state, err := sessions.Load(ctx, args[0])
			if err != nil {
				return fmt.Errorf("error loading session '%s': %w", args[0], err)
			}
			// Redact against the current definition when it still exists.
			if loader, err := e.app.Loader(); err == nil {
				if def, err := loader.Get(ctx, state.WizardID); err == nil {
					state = def.Redact(state)
				}
			}
			data, err := json.MarshalIndent(state, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	var all bool
	rm := &cobra.Command{
		Use:   "rm <session-id>...",
		Short: "Remove one or more sessions",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sessions, err := e.app.Sessions(ctx)
			if err != nil {
				return err
			}
			if all {
				if args, err = sessions.List(ctx); err != nil {
					return err
				}
			}
			var errs []error
			for _, id := range args {
				if err := sessions.Delete(ctx, id); err != nil {
					errs = append(errs, fmt.Errorf("error removing '%s': %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", id)
			}
			return errors.Join(errs...)
		},
	}
	rm.Flags().BoolVar(&all, "all", false, "Remove every saved session")

	cmd.AddCommand(ls, inspect, rm)
	return cmd
}
