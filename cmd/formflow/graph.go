package main

import (
	"fmt"

	"github.com/clubdesk/formflow/internal/presentation/graph"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/registration"
	"github.com/spf13/cobra"
)

func newGraphCmd(e *env) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "graph [wizard-id]",
		Short: "Export a wizard as a Mermaid diagram",
		Long: `Prints a Mermaid flowchart (graph TD) of the wizard steps and conditional fields.
With --session, the steps visited by that session are highlighted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			wizardID := registration.WizardID
			if len(args) > 0 {
				wizardID = args[0]
			}

			loader, err := e.app.Loader()
			if err != nil {
				return err
			}
			def, err := loader.Get(ctx, wizardID)
			if err != nil {
				return err
			}

			var overlay *graph.Overlay
			if sessionID != "" {
				sessions, err := e.app.Sessions(ctx)
				if err != nil {
					return err
				}
				state, err := sessions.Load(ctx, sessionID)
				if err != nil {
					return err
				}
				if state.WizardID != def.ID {
					return fmt.Errorf("session %s belongs to wizard %q", sessionID, state.WizardID)
				}
				overlay = &graph.Overlay{
					VisitedSteps: state.History,
					CurrentStep:  state.CurrentStep,
					Submitted:    state.Status == domain.StatusSubmitted,
				}
			}

			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(def, overlay))
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Highlight the progress of a saved session")
	return cmd
}
