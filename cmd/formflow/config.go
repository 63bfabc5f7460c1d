package main

import (
	"fmt"

	"github.com/clubdesk/formflow/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change persisted preferences",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *e.app.Config
			if cfg.Store.EncryptionKey != "" {
				cfg.Store.EncryptionKey = "<redacted>"
			}
			cfg.Store.FallbackKeys = nil
			cfg.Store.Redis.Password = ""
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a preference (theme, log_level, definitions, store)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Start from the file alone so environment overrides and
			// secrets are never written back.
			cfg, err := config.Load(e.configPath, noEnv)
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Save(e.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s set to %q\n", args[0], args[1])
			return nil
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}

func noEnv(string) (string, bool) { return "", false }
