package main

import (
	"github.com/clubdesk/formflow/internal/cli"
	"github.com/clubdesk/formflow/internal/config"
	"github.com/spf13/cobra"
)

// env carries the application context from the root command to the
// subcommands.
type env struct {
	configPath string
	app        *cli.App
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "formflow",
		Short:         "formflow runs multi-step registration wizards",
		Long:          `formflow validates and runs multi-step form wizards in the terminal, over a JSON HTTP API or as MCP tools.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e.app == nil {
				return nil
			}
			return e.app.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&e.configPath, "config", "c", "", "Config file (default ./formflow.yaml)")
	flags.String("dir", "", "Directory containing wizard definitions (default: built-in registration wizard)")
	flags.String("store", "", "Session store: memory, file or redis")
	flags.String("log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(
		newRunCmd(e),
		newServeCmd(e),
		newMCPCmd(e),
		newValidateCmd(e),
		newGraphCmd(e),
		newSessionCmd(e),
		newConfigCmd(e),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration and applies the persistent flags over it.
func (e *env) load(cmd *cobra.Command) error {
	cfg, err := config.Load(e.configPath, nil)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.Definitions, _ = flags.GetString("dir")
	}
	if flags.Changed("store") {
		cfg.Store.Backend, _ = flags.GetString("store")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	app, err := cli.NewApp(cfg)
	if err != nil {
		return err
	}
	e.app = app
	return nil
}
