package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/clubdesk/formflow"
	"github.com/clubdesk/formflow/pkg/adapters/mcp"
	"github.com/clubdesk/formflow/pkg/observability"
	"github.com/spf13/cobra"
)

func newMCPCmd(e *env) *cobra.Command {
	var (
		transport string
		port      int
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Exposes wizards as MCP tools so agents can fill them in step by step.

Supported transports:
- stdio (default): standard input and output, for local process integration.
- sse: Server-Sent Events over HTTP, for remote agents or debuggers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := e.app.Logger

			reg, err := e.app.Registry(ctx, formflow.WithLifecycleHooks(observability.LogHooks(logger)))
			if err != nil {
				return err
			}
			sessions, err := e.app.Sessions(ctx)
			if err != nil {
				return err
			}
			srv := mcp.NewServer(reg, sessions,
				mcp.WithLogger(logger),
				mcp.WithMaxInputSize(e.app.Config.MaxInput),
			)

			switch transport {
			case "stdio":
				// Stdout carries JSON-RPC.
				log.SetOutput(os.Stderr)
				logger.Info("starting formflow MCP server", "transport", "stdio")
				return srv.ServeStdio()
			case "sse":
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				logger.Info("starting formflow MCP server", "transport", "sse", "port", port)
				if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
					return err
				}
				logger.Info("MCP server stopped")
				return nil
			default:
				return fmt.Errorf("unknown transport %q (stdio or sse)", transport)
			}
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport protocol: stdio or sse")
	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on (sse only)")
	return cmd
}
