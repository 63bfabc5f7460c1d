package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clubdesk/formflow"
	"github.com/clubdesk/formflow/internal/logging"
	httpAdapter "github.com/clubdesk/formflow/pkg/adapters/http"
	"github.com/clubdesk/formflow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  `Serves wizard sessions as a JSON API with Server-Sent Events and Prometheus metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				e.app.Config.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			return serve(cmd.Context(), e)
		},
	}
	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	return cmd
}

func serve(ctx context.Context, e *env) error {
	cfg := e.app.Config
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.NewJSON(os.Stderr, level)
	e.app.Logger = logger

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observability.NewMetrics(metricsRegistry)
	if err != nil {
		return err
	}

	reg, err := e.app.Registry(ctx,
		formflow.WithLifecycleHooks(metrics.Hooks()),
		formflow.WithLifecycleHooks(observability.LogHooks(logger)),
	)
	if err != nil {
		return err
	}
	sessions, err := e.app.Sessions(ctx)
	if err != nil {
		return err
	}

	server := httpAdapter.NewServer(reg, sessions,
		httpAdapter.WithLogger(logger),
		httpAdapter.WithMetrics(metricsRegistry),
		httpAdapter.WithMaxInputSize(cfg.MaxInput),
	)
	handler, err := server.Handler()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.WatchDefinitions(ctx); err != nil && !errors.Is(err, formflow.ErrNotWatchable) {
			logger.Error("definition watcher stopped", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting formflow server", "addr", srv.Addr, "definitions", cfg.Definitions, "store", cfg.Store.Backend)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down", "timeout", shutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown did not complete", "err", err)
			return srv.Close()
		}
		logger.Info("formflow server stopped", slog.String("addr", srv.Addr))
		return nil
	}
}
