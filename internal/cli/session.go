package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/clubdesk/formflow"
	"github.com/clubdesk/formflow/internal/logging"
	"github.com/clubdesk/formflow/internal/presentation/tui"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/observability"
	"github.com/clubdesk/formflow/pkg/registration"
	"github.com/clubdesk/formflow/pkg/runner"
	"github.com/clubdesk/formflow/pkg/session"
)

// RunSession runs one wizard in the terminal until it is submitted, the user
// quits or input ends.
func RunSession(ctx context.Context, app *App, opts RunOptions, initial map[string]any) error {
	quiet := opts.JSON || opts.Headless
	useQuietLogger(app, opts.Debug)

	reg, err := app.Registry(ctx, runOptions(app, opts)...)
	if err != nil {
		return err
	}
	eng, err := reg.Get(ctx, wizardID(opts))
	if err != nil {
		return fmt.Errorf("error initializing wizard: %w", err)
	}

	sessions, err := openSessions(ctx, app, opts)
	if err != nil {
		return err
	}

	handler, err := newHandler(app, opts)
	if err != nil {
		return err
	}
	if !quiet {
		tui.PrintBanner(opts.Out)
	}

	sigCtx := NewSignalContext(ctx)
	defer sigCtx.Cancel()

	r := runner.NewRunner(runnerOptions(app, opts, eng, sessions, handler, initial)...)
	final, runErr := r.Run(sigCtx)
	if sigCtx.Err() != nil && runErr == nil {
		runErr = sigCtx.Err()
	}

	logCompletion(opts.Out, final, runErr, quiet, sigCtx.Signal())
	return handleExecutionError(runErr)
}

// useQuietLogger keeps the terminal free of logs unless debugging.
func useQuietLogger(app *App, debug bool) {
	if debug {
		app.Logger = logging.New(slog.LevelDebug)
		return
	}
	app.Logger = logging.NewNop()
}

func wizardID(opts RunOptions) string {
	if opts.WizardID == "" {
		return registration.WizardID
	}
	return opts.WizardID
}

func runOptions(app *App, opts RunOptions) []formflow.Option {
	if !opts.Debug {
		return nil
	}
	return []formflow.Option{formflow.WithLifecycleHooks(observability.LogHooks(app.Logger))}
}

// openSessions returns a manager only when a session ID was given; without
// one the run is ephemeral. --fresh discards the saved progress first.
func openSessions(ctx context.Context, app *App, opts RunOptions) (*session.Manager, error) {
	if opts.SessionID == "" {
		return nil, nil
	}
	sessions, err := app.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Fresh {
		if err := sessions.Delete(ctx, opts.SessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, fmt.Errorf("failed to reset session: %w", err)
		}
	}
	return sessions, nil
}

func newHandler(app *App, opts RunOptions) (runner.IOHandler, error) {
	if opts.JSON {
		return runner.NewJSONHandler(opts.In, opts.Out), nil
	}
	handlerOpts := []runner.TextHandlerOption{runner.WithTextHandlerMaxInput(app.Config.MaxInput)}
	if !opts.Headless {
		renderer, err := tui.NewRenderer(app.Config.Theme)
		if err != nil {
			return nil, fmt.Errorf("failed to create renderer: %w", err)
		}
		failure, title := tui.Styles(opts.Out)
		handlerOpts = append(handlerOpts,
			runner.WithTextHandlerRenderer(renderer),
			runner.WithTextHandlerStyles(failure, title),
		)
	}
	return runner.NewTextHandler(opts.In, opts.Out, handlerOpts...), nil
}

func runnerOptions(app *App, opts RunOptions, eng *formflow.Engine, sessions *session.Manager, handler runner.IOHandler, initial map[string]any) []runner.Option {
	ro := []runner.Option{
		runner.WithWizard(eng),
		runner.WithLogger(app.Logger),
		runner.WithHeadless(opts.Headless),
		runner.WithInputHandler(handler),
		runner.WithInitialValues(initial),
	}
	if review := reviewFor(eng.Definition().ID); review != nil {
		ro = append(ro, runner.WithReview(review))
	}
	if sessions != nil {
		ro = append(ro, runner.WithSessions(sessions), runner.WithSessionID(opts.SessionID))
	}
	return ro
}
