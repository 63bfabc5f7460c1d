package cli

import (
	"context"
	"crypto/md5"
	"fmt"
	"time"

	"github.com/clubdesk/formflow"
	"github.com/clubdesk/formflow/internal/presentation/tui"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/ports"
	"github.com/clubdesk/formflow/pkg/registry"
	"github.com/clubdesk/formflow/pkg/runner"
	"github.com/clubdesk/formflow/pkg/session"
)

// RunWatch runs a wizard in development mode: whenever a definition changes
// the runner restarts and resumes the same session on the new definition.
func RunWatch(ctx context.Context, app *App, opts RunOptions) error {
	useQuietLogger(app, opts.Debug)
	tui.PrintBanner(opts.Out)

	// Watch mode always persists so a reload keeps the answers. The default
	// session is scoped by definitions directory.
	if opts.SessionID == "" {
		hash := md5.Sum([]byte(app.Config.Definitions))
		opts.SessionID = fmt.Sprintf("watch-%x", hash[:4])
	}

	loader, err := app.Loader()
	if err != nil {
		return err
	}
	if _, ok := loader.(ports.Watchable); !ok {
		return fmt.Errorf("--watch requires a definitions directory: %w", formflow.ErrNotWatchable)
	}
	reg, err := app.Registry(ctx, runOptions(app, opts)...)
	if err != nil {
		return err
	}
	sessions, err := openSessions(ctx, app, opts)
	if err != nil {
		return err
	}
	// One handler for all iterations avoids competing stdin readers.
	handler, err := newHandler(app, opts)
	if err != nil {
		return err
	}

	sigCtx := NewSignalContext(ctx)
	defer sigCtx.Cancel()

	changes := make(chan struct{}, 1)
	go func() {
		err := reg.Watch(sigCtx, func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		})
		if err != nil {
			app.Logger.Error("watcher stopped", "err", err)
		}
	}()

	app.Logger.Info("starting watcher", "path", app.Config.Definitions, "session_id", opts.SessionID)
	printSystemMessage(opts.Out, "Watching '%s' with session '%s'.", app.Config.Definitions, opts.SessionID)

	w := &watcher{app: app, opts: opts, reg: reg, sessions: sessions, handler: handler, changes: changes}
	for {
		again, err := w.iterate(sigCtx)
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
		app.Logger.Info("watcher restarting")
	}
}

type watcher struct {
	app      *App
	opts     RunOptions
	reg      *registry.Registry
	sessions *session.Manager
	handler  runner.IOHandler
	changes  <-chan struct{}
}

// iterate runs the wizard once. It reports whether the loop should go on.
func (w *watcher) iterate(parent *SignalContext) (bool, error) {
	out := w.opts.Out

	eng, err := w.reg.Get(parent, wizardID(w.opts))
	if err != nil {
		w.app.Logger.Error("wizard failed to load", "err", err)
		printSystemMessage(out, "Wizard failed to load: %v. Waiting for changes...", err)
		return w.waitForChange(parent), nil
	}

	runCtx, cancel := context.WithCancel(parent)
	defer cancel()

	r := runner.NewRunner(runnerOptions(w.app, w.opts, eng, w.sessions, w.handler, nil)...)
	type result struct {
		state *domain.State
		err   error
	}
	done := make(chan result, 1)
	go func() {
		s, err := r.Run(runCtx)
		done <- result{s, err}
	}()

	select {
	case <-parent.Done():
		cancel()
		res := <-done
		logCompletion(out, res.state, context.Canceled, false, parent.Signal())
		return false, nil
	case <-w.changes:
		cancel()
		<-done
		fmt.Fprintln(out)
		printSystemMessage(out, "Change detected, reloading.")
		// Let editors finish writing before the definition is read again.
		time.Sleep(100 * time.Millisecond)
		return true, nil
	case res := <-done:
		if res.err != nil && !isInterrupted(res.err) {
			return false, res.err
		}
		if res.err != nil {
			return false, nil
		}
		logCompletion(out, res.state, nil, false, nil)
		printSystemMessage(out, "Waiting for changes...")
		return w.waitForChange(parent), nil
	}
}

func (w *watcher) waitForChange(parent *SignalContext) bool {
	select {
	case <-parent.Done():
		return false
	case <-w.changes:
		return true
	}
}
