package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/registration"
	"github.com/clubdesk/formflow/pkg/runner"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// Unlike signal.NotifyContext it remembers which signal arrived.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func isInterrupted(err error) bool {
	return errors.Is(err, runner.ErrInterrupted) || errors.Is(err, context.Canceled)
}

// handleExecutionError turns interruptions into a clean exit; progress was
// already saved by the runner.
func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	return err
}

func logCompletion(w io.Writer, state *domain.State, err error, quiet bool, sig os.Signal) {
	if quiet || state == nil {
		return
	}
	step := state.CurrentStep + 1
	switch {
	case err == nil && state.Status == domain.StatusSubmitted:
		printSystemMessage(w, "Registration complete.")
	case err == nil:
		printSystemMessage(w, "Stopped at step %d.", step)
	case isInterrupted(err) && sig == syscall.SIGTERM:
		fmt.Fprintln(w)
		printSystemMessage(w, "Terminated at step %d.", step)
	case isInterrupted(err):
		fmt.Fprintln(w, "[CTRL+C]")
		printSystemMessage(w, "Interrupted at step %d.", step)
	}
}

// reviewFor picks the confirmation review for a wizard. The registration
// wizard gets its human readable summary; others list the payload.
func reviewFor(wizardID string) runner.Review {
	if wizardID != registration.WizardID {
		return nil
	}
	return func(state *domain.State, _ domain.Payload) []string {
		lines := registration.Summary(state.Fields)
		out := make([]string, 0, len(lines))
		for _, l := range lines {
			out = append(out, fmt.Sprintf("  %s: %s", l.Label, l.Value))
		}
		return out
	}
}
