package runner

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// SignalManager turns OS interrupts (and an optional host channel) into
// context cancellation for the prompt currently waiting on input.
type SignalManager struct {
	parent    context.Context
	interrupt <-chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewSignalManager creates a manager and immediately starts listening.
// interrupt may be nil.
func NewSignalManager(parent context.Context, interrupt <-chan struct{}) *SignalManager {
	sm := &SignalManager{parent: parent, interrupt: interrupt}
	sm.Reset()
	return sm
}

// Context returns the current signal context.
func (sm *SignalManager) Context() context.Context {
	return sm.ctx
}

// Reset re-arms the listener after a handled interruption.
func (sm *SignalManager) Reset() {
	if sm.cancel != nil {
		sm.cancel()
	}
	ctx, stop := signal.NotifyContext(sm.parent, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(ctx)
	sm.ctx = ctx
	sm.cancel = func() {
		cancel()
		stop()
	}

	if sm.interrupt != nil {
		go func(ch <-chan struct{}) {
			select {
			case <-ch:
				cancel()
			case <-ctx.Done():
			}
		}(sm.interrupt)
	}
}

// Stop permanently stops the listener.
func (sm *SignalManager) Stop() {
	if sm.cancel != nil {
		sm.cancel()
	}
}

// Interrupted reports whether the current context was cancelled.
func (sm *SignalManager) Interrupted() bool {
	return sm.ctx.Err() != nil
}

// CheckRace waits briefly for a cancellation that may trail an input error:
// some terminals deliver EOF slightly before the interrupt signal.
func (sm *SignalManager) CheckRace() {
	if sm.ctx.Err() == nil {
		select {
		case <-sm.ctx.Done():
		case <-time.After(100 * time.Millisecond):
		}
	}
}
