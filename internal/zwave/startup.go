package zwave

import (
	"context"
	"errors"
	"sync"
)

// StartupGate blocks the main goroutine until the network has finished its
// initial interrogation or the driver has failed.
//
// The gate is single-shot: only the first Signal has any effect, and every
// current and future Wait observes the same outcome. A gate cannot be reset.
type StartupGate struct {
	once   sync.Once
	done   chan struct{}
	failed bool
}

// NewStartupGate creates an unsignalled gate.
func NewStartupGate() *StartupGate {
	return &StartupGate{done: make(chan struct{})}
}

// Signal releases the gate. failed marks the outcome as an initialisation
// failure. It reports whether this call released the gate.
func (g *StartupGate) Signal(failed bool) bool {
	released := false
	g.once.Do(func() {
		g.failed = failed
		close(g.done)
		released = true
	})
	return released
}

// Done returns a channel that is closed once the gate has been signalled.
func (g *StartupGate) Done() <-chan struct{} {
	return g.done
}

// Wait blocks until the gate is signalled or ctx ends.
//
// Returns:
//   - nil when the network became ready
//   - ErrInitializationFailed when the driver failed
//   - ErrStartupTimeout when ctx hit its deadline first
//   - ctx.Err() when ctx was cancelled for any other reason
func (g *StartupGate) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		if g.failed {
			return ErrInitializationFailed
		}
		return nil
	case <-ctx.Done():
		// A signal racing the deadline still wins.
		select {
		case <-g.done:
			if g.failed {
				return ErrInitializationFailed
			}
			return nil
		default:
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrStartupTimeout
		}
		return ctx.Err()
	}
}
