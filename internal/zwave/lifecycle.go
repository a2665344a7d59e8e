package zwave

import (
	"fmt"
	"sync"
)

// Phase is the controller's position in its startup/shutdown sequence.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseAwaitingReady Phase = "awaiting_ready"
	PhaseReady         Phase = "ready"
	PhaseFailed        Phase = "failed"
	PhaseShuttingDown  Phase = "shutting_down"
)

// transitions lists the legal moves out of each phase.
var transitions = map[Phase][]Phase{
	PhaseUninitialized: {PhaseAwaitingReady},
	PhaseAwaitingReady: {PhaseReady, PhaseFailed},
	PhaseReady:         {PhaseShuttingDown},
}

// Lifecycle tracks the current Phase. It is safe for concurrent use.
type Lifecycle struct {
	mu    sync.RWMutex
	phase Phase
}

// NewLifecycle returns a lifecycle in PhaseUninitialized.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{phase: PhaseUninitialized}
}

// Phase returns the current phase.
func (l *Lifecycle) Phase() Phase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.phase
}

// Transition moves to next, or returns ErrInvalidTransition.
func (l *Lifecycle) Transition(next Phase) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range transitions[l.phase] {
		if p == next {
			l.phase = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.phase, next)
}
