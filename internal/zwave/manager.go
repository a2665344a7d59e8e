package zwave

import (
	"context"
	"time"
)

// Manager is the external network manager that owns the radio link.
//
// The core never encodes command classes or talks to the serial stick itself;
// it issues commands through this interface and receives events through the
// Watcher it registers. Implementations must be safe for concurrent use.
type Manager interface {
	// AddDriver opens the controller on the given serial port.
	AddDriver(ctx context.Context, port string) error

	// RemoveDriver closes the controller registered under name.
	RemoveDriver(ctx context.Context, name string) error

	// AddWatcher registers w for notifications.
	AddWatcher(w Watcher)

	// RemoveWatcher unregisters w.
	RemoveWatcher(w Watcher)

	// SetValue writes a boolean value.
	SetValue(ctx context.Context, id ValueID, on bool) error

	// GetValueAsBool reads the current boolean state of a value.
	GetValueAsBool(ctx context.Context, id ValueID) (bool, error)

	// AddAssociation adds target to the given association group of a node.
	AddAssociation(ctx context.Context, networkID uint32, nodeID, group, target uint8) error

	// RefreshNodeInfo re-interrogates a node.
	RefreshNodeInfo(ctx context.Context, networkID uint32, nodeID uint8) error

	// WriteConfig asks the manager to persist its network configuration.
	WriteConfig(ctx context.Context, networkID uint32) error
}

// Logger defines the logging interface used by this package.
// It is satisfied by *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Reaction outcomes reported to Metrics.ObserveReaction.
const (
	ReactionApplied        = "applied"
	ReactionLookupFailed   = "lookup_failed"
	ReactionReadFailed     = "read_failed"
	ReactionCommandFailed  = "command_failed"
	ReactionReadBackFailed = "readback_failed"
)

// Metrics receives dispatcher instrumentation.
// It is satisfied by *metrics.Collector.
type Metrics interface {
	ObserveNotification(t NotificationType, took time.Duration)
	ObserveReaction(outcome string)
	SetNodeCount(n int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveNotification(NotificationType, time.Duration) {}
func (noopMetrics) ObserveReaction(string)                              {}
func (noopMetrics) SetNodeCount(int)                                    {}
