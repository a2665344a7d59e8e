package zwave

import (
	"context"
	"errors"
	"fmt"
)

// Topology names the fixed nodes the controller couples together.
type Topology struct {
	// ControllerNodeID is the node id of the USB controller itself. The
	// sensor's association group is pointed at it so the sensor reports
	// state changes unsolicited.
	ControllerNodeID uint8

	// SensorNodeID is the binary sensor (motion detector).
	SensorNodeID uint8

	// SwitchNodeID is the binary power switch driven by the sensor.
	SwitchNodeID uint8

	// AssociationGroup is the sensor's association group for reports.
	AssociationGroup uint8
}

// DefaultTopology returns the node ids used by the reference installation.
func DefaultTopology() Topology {
	return Topology{
		ControllerNodeID: 1,
		SensorNodeID:     4,
		SwitchNodeID:     3,
		AssociationGroup: 1,
	}
}

// ActionDriver resolves values and issues switch commands through the Manager.
//
// Every method that takes a *Registry must run on the dispatcher goroutine.
type ActionDriver struct {
	manager  Manager
	topology Topology
	logger   Logger
	metrics  Metrics
}

// NewActionDriver creates an action driver for the given topology.
func NewActionDriver(manager Manager, topology Topology, logger Logger, metrics Metrics) *ActionDriver {
	if logger == nil {
		logger = noopLogger{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &ActionDriver{
		manager:  manager,
		topology: topology,
		logger:   logger,
		metrics:  metrics,
	}
}

// Topology returns the configured node ids.
func (a *ActionDriver) Topology() Topology {
	return a.topology
}

// ResolveValue finds the ValueID for (nodeID, commandClass, index) on the
// session's network.
//
// Returns ErrLookupFailure, wrapping ErrNodeNotFound or ErrValueNotFound,
// when no such value is registered.
func (a *ActionDriver) ResolveValue(reg *Registry, session *Session, nodeID, commandClass, index uint8) (ValueID, error) {
	node, ok := reg.Find(session.NetworkID, nodeID)
	if !ok {
		return ValueID{}, fmt.Errorf("%w: node %d: %w", ErrLookupFailure, nodeID, ErrNodeNotFound)
	}
	id, ok := node.Value(commandClass, index)
	if !ok {
		return ValueID{}, fmt.Errorf("%w: node %d cc %#02x index %d: %w",
			ErrLookupFailure, nodeID, commandClass, index, ErrValueNotFound)
	}
	return id, nil
}

// SetSwitch commands a binary switch value and reads its state back.
//
// A read-back failure does not undo the command: the set has been issued
// and the returned error wraps ErrReadBackFailed.
func (a *ActionDriver) SetSwitch(ctx context.Context, id ValueID, on bool) error {
	if err := a.manager.SetValue(ctx, id, on); err != nil {
		return fmt.Errorf("setting %s to %t: %w", id, on, err)
	}

	state, err := a.manager.GetValueAsBool(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrReadBackFailed, id, err)
	}

	a.logger.Info("switch state", "value", id.String(), "requested", on, "state", state)
	return nil
}

// ReadSensor returns the binary sensor's current state.
//
// A failed read aborts the reaction like a failed lookup: the returned
// error wraps ErrReadBackFailed.
func (a *ActionDriver) ReadSensor(ctx context.Context, reg *Registry, session *Session) (bool, error) {
	id, err := a.ResolveValue(reg, session, a.topology.SensorNodeID, CommandClassSensorBinary, 0)
	if err != nil {
		return false, err
	}

	active, err := a.manager.GetValueAsBool(ctx, id)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrReadBackFailed, id, err)
	}
	return active, nil
}

// ReactToSensor drives the switch to match the sensor state.
//
// The coupling is level-triggered: every call commands the switch, even when
// it is already in the requested state. A lookup failure aborts the reaction
// without issuing any command.
func (a *ActionDriver) ReactToSensor(ctx context.Context, reg *Registry, session *Session, active bool) error {
	id, err := a.ResolveValue(reg, session, a.topology.SwitchNodeID, CommandClassSwitchBinary, 0)
	if err != nil {
		a.metrics.ObserveReaction(ReactionLookupFailed)
		return err
	}

	err = a.SetSwitch(ctx, id, active)
	switch {
	case err == nil:
		a.metrics.ObserveReaction(ReactionApplied)
		return nil
	case errors.Is(err, ErrReadBackFailed):
		a.metrics.ObserveReaction(ReactionReadBackFailed)
		a.logger.Warn("switch read-back failed", "value", id.String(), "requested", active, "error", err)
		return nil
	default:
		a.metrics.ObserveReaction(ReactionCommandFailed)
		return err
	}
}

// SetNodeSwitch drives the first binary switch value of any registered node.
// Used by the timed demonstration sequence.
func (a *ActionDriver) SetNodeSwitch(ctx context.Context, reg *Registry, session *Session, nodeID uint8, on bool) error {
	node, ok := reg.Find(session.NetworkID, nodeID)
	if !ok {
		return fmt.Errorf("%w: node %d: %w", ErrLookupFailure, nodeID, ErrNodeNotFound)
	}
	id, ok := node.FirstValue(CommandClassSwitchBinary)
	if !ok {
		return fmt.Errorf("%w: node %d has no binary switch: %w", ErrLookupFailure, nodeID, ErrValueNotFound)
	}

	err := a.SetSwitch(ctx, id, on)
	if errors.Is(err, ErrReadBackFailed) {
		a.logger.Warn("switch read-back failed", "value", id.String(), "requested", on, "error", err)
		return nil
	}
	return err
}
