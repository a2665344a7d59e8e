package zwave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// defaultQueueSize is the inbox capacity used when DispatcherOptions.QueueSize is zero.
const defaultQueueSize = 256

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// Manager receives the commands issued by reactions.
	Manager Manager

	// Topology names the sensor, switch and controller nodes.
	Topology Topology

	// QueueSize is the inbox capacity. Notify blocks when the inbox is full.
	QueueSize int

	Logger  Logger
	Metrics Metrics
}

// NetworkSnapshot is a point-in-time copy of the registry and session.
type NetworkSnapshot struct {
	NetworkID uint32
	Nodes     []NodeSnapshot
}

// work is one unit queued for the dispatcher goroutine: either a
// notification, or a function submitted through Do.
type work struct {
	notification Notification
	fn           func(*Registry, *Session) error
	result       chan error
}

// Dispatcher is the single consumer of network notifications.
//
// Notify may be called from any goroutine; notifications are queued and
// handled one at a time in the order they were queued. All access to the
// Registry, the Session and the sensor → switch reaction happens on the
// dispatcher goroutine, so each event is applied atomically with respect
// to every other event.
type Dispatcher struct {
	registry *Registry
	session  *Session
	gate     *StartupGate
	action   *ActionDriver
	manager  Manager
	topology Topology
	logger   Logger
	metrics  Metrics

	inbox chan work

	// nodeCount mirrors registry.Len() for readers off the dispatcher goroutine.
	nodeCount atomic.Int64

	ctx       context.Context //nolint:containedctx // cancelled on Stop to abort in-flight manager calls
	ctxCancel context.CancelFunc
	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher with an empty registry and session.
// Call Start to begin handling notifications.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		registry:  NewRegistry(),
		session:   &Session{},
		gate:      NewStartupGate(),
		action:    NewActionDriver(opts.Manager, opts.Topology, opts.Logger, opts.Metrics),
		manager:   opts.Manager,
		topology:  opts.Topology,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		inbox:     make(chan work, opts.QueueSize),
		ctx:       ctx,
		ctxCancel: cancel,
		done:      make(chan struct{}),
	}
}

// Gate returns the startup gate signalled by this dispatcher.
func (d *Dispatcher) Gate() *StartupGate {
	return d.gate
}

// Action returns the dispatcher's action driver.
func (d *Dispatcher) Action() *ActionDriver {
	return d.action
}

// NodeCount returns the number of registered nodes as of the last handled event.
func (d *Dispatcher) NodeCount() int {
	return int(d.nodeCount.Load())
}

// Start launches the dispatcher goroutine. Calling Start more than once has
// no further effect.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		d.wg.Add(1)
		go d.run()
	})
}

// Stop stops the dispatcher goroutine after the event in progress, if any,
// completes. In-flight manager calls are cancelled. Queued but unhandled
// notifications are dropped. Safe to call more than once.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
		d.ctxCancel()
		d.wg.Wait()
		d.logger.Debug("dispatcher stopped", "dropped", len(d.inbox))
	})
}

// Notify queues a notification. It implements Watcher.
//
// Notify blocks while the inbox is full and returns immediately, dropping
// the notification, once the dispatcher has been stopped.
func (d *Dispatcher) Notify(n Notification) {
	select {
	case <-d.done:
		return
	default:
	}

	select {
	case d.inbox <- work{notification: n}:
	case <-d.done:
	}
}

// Do runs fn on the dispatcher goroutine, serialised with notification
// handling, and returns its error.
//
// Returns ErrDispatcherStopped if the dispatcher stops before fn runs, or
// ctx.Err() if ctx ends first.
func (d *Dispatcher) Do(ctx context.Context, fn func(*Registry, *Session) error) error {
	w := work{fn: fn, result: make(chan error, 1)}

	select {
	case <-d.done:
		return ErrDispatcherStopped
	default:
	}

	select {
	case d.inbox <- w:
	case <-d.done:
		return ErrDispatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-w.result:
		return err
	case <-d.done:
		return ErrDispatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the session network id and every registered node.
func (d *Dispatcher) Snapshot(ctx context.Context) (NetworkSnapshot, error) {
	var snap NetworkSnapshot
	err := d.Do(ctx, func(reg *Registry, s *Session) error {
		snap = NetworkSnapshot{NetworkID: s.NetworkID, Nodes: reg.Nodes()}
		return nil
	})
	return snap, err
}

// run is the dispatcher goroutine.
func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		// Prefer stopping over draining the inbox.
		select {
		case <-d.done:
			return
		default:
		}

		select {
		case <-d.done:
			return
		case w := <-d.inbox:
			if w.fn != nil {
				w.result <- d.call(w.fn)
				continue
			}
			d.dispatch(w.notification)
		}
	}
}

// call runs fn with panic recovery.
func (d *Dispatcher) call(fn func(*Registry, *Session) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatcher function panic recovered", "panic", r)
			err = fmt.Errorf("zwave: dispatcher function panicked: %v", r)
		}
		d.nodeCount.Store(int64(d.registry.Len()))
	}()
	return fn(d.registry, d.session)
}

// dispatch handles one notification with panic recovery and instrumentation.
func (d *Dispatcher) dispatch(n Notification) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification handler panic recovered",
				"type", string(n.Type),
				"node_id", n.NodeID,
				"panic", r,
			)
		}
		count := d.registry.Len()
		d.nodeCount.Store(int64(count))
		d.metrics.SetNodeCount(count)
		d.metrics.ObserveNotification(n.Type, time.Since(start))
	}()

	d.handle(n)
}

// handle applies one notification to the registry and session.
//
// Notifications that name a node the registry does not know are stale and
// are dropped without error, as are value notifications whose ValueID is
// scoped to a different node.
func (d *Dispatcher) handle(n Notification) {
	if n.Type.IsValueEvent() && !n.ValueBelongsToNode() {
		d.logger.Debug("value notification for another node ignored",
			"type", string(n.Type),
			"node_id", n.NodeID,
			"value", n.Value.String(),
		)
		return
	}

	switch n.Type {
	case NotificationValueAdded:
		if node, ok := d.resolve(n); ok {
			d.registry.AddValue(node, n.Value)
		}

	case NotificationValueRemoved:
		if node, ok := d.resolve(n); ok {
			d.registry.RemoveValue(node, n.Value)
		}

	case NotificationValueChanged:
		if _, ok := d.resolve(n); ok && n.NodeID == d.topology.SensorNodeID {
			d.reactToSensor()
		}

	case NotificationNodeAdded:
		d.addNode(n)

	case NotificationNodeRemoved:
		if d.registry.Remove(n.NetworkID, n.NodeID) {
			d.logger.Info("node removed", "network_id", n.NetworkID, "node_id", n.NodeID)
		}

	case NotificationNodeEvent, NotificationGroup:
		if _, ok := d.resolve(n); ok {
			d.logger.Debug("node notification", "type", string(n.Type), "node_id", n.NodeID)
		}

	case NotificationPollingDisabled, NotificationPollingEnabled:
		if node, ok := d.resolve(n); ok {
			d.registry.SetPolled(node, n.Type == NotificationPollingEnabled)
		}

	case NotificationDriverReady:
		if d.session.SetNetwork(n.NetworkID) {
			d.logger.Info("driver ready", "network_id", fmt.Sprintf("%#08x", n.NetworkID))
		} else {
			d.logger.Debug("duplicate driver ready ignored", "network_id", n.NetworkID)
		}

	case NotificationDriverFailed:
		if d.session.Terminal() {
			d.logger.Error("driver failed after startup", "network_id", n.NetworkID)
			return
		}
		d.session.InitFailed = true
		d.gate.Signal(true)
		d.logger.Error("driver failed", "network_id", n.NetworkID)

	case NotificationAwakeNodesQueried, NotificationAllNodesQueried, NotificationAllNodesQueriedSomeDead:
		if d.session.Terminal() {
			d.logger.Debug("readiness report after startup ignored", "type", string(n.Type))
			return
		}
		d.session.ReadySignalled = true
		d.gate.Signal(false)
		d.logger.Info("network ready", "type", string(n.Type), "nodes", d.registry.Len())

	default:
		if !n.Type.IsKnown() {
			d.logger.Debug("unknown notification ignored", "type", string(n.Type))
		}
	}
}

// resolve finds the node a notification refers to.
func (d *Dispatcher) resolve(n Notification) (*Node, bool) {
	node, ok := d.registry.Find(n.NetworkID, n.NodeID)
	if !ok {
		d.logger.Debug("stale notification ignored",
			"type", string(n.Type),
			"network_id", n.NetworkID,
			"node_id", n.NodeID,
		)
	}
	return node, ok
}

// addNode registers a new node. When the sensor appears for the first time
// its association group is pointed at the controller and its node info is
// refreshed.
func (d *Dispatcher) addNode(n Notification) {
	if _, err := d.registry.Add(n.NetworkID, n.NodeID); err != nil {
		d.logger.Debug("node already registered", "network_id", n.NetworkID, "node_id", n.NodeID)
		return
	}
	d.logger.Info("node added", "network_id", n.NetworkID, "node_id", n.NodeID)

	if n.NodeID != d.topology.SensorNodeID {
		return
	}

	t := d.topology
	if err := d.manager.AddAssociation(d.ctx, n.NetworkID, t.SensorNodeID, t.AssociationGroup, t.ControllerNodeID); err != nil {
		d.logger.Warn("failed to associate sensor with controller",
			"node_id", t.SensorNodeID,
			"group", t.AssociationGroup,
			"error", err,
		)
	}
	if err := d.manager.RefreshNodeInfo(d.ctx, n.NetworkID, t.SensorNodeID); err != nil {
		d.logger.Warn("failed to refresh sensor node info", "node_id", t.SensorNodeID, "error", err)
	}
}

// reactToSensor reads the sensor and drives the switch to match.
func (d *Dispatcher) reactToSensor() {
	active, err := d.action.ReadSensor(d.ctx, d.registry, d.session)
	if err != nil {
		outcome := ReactionLookupFailed
		if errors.Is(err, ErrReadBackFailed) {
			outcome = ReactionReadFailed
		}
		d.metrics.ObserveReaction(outcome)
		d.logger.Warn("sensor reaction aborted", "error", err)
		return
	}

	d.logger.Info("sensor state changed", "node_id", d.topology.SensorNodeID, "active", active)

	if err := d.action.ReactToSensor(d.ctx, d.registry, d.session, active); err != nil {
		d.logger.Warn("sensor reaction aborted", "error", err)
	}
}
