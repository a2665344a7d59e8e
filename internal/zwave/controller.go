package zwave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// usbPort is the port name that selects the USB HID controller.
const usbPort = "usb"

// hidControllerName is the driver name the manager registers for a USB HID controller.
const hidControllerName = "HID Controller"

// DriverName returns the name under which the manager registers the driver
// opened on port: "HID Controller" for the "usb" sentinel (any case),
// otherwise the port itself.
func DriverName(port string) string {
	if strings.EqualFold(port, usbPort) {
		return hidControllerName
	}
	return port
}

// ConfigStore persists node configuration snapshots for a network.
type ConfigStore interface {
	Save(ctx context.Context, networkID uint32, nodes []NodeSnapshot) error
	Load(ctx context.Context, networkID uint32) ([]NodeSnapshot, error)
}

// ControllerConfig holds the controller settings.
type ControllerConfig struct {
	// Port is the serial port (or "usb") handed to AddDriver.
	Port string

	// Topology names the sensor, switch and controller nodes.
	Topology Topology

	// StartupTimeout bounds the wait for a readiness report. Zero waits forever.
	StartupTimeout time.Duration
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	Config  ControllerConfig
	Manager Manager

	// Store is optional. When set, SaveConfig persists a registry snapshot
	// and Start reports nodes known from the previous run that were not
	// rediscovered.
	Store ConfigStore

	Logger  Logger
	Metrics Metrics
}

// Controller ties the dispatcher, startup gate and lifecycle to a Manager.
//
// Typical use:
//
//	ctrl := zwave.NewController(opts)
//	if err := ctrl.Start(ctx); err != nil {
//	    return err // ErrInitializationFailed
//	}
//	defer ctrl.Shutdown(context.Background())
type Controller struct {
	cfg        ControllerConfig
	manager    Manager
	store      ConfigStore
	logger     Logger
	dispatcher *Dispatcher
	lifecycle  *Lifecycle

	mu          sync.Mutex
	driverAdded bool
	watching    bool

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewController creates a controller. Nothing is started until Start.
func NewController(opts ControllerOptions) *Controller {
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	return &Controller{
		cfg:     opts.Config,
		manager: opts.Manager,
		store:   opts.Store,
		logger:  opts.Logger,
		dispatcher: NewDispatcher(DispatcherOptions{
			Manager:  opts.Manager,
			Topology: opts.Config.Topology,
			Logger:   opts.Logger,
			Metrics:  opts.Metrics,
		}),
		lifecycle: NewLifecycle(),
	}
}

// Phase returns the controller's lifecycle phase.
func (c *Controller) Phase() Phase {
	return c.lifecycle.Phase()
}

// Dispatcher returns the controller's dispatcher.
func (c *Controller) Dispatcher() *Dispatcher {
	return c.dispatcher
}

// Start registers the dispatcher as a watcher, opens the driver and blocks
// until the network is ready.
//
// Returns an error wrapping ErrInitializationFailed if the driver cannot be
// added, the driver reports failure, or StartupTimeout elapses. The
// controller is then in PhaseFailed and only Shutdown remains useful.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.lifecycle.Transition(PhaseAwaitingReady); err != nil {
		return err
	}

	c.dispatcher.Start()
	c.manager.AddWatcher(c.dispatcher)
	c.mu.Lock()
	c.watching = true
	c.mu.Unlock()

	c.logger.Info("adding driver", "port", c.cfg.Port)
	if err := c.manager.AddDriver(ctx, c.cfg.Port); err != nil {
		c.fail()
		return fmt.Errorf("%w: adding driver %s: %w", ErrInitializationFailed, c.cfg.Port, err)
	}
	c.mu.Lock()
	c.driverAdded = true
	c.mu.Unlock()

	waitCtx := ctx
	if c.cfg.StartupTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.cfg.StartupTimeout)
		defer cancel()
	}

	if err := c.dispatcher.Gate().Wait(waitCtx); err != nil {
		c.fail()
		if errors.Is(err, ErrInitializationFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrInitializationFailed, err)
	}

	if err := c.lifecycle.Transition(PhaseReady); err != nil {
		return err
	}

	snap, err := c.dispatcher.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("reading registry: %w", err)
	}
	c.logger.Info("controller ready",
		"network_id", fmt.Sprintf("%#08x", snap.NetworkID),
		"nodes", len(snap.Nodes),
	)
	c.reportMissingNodes(ctx, snap)

	return nil
}

func (c *Controller) fail() {
	if err := c.lifecycle.Transition(PhaseFailed); err != nil {
		c.logger.Warn("lifecycle", "error", err)
	}
}

// reportMissingNodes logs nodes stored by the last SaveConfig that were not
// rediscovered during this startup.
func (c *Controller) reportMissingNodes(ctx context.Context, snap NetworkSnapshot) {
	if c.store == nil {
		return
	}

	stored, err := c.store.Load(ctx, snap.NetworkID)
	if err != nil {
		c.logger.Warn("failed to load stored network config", "error", err)
		return
	}

	present := make(map[uint8]bool, len(snap.Nodes))
	for _, n := range snap.Nodes {
		present[n.NodeID] = true
	}
	for _, n := range stored {
		if !present[n.NodeID] {
			c.logger.Warn("stored node not rediscovered", "node_id", n.NodeID, "values", len(n.Values))
		}
	}
}

// RunDemo toggles the switch node on and off iterations times, pausing
// interval after each command. It returns ctx.Err() if ctx ends early.
// Command failures are logged and the sequence continues.
func (c *Controller) RunDemo(ctx context.Context, iterations int, interval time.Duration) error {
	if phase := c.lifecycle.Phase(); phase != PhaseReady {
		return fmt.Errorf("%w: demo requires %s, controller is %s", ErrInvalidTransition, PhaseReady, phase)
	}

	switchNode := c.cfg.Topology.SwitchNodeID
	action := c.dispatcher.Action()

	for i := 0; i < iterations; i++ {
		for _, on := range []bool{true, false} {
			err := c.dispatcher.Do(ctx, func(reg *Registry, s *Session) error {
				return action.SetNodeSwitch(ctx, reg, s, switchNode, on)
			})
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, ErrDispatcherStopped) {
					return err
				}
				c.logger.Warn("demo switch command failed", "iteration", i+1, "on", on, "error", err)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
	}
	return nil
}

// SaveConfig asks the manager to write its network configuration and then
// stores a registry snapshot in the ConfigStore, if one is configured.
func (c *Controller) SaveConfig(ctx context.Context) error {
	snap, err := c.dispatcher.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("reading registry: %w", err)
	}

	if err := c.manager.WriteConfig(ctx, snap.NetworkID); err != nil {
		return fmt.Errorf("writing network config: %w", err)
	}

	if c.store != nil {
		if err := c.store.Save(ctx, snap.NetworkID, snap.Nodes); err != nil {
			return fmt.Errorf("storing network config: %w", err)
		}
	}

	c.logger.Info("network config saved", "network_id", fmt.Sprintf("%#08x", snap.NetworkID), "nodes", len(snap.Nodes))
	return nil
}

// Shutdown removes the driver and the watcher and stops the dispatcher once
// the event in progress completes. It is safe to call more than once and
// from any phase; later calls return the first call's result.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.shutdownOnce.Do(func() {
		if c.lifecycle.Phase() == PhaseReady {
			if err := c.lifecycle.Transition(PhaseShuttingDown); err != nil {
				c.logger.Warn("lifecycle", "error", err)
			}
		}

		c.mu.Lock()
		driverAdded, watching := c.driverAdded, c.watching
		c.mu.Unlock()

		var errs []error
		if driverAdded {
			name := DriverName(c.cfg.Port)
			if err := c.manager.RemoveDriver(ctx, name); err != nil {
				errs = append(errs, fmt.Errorf("removing driver %s: %w", name, err))
			}
		}
		if watching {
			c.manager.RemoveWatcher(c.dispatcher)
		}
		c.dispatcher.Stop()

		c.shutdownErr = errors.Join(errs...)
		c.logger.Info("controller stopped")
	})
	return c.shutdownErr
}
