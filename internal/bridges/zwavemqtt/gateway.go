package zwavemqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-zwave/internal/zwave"
)

// MQTTClient defines the MQTT operations the gateway needs.
// This allows mocking in tests.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Logger defines the logging interface for the gateway.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// GatewayOptions holds the dependencies for creating a Gateway.
type GatewayOptions struct {
	Config     Config
	MQTTClient MQTTClient
	Logger     Logger

	// NodeCount, when set, is reported in health messages.
	NodeCount func() int
}

// Gateway implements zwave.Manager against a Z-Wave gateway daemon over MQTT.
type Gateway struct {
	cfg    Config
	mqtt   MQTTClient
	logger Logger
	health *HealthReporter

	watchers   []zwave.Watcher
	watchersMu sync.RWMutex

	// pending maps request ids to the channel awaiting the response.
	pending   map[string]chan APIResponse
	pendingMu sync.Mutex

	events  chan zwave.Notification
	dropped atomic.Uint64

	driverOpen bool
	driverMu   sync.RWMutex

	started   bool
	startedMu sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewGateway creates a gateway. Call Start to subscribe to the daemon.
func NewGateway(opts GatewayOptions) (*Gateway, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("%w: MQTT client is required", ErrInvalidConfig)
	}

	cfg := opts.Config.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Gateway{
		cfg:     cfg,
		mqtt:    opts.MQTTClient,
		logger:  opts.Logger,
		pending: make(map[string]chan APIResponse),
		events:  make(chan zwave.Notification, defaultEventQueueSize),
		done:    make(chan struct{}),
	}
	g.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:   "zwave",
		Version:    cfg.Version,
		Interval:   cfg.HealthInterval,
		Publisher:  opts.MQTTClient,
		DriverOpen: g.DriverOpen,
		NodeCount:  opts.NodeCount,
	})
	if opts.Logger != nil {
		g.health.SetLogger(opts.Logger)
	}
	return g, nil
}

// Start subscribes to the daemon's event and response topics and begins
// forwarding notifications to watchers.
func (g *Gateway) Start(ctx context.Context) error {
	if err := g.health.PublishStarting(); err != nil {
		g.logError("failed to publish starting status", err)
	}

	eventTopic := EventTopic(g.cfg.Prefix, g.cfg.Name)
	if err := g.mqtt.Subscribe(eventTopic, 1, g.handleEvent); err != nil {
		return fmt.Errorf("subscribing to %s: %w", eventTopic, err)
	}

	respTopic := AllResponsesTopic(g.cfg.Prefix, g.cfg.Name)
	if err := g.mqtt.Subscribe(respTopic, 1, g.handleResponse); err != nil {
		return fmt.Errorf("subscribing to %s: %w", respTopic, err)
	}

	g.wg.Add(1)
	go g.deliverEvents()

	g.health.Start(ctx)

	g.startedMu.Lock()
	g.started = true
	g.startedMu.Unlock()

	g.logInfo("zwave gateway started", "prefix", g.cfg.Prefix, "gateway", g.cfg.Name)
	return nil
}

// Stop fails any pending API calls, stops event delivery and publishes a
// final "stopping" health status. Safe to call multiple times.
func (g *Gateway) Stop() {
	g.stopOnce.Do(func() {
		close(g.done)
		g.health.Stop()
		g.wg.Wait()
		g.logInfo("zwave gateway stopped")
	})
}

// DriverOpen reports whether the daemon has an open driver.
func (g *Gateway) DriverOpen() bool {
	g.driverMu.RLock()
	defer g.driverMu.RUnlock()
	return g.driverOpen
}

func (g *Gateway) setDriverOpen(open bool) {
	g.driverMu.Lock()
	g.driverOpen = open
	g.driverMu.Unlock()
}

// AddWatcher implements zwave.Manager.
func (g *Gateway) AddWatcher(w zwave.Watcher) {
	g.watchersMu.Lock()
	defer g.watchersMu.Unlock()
	g.watchers = append(g.watchers, w)
}

// RemoveWatcher implements zwave.Manager.
func (g *Gateway) RemoveWatcher(w zwave.Watcher) {
	g.watchersMu.Lock()
	defer g.watchersMu.Unlock()
	for i, existing := range g.watchers {
		if existing == w {
			g.watchers = append(g.watchers[:i], g.watchers[i+1:]...)
			return
		}
	}
}

// ApplyOptions sends the driver options to the daemon. The daemon only
// accepts options before the first addDriver.
func (g *Gateway) ApplyOptions(ctx context.Context, opts []Option) error {
	_, err := g.call(ctx, APISetOptions, opts)
	return err
}

// AddDriver implements zwave.Manager.
func (g *Gateway) AddDriver(ctx context.Context, port string) error {
	if _, err := g.call(ctx, APIAddDriver, port); err != nil {
		return err
	}
	g.setDriverOpen(true)
	return nil
}

// RemoveDriver implements zwave.Manager.
func (g *Gateway) RemoveDriver(ctx context.Context, name string) error {
	g.setDriverOpen(false)
	_, err := g.call(ctx, APIRemoveDriver, name)
	return err
}

// SetValue implements zwave.Manager.
func (g *Gateway) SetValue(ctx context.Context, id zwave.ValueID, on bool) error {
	_, err := g.call(ctx, APISetValue, id, on)
	return err
}

// GetValueAsBool implements zwave.Manager.
func (g *Gateway) GetValueAsBool(ctx context.Context, id zwave.ValueID) (bool, error) {
	result, err := g.call(ctx, APIGetValue, id)
	if err != nil {
		return false, err
	}

	var state bool
	if err := json.Unmarshal(result, &state); err != nil {
		return false, fmt.Errorf("%w: getValue result %q: %w", ErrInvalidMessage, result, err)
	}
	return state, nil
}

// AddAssociation implements zwave.Manager.
func (g *Gateway) AddAssociation(ctx context.Context, networkID uint32, nodeID, group, target uint8) error {
	_, err := g.call(ctx, APIAddAssociations, networkID, nodeID, group, []int{int(target)})
	return err
}

// RefreshNodeInfo implements zwave.Manager.
func (g *Gateway) RefreshNodeInfo(ctx context.Context, networkID uint32, nodeID uint8) error {
	_, err := g.call(ctx, APIRefreshInfo, networkID, nodeID)
	return err
}

// WriteConfig implements zwave.Manager.
func (g *Gateway) WriteConfig(ctx context.Context, networkID uint32) error {
	_, err := g.call(ctx, APIWriteConfig, networkID)
	return err
}

// call publishes one API request and waits for the matching response.
func (g *Gateway) call(ctx context.Context, api string, args ...any) (json.RawMessage, error) {
	g.startedMu.RLock()
	started := g.started
	g.startedMu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	select {
	case <-g.done:
		return nil, ErrStopped
	default:
	}

	if args == nil {
		args = []any{}
	}
	req := APIRequest{ID: uuid.NewString(), Args: args}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", api, err)
	}

	ch := make(chan APIResponse, 1)
	g.pendingMu.Lock()
	g.pending[req.ID] = ch
	g.pendingMu.Unlock()
	defer func() {
		g.pendingMu.Lock()
		delete(g.pending, req.ID)
		g.pendingMu.Unlock()
	}()

	if err := g.mqtt.Publish(RequestTopic(g.cfg.Prefix, g.cfg.Name, api), payload, 1, false); err != nil {
		return nil, fmt.Errorf("publishing %s request: %w", api, err)
	}

	timer := time.NewTimer(g.cfg.RequestTimeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if !resp.Success {
			return nil, fmt.Errorf("%w: %s: %s", ErrAPIFailed, api, resp.Message)
		}
		return resp.Result, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s after %v", ErrTimeout, api, g.cfg.RequestTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-g.done:
		return nil, ErrStopped
	}
}

// handleResponse routes an API response to the waiting call.
func (g *Gateway) handleResponse(topic string, payload []byte) {
	var resp APIResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		g.logWarn("invalid api response", "topic", topic, "error", err)
		return
	}

	g.pendingMu.Lock()
	ch, ok := g.pending[resp.ID]
	g.pendingMu.Unlock()
	if !ok {
		// Another client's request, or one that already timed out.
		return
	}

	select {
	case ch <- resp:
	default:
	}
}

// handleEvent decodes a notification and queues it for delivery.
func (g *Gateway) handleEvent(topic string, payload []byte) {
	var msg NotificationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		g.logWarn("invalid notification", "topic", topic, "error", err)
		return
	}
	n, err := msg.Notification()
	if err != nil {
		g.logWarn("invalid notification", "topic", topic, "error", err)
		return
	}

	if n.Type == zwave.NotificationDriverFailed {
		g.setDriverOpen(false)
	}

	// Never block here: the MQTT client routes messages from a single
	// goroutine, and API responses share it.
	select {
	case g.events <- n:
	case <-g.done:
	default:
		dropped := g.dropped.Add(1)
		g.logWarn("notification queue full, dropping",
			"type", string(n.Type),
			"node_id", n.NodeID,
			"dropped_total", dropped,
		)
	}
}

// deliverEvents forwards queued notifications to every watcher in order.
func (g *Gateway) deliverEvents() {
	defer g.wg.Done()

	for {
		select {
		case <-g.done:
			return
		case n := <-g.events:
			g.watchersMu.RLock()
			watchers := make([]zwave.Watcher, len(g.watchers))
			copy(watchers, g.watchers)
			g.watchersMu.RUnlock()

			for _, w := range watchers {
				w.Notify(n)
			}
		}
	}
}

func (g *Gateway) logInfo(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Info(msg, args...)
	}
}

func (g *Gateway) logWarn(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Warn(msg, args...)
	}
}

func (g *Gateway) logError(msg string, err error) {
	if g.logger != nil {
		g.logger.Error(msg, "error", err)
	}
}

// Ensure Gateway satisfies zwave.Manager.
var _ zwave.Manager = (*Gateway)(nil)
