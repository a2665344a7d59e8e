// Gray Logic Z-Wave - motion-triggered switch controller
//
// This is the main entry point for the Gray Logic Z-Wave controller. It
// drives a Z-Wave network through a gateway daemon on the MQTT broker:
//   - A binary sensor (motion detector) reports state changes
//   - A binary switch follows the sensor
//   - Node configuration is stored in SQLite on exit
//
// Two run modes are supported. In console mode the controller reacts to the
// sensor until ENTER is pressed on an empty line, then saves the network
// configuration. In timed mode it toggles the switch on a fixed schedule.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/gray-logic-zwave/migrations"

	"github.com/nerrad567/gray-logic-zwave/internal/bridges/zwavemqtt"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-zwave/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-zwave/internal/netconfig"
	"github.com/nerrad567/gray-logic-zwave/internal/zwave"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Z-Wave",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := metrics.NewCollector(registry)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	// The controller is created after the gateway, so the gateway's health
	// reporter reads node counts through this pointer.
	var ctrlRef atomic.Pointer[zwave.Controller]
	nodeCount := func() int {
		if c := ctrlRef.Load(); c != nil {
			return c.Dispatcher().NodeCount()
		}
		return 0
	}

	gateway, err := zwavemqtt.NewGateway(zwavemqtt.GatewayOptions{
		Config: zwavemqtt.Config{
			Prefix:         cfg.ZWave.Gateway.Prefix,
			Name:           cfg.ZWave.Gateway.Name,
			RequestTimeout: cfg.ZWave.Gateway.RequestTimeout,
			Version:        version,
		},
		MQTTClient: &mqttBridgeAdapter{client: mqttClient},
		Logger:     log.Component("zwavemqtt"),
		NodeCount:  nodeCount,
	})
	if err != nil {
		return fmt.Errorf("creating Z-Wave gateway: %w", err)
	}
	if startErr := gateway.Start(ctx); startErr != nil {
		return fmt.Errorf("starting Z-Wave gateway: %w", startErr)
	}
	defer func() {
		log.Info("stopping Z-Wave gateway")
		gateway.Stop()
	}()

	if optErr := gateway.ApplyOptions(ctx, driverOptions(cfg.ZWave.Options)); optErr != nil {
		return fmt.Errorf("applying driver options: %w", optErr)
	}
	log.Info("driver options applied", "poll_interval_ms", cfg.ZWave.Options.PollInterval)

	ctrl := zwave.NewController(zwave.ControllerOptions{
		Config: zwave.ControllerConfig{
			Port:           cfg.ZWave.Port,
			Topology:       topologyFromConfig(cfg.ZWave),
			StartupTimeout: cfg.ZWave.StartupTimeout,
		},
		Manager: gateway,
		Store:   netconfig.NewSQLiteStore(db.DB),
		Logger:  log.Component("zwave"),
		Metrics: collector,
	})
	ctrlRef.Store(ctrl)
	// Shutdown runs before the gateway stops so RemoveDriver can still
	// reach the daemon.
	defer func() {
		if shutdownErr := ctrl.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			log.Error("error shutting down controller", "error", shutdownErr)
		}
	}()

	if cfg.Metrics.Enabled {
		srv, srvErr := startMetricsServer(ctx, cfg, registry, ctrl, db, mqttClient, log)
		if srvErr != nil {
			return srvErr
		}
		defer func() {
			log.Info("stopping metrics server")
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing metrics server", "error", closeErr)
			}
		}()
	}

	log.Info("waiting for Z-Wave network", "port", cfg.ZWave.Port, "timeout", cfg.ZWave.StartupTimeout)
	if startErr := ctrl.Start(ctx); startErr != nil {
		if ctx.Err() != nil {
			log.Info("shutdown signal received before network was ready")
			return nil
		}
		return fmt.Errorf("starting controller: %w", startErr)
	}
	log.Info("Z-Wave network ready", "nodes", ctrl.Dispatcher().NodeCount())

	switch cfg.ZWave.Mode {
	case config.ModeTimed:
		err = runTimed(ctx, ctrl, cfg.ZWave.Demo, log)
	default:
		err = runConsole(ctx, ctrl, log)
	}
	if err != nil {
		return err
	}

	// Deferred calls run in reverse order:
	// 1. Metrics server (if enabled)
	// 2. Controller (driver and watcher removed)
	// 3. Gateway
	// 4. MQTT
	// 5. Database

	log.Info("Gray Logic Z-Wave stopped")
	return nil
}

// runTimed toggles the switch on the configured schedule. A signal during the
// sequence ends it early without error.
func runTimed(ctx context.Context, ctrl *zwave.Controller, demo config.DemoConfig, log *logging.Logger) error {
	log.Info("starting on/off sequence", "iterations", demo.Iterations, "interval", demo.Interval)

	err := ctrl.RunDemo(ctx, demo.Iterations, demo.Interval)
	switch {
	case err == nil:
		log.Info("on/off sequence complete")
		return nil
	case errors.Is(err, context.Canceled):
		log.Info("shutdown signal received, sequence interrupted")
		return nil
	default:
		return fmt.Errorf("running on/off sequence: %w", err)
	}
}

// runConsole waits for the operator. An empty line saves the network
// configuration; end of input, Ctrl+C or a signal exits without saving.
func runConsole(ctx context.Context, ctrl *zwave.Controller, log *logging.Logger) error {
	rl, err := newConsole()
	if err != nil {
		return fmt.Errorf("opening console: %w", err)
	}

	log.Info("press ENTER to save the network configuration and exit")
	save := waitForExit(ctx, rl)
	if !save {
		log.Info("exiting without saving network configuration")
		return nil
	}

	if err := ctrl.SaveConfig(ctx); err != nil {
		return fmt.Errorf("saving network config: %w", err)
	}
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_ZWAVE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_ZWAVE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig loads path, falling back to built-in defaults when the default
// path does not exist. An explicitly configured path must exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == defaultConfigPath && errors.Is(err, os.ErrNotExist) {
		return config.Default()
	}
	return nil, err
}

// topologyFromConfig converts validated config node ids to a zwave.Topology.
func topologyFromConfig(z config.ZWaveConfig) zwave.Topology {
	return zwave.Topology{
		ControllerNodeID: uint8(z.ControllerNodeID), //nolint:gosec // validated 1..232
		SensorNodeID:     uint8(z.SensorNodeID),     //nolint:gosec // validated 1..232
		SwitchNodeID:     uint8(z.SwitchNodeID),     //nolint:gosec // validated 1..232
		AssociationGroup: uint8(z.AssociationGroup), //nolint:gosec // validated 1..255
	}
}

// driverOptions lists the network manager options in the order the daemon
// applies them.
func driverOptions(o config.DriverOptionsConfig) []zwavemqtt.Option {
	return []zwavemqtt.Option{
		{Name: "ConfigPath", Value: o.ConfigPath},
		{Name: "UserPath", Value: o.UserPath},
		{Name: "SaveLogLevel", Value: o.SaveLogLevel},
		{Name: "QueueLogLevel", Value: o.QueueLogLevel},
		{Name: "DumpTrigger", Value: o.DumpTrigger},
		{Name: "PollInterval", Value: o.PollInterval},
		{Name: "IntervalBetweenPolls", Value: o.IntervalBetweenPolls},
		{Name: "ValidateValueChanges", Value: o.ValidateValueChanges},
		{Name: "ConsoleOutput", Value: o.ConsoleOutput},
	}
}

// startMetricsServer serves /metrics and /healthz on the configured address.
func startMetricsServer(
	ctx context.Context,
	cfg *config.Config,
	gatherer prometheus.Gatherer,
	ctrl *zwave.Controller,
	db *database.DB,
	mqttClient *mqtt.Client,
	log *logging.Logger,
) (*metrics.Server, error) {
	srv, err := metrics.NewServer(metrics.Deps{
		Addr:      cfg.Metrics.Addr(),
		Gatherer:  gatherer,
		Phase:     func() string { return string(ctrl.Phase()) },
		NodeCount: ctrl.Dispatcher().NodeCount,
		Checks: map[string]metrics.HealthChecker{
			"database": db,
			"mqtt":     mqttClient,
		},
		Logger:  log.Component("metrics"),
		Version: version,
	})
	if err != nil {
		return nil, fmt.Errorf("creating metrics server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting metrics server: %w", err)
	}
	log.Info("metrics server listening", "addr", srv.Addr())
	return srv, nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the gateway's
// MQTTClient interface. The difference is the Subscribe handler signature:
// - Infrastructure mqtt: func(topic, payload []byte) error
// - Gateway expects: func(topic, payload []byte)
type mqttBridgeAdapter struct {
	client interface {
		Publish(topic string, payload []byte, qos byte, retained bool) error
		Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
		IsConnected() bool
	}
}

// Publish implements zwavemqtt.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements zwavemqtt.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements zwavemqtt.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
