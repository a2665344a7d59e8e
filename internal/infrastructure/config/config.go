package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Run modes for the controller's main loop.
const (
	// ModeConsole waits for ENTER on an empty line, saves the network
	// configuration and shuts down.
	ModeConsole = "console"

	// ModeTimed toggles the switch on a fixed schedule and then shuts down.
	ModeTimed = "timed"
)

// Config is the root configuration structure for the Gray Logic Z-Wave controller.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	ZWave    ZWaveConfig    `yaml:"zwave"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig controls the Prometheus /metrics and /healthz listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Addr returns the listen address for the metrics server.
func (m MetricsConfig) Addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// ZWaveConfig contains the Z-Wave network and controller settings.
type ZWaveConfig struct {
	// Port is the controller's serial device, or "usb" for a USB HID stick.
	Port string `yaml:"port"`

	ControllerNodeID int `yaml:"controller_node_id"`
	SensorNodeID     int `yaml:"sensor_node_id"`
	SwitchNodeID     int `yaml:"switch_node_id"`
	AssociationGroup int `yaml:"association_group"`

	// Mode selects the main loop: "console" or "timed".
	Mode string `yaml:"mode"`

	// StartupTimeout bounds the wait for the network to become ready.
	StartupTimeout time.Duration `yaml:"startup_timeout"`

	Demo    DemoConfig          `yaml:"demo"`
	Options DriverOptionsConfig `yaml:"options"`
	Gateway GatewayConfig       `yaml:"gateway"`
}

// DemoConfig controls the timed on/off sequence.
type DemoConfig struct {
	Iterations int           `yaml:"iterations"`
	Interval   time.Duration `yaml:"interval"`
}

// Network manager log levels used by the driver options.
const (
	LogLevelError  = 4
	LogLevelDetail = 8
	LogLevelDebug  = 9
)

// DriverOptionsConfig holds the network manager options applied once before
// the driver is added.
type DriverOptionsConfig struct {
	ConfigPath           string `yaml:"config_path"`
	UserPath             string `yaml:"user_path"`
	SaveLogLevel         int    `yaml:"save_log_level"`
	QueueLogLevel        int    `yaml:"queue_log_level"`
	DumpTrigger          int    `yaml:"dump_trigger"`
	PollInterval         int    `yaml:"poll_interval"` // milliseconds
	IntervalBetweenPolls bool   `yaml:"interval_between_polls"`
	ValidateValueChanges bool   `yaml:"validate_value_changes"`
	ConsoleOutput        bool   `yaml:"console_output"`
}

// GatewayConfig addresses the Z-Wave gateway daemon on the broker.
type GatewayConfig struct {
	Prefix         string        `yaml:"prefix"`
	Name           string        `yaml:"name"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_DATABASE_PATH, GRAYLOGIC_ZWAVE_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the default configuration with environment overrides
// applied. Used when no config file exists.
func Default() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config matching the reference installation:
// sensor on node 4, switch on node 3, controller on node 1.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Gray Logic",
		},
		Database: DatabaseConfig{
			Path:        "./data/zwave.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-zwave",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    9191,
		},
		ZWave: ZWaveConfig{
			Port:             "/dev/ttyUSB0",
			ControllerNodeID: 1,
			SensorNodeID:     4,
			SwitchNodeID:     3,
			AssociationGroup: 1,
			Mode:             ModeConsole,
			StartupTimeout:   2 * time.Minute,
			Demo: DemoConfig{
				Iterations: 5,
				Interval:   5 * time.Second,
			},
			Options: DriverOptionsConfig{
				ConfigPath:           "/usr/local/etc/openzwave",
				UserPath:             "../meta/",
				SaveLogLevel:         LogLevelDetail,
				QueueLogLevel:        LogLevelDebug,
				DumpTrigger:          LogLevelError,
				PollInterval:         5000,
				IntervalBetweenPolls: true,
				ValidateValueChanges: true,
				ConsoleOutput:        true,
			},
			Gateway: GatewayConfig{
				Prefix:         "zwave",
				Name:           "graylogic",
				RequestTimeout: 10 * time.Second,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("GRAYLOGIC_ZWAVE_PORT"); v != "" {
		cfg.ZWave.Port = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Every validation failure joined together, or nil if valid
func (c *Config) Validate() error {
	var errs []error

	if c.Site.ID == "" {
		errs = append(errs, errors.New("site.id is required"))
	}

	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, errors.New("mqtt.qos must be 0, 1, or 2"))
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		errs = append(errs, errors.New("metrics.port must be between 1 and 65535"))
	}

	errs = append(errs, c.ZWave.validate()...)

	return errors.Join(errs...)
}

func (z *ZWaveConfig) validate() []error {
	var errs []error

	if strings.TrimSpace(z.Port) == "" {
		errs = append(errs, errors.New("zwave.port is required"))
	}

	nodes := map[string]int{
		"zwave.controller_node_id": z.ControllerNodeID,
		"zwave.sensor_node_id":     z.SensorNodeID,
		"zwave.switch_node_id":     z.SwitchNodeID,
	}
	for name, id := range nodes {
		// Z-Wave node ids are 1..232.
		if id < 1 || id > 232 {
			errs = append(errs, fmt.Errorf("%s must be between 1 and 232", name))
		}
	}
	if z.SensorNodeID == z.SwitchNodeID {
		errs = append(errs, errors.New("zwave.sensor_node_id and zwave.switch_node_id must differ"))
	}
	if z.AssociationGroup < 1 || z.AssociationGroup > 255 {
		errs = append(errs, errors.New("zwave.association_group must be between 1 and 255"))
	}

	switch z.Mode {
	case ModeConsole:
	case ModeTimed:
		if z.Demo.Iterations < 1 {
			errs = append(errs, errors.New("zwave.demo.iterations must be at least 1"))
		}
		if z.Demo.Interval <= 0 {
			errs = append(errs, errors.New("zwave.demo.interval must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("zwave.mode must be %q or %q", ModeConsole, ModeTimed))
	}

	if z.StartupTimeout < 0 {
		errs = append(errs, errors.New("zwave.startup_timeout must not be negative"))
	}
	if z.Options.PollInterval < 0 {
		errs = append(errs, errors.New("zwave.options.poll_interval must not be negative"))
	}

	return errs
}
