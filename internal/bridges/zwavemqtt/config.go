package zwavemqtt

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Default gateway settings.
const (
	DefaultPrefix         = "zwave"
	DefaultGatewayName    = "graylogic"
	DefaultRequestTimeout = 10 * time.Second
	DefaultHealthInterval = 30 * time.Second

	// defaultEventQueueSize bounds notifications buffered between the broker
	// callback and watcher delivery.
	defaultEventQueueSize = 1024
)

// Config holds the gateway settings.
type Config struct {
	// Prefix is the first topic level used by the daemon.
	Prefix string

	// Name is the gateway name used in the daemon's topics.
	Name string

	// RequestTimeout bounds each API call.
	RequestTimeout time.Duration

	// HealthInterval is how often bridge health is published.
	HealthInterval time.Duration

	// Version is reported in health messages.
	Version string
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.Name == "" {
		c.Name = DefaultGatewayName
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.HealthInterval == 0 {
		c.HealthInterval = DefaultHealthInterval
	}
	return c
}

// Validate checks the configuration after defaults are applied.
func (c Config) Validate() error {
	var errs []error

	for field, v := range map[string]string{"prefix": c.Prefix, "name": c.Name} {
		if strings.ContainsAny(v, "+#/") {
			errs = append(errs, fmt.Errorf("%s %q must be a single topic level", field, v))
		}
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, errors.New("request timeout must not be negative"))
	}
	if c.HealthInterval < 0 {
		errs = append(errs, errors.New("health interval must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
