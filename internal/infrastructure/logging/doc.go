// Package logging provides structured logging for the Gray Logic Z-Wave
// controller.
//
// This package wraps Go's standard log/slog package so every component
// (dispatcher, gateway, store, metrics server) logs with the same fields.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stderr"   # stdout, stderr, none
//
// Console mode reads ENTER from stdin, so "stderr" keeps log lines away
// from the prompt.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("driver ready", "network_id", fmt.Sprintf("%#08x", id))
//
// Never log MQTT credentials.
package logging
