// Package metrics exposes the controller's Prometheus metrics and an HTTP
// health endpoint.
//
// Collector implements zwave.Metrics. It counts notifications by type and
// sensor reactions by outcome, tracks the number of registered nodes and
// records how long the dispatcher took to handle each notification.
//
// Server is an optional listener (disabled by default) serving:
//
//	GET /metrics  Prometheus exposition format
//	GET /healthz  JSON: lifecycle phase, node count, dependency checks
//
// /healthz answers 503 until the controller is ready and while any
// dependency check fails.
package metrics
