package zwavemqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-zwave/internal/zwave"
)

// API names understood by the gateway daemon.
const (
	APIAddDriver       = "addDriver"
	APIRemoveDriver    = "removeDriver"
	APISetOptions      = "setOptions"
	APISetValue        = "setValue"
	APIGetValue        = "getValue"
	APIAddAssociations = "addAssociations"
	APIRefreshInfo     = "refreshInfo"
	APIWriteConfig     = "writeConfig"
)

// TopicPrefix is the base topic for Gray Logic messages.
const TopicPrefix = "graylogic"

// NotificationMessage is published by the daemon for every manager event.
// Topic: {prefix}/_EVENTS/{gateway}/notification
type NotificationMessage struct {
	// Type is the notification wire name (e.g. "value_changed").
	Type string `json:"type"`

	// NetworkID is the Z-Wave home id.
	NetworkID uint32 `json:"network_id"`

	// NodeID is zero for driver-level events.
	NodeID uint8 `json:"node_id"`

	// Value is present for value_* events.
	Value *zwave.ValueID `json:"value,omitempty"`
}

// Notification converts the message to the core representation.
func (m NotificationMessage) Notification() (zwave.Notification, error) {
	if m.Type == "" {
		return zwave.Notification{}, fmt.Errorf("%w: notification without type", ErrInvalidMessage)
	}

	n := zwave.Notification{
		Type:      zwave.NotificationType(m.Type),
		NetworkID: m.NetworkID,
		NodeID:    m.NodeID,
	}
	if m.Value != nil {
		n.Value = *m.Value
	}

	if n.Type.IsValueEvent() {
		if m.Value == nil {
			return zwave.Notification{}, fmt.Errorf("%w: %s without value", ErrInvalidMessage, m.Type)
		}
		if !n.ValueBelongsToNode() {
			return zwave.Notification{}, fmt.Errorf("%w: %s for node %d carries value %s",
				ErrInvalidMessage, m.Type, m.NodeID, n.Value)
		}
	}
	return n, nil
}

// APIRequest is sent to the daemon to invoke one API.
// Topic: {prefix}/_CLIENTS/{gateway}/api/{name}/set
type APIRequest struct {
	// ID correlates the response with this request.
	ID string `json:"id"`

	// Args are the positional API arguments.
	Args []any `json:"args"`
}

// APIResponse is the daemon's answer to an APIRequest.
// Topic: {prefix}/_CLIENTS/{gateway}/api/{name}
type APIResponse struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// Option is one driver option passed to setOptions.
type Option struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthOffline  HealthStatus = "offline"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports the bridge's operational status.
// Topic: graylogic/health/zwave
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge        string       `json:"bridge"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        HealthStatus `json:"status"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`

	// DriverOpen is true between a successful addDriver and removeDriver
	// or a driver_failed event.
	DriverOpen bool `json:"driver_open"`

	// NodesKnown is the number of nodes in the registry.
	NodesKnown int `json:"nodes_known"`

	Reason string `json:"reason,omitempty"`
}

// NewHealthMessage creates a health status message.
func NewHealthMessage(bridgeID, version string, status HealthStatus, driverOpen bool, nodes int, startTime time.Time) HealthMessage {
	return HealthMessage{
		Bridge:        bridgeID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       version,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		DriverOpen:    driverOpen,
		NodesKnown:    nodes,
	}
}

// Topic helpers

// EventTopic returns the topic the daemon publishes notifications on.
// Example: zwave/_EVENTS/graylogic/notification
func EventTopic(prefix, gateway string) string {
	return fmt.Sprintf("%s/_EVENTS/%s/notification", prefix, gateway)
}

// RequestTopic returns the topic an API request is published on.
// Example: zwave/_CLIENTS/graylogic/api/setValue/set
func RequestTopic(prefix, gateway, api string) string {
	return fmt.Sprintf("%s/_CLIENTS/%s/api/%s/set", prefix, gateway, api)
}

// ResponseTopic returns the topic the daemon answers an API on.
// Example: zwave/_CLIENTS/graylogic/api/setValue
func ResponseTopic(prefix, gateway, api string) string {
	return fmt.Sprintf("%s/_CLIENTS/%s/api/%s", prefix, gateway, api)
}

// AllResponsesTopic returns the wildcard subscription for every API response.
// Example: zwave/_CLIENTS/graylogic/api/+
func AllResponsesTopic(prefix, gateway string) string {
	return ResponseTopic(prefix, gateway, "+")
}

// HealthTopic returns the MQTT topic for bridge health.
// Example: graylogic/health/zwave
func HealthTopic() string {
	return fmt.Sprintf("%s/health/zwave", TopicPrefix)
}
