package zwave

// NotificationType identifies the kind of asynchronous event reported by the
// network manager. The string values are the wire names used by the gateway.
type NotificationType string

// Notification types handled (or deliberately ignored) by the Dispatcher.
const (
	NotificationValueAdded   NotificationType = "value_added"
	NotificationValueRemoved NotificationType = "value_removed"
	NotificationValueChanged NotificationType = "value_changed"

	NotificationNodeAdded   NotificationType = "node_added"
	NotificationNodeRemoved NotificationType = "node_removed"
	NotificationNodeEvent   NotificationType = "node_event"
	NotificationGroup       NotificationType = "group"

	NotificationPollingDisabled NotificationType = "polling_disabled"
	NotificationPollingEnabled  NotificationType = "polling_enabled"

	NotificationDriverReady  NotificationType = "driver_ready"
	NotificationDriverFailed NotificationType = "driver_failed"
	NotificationDriverReset  NotificationType = "driver_reset"

	NotificationAwakeNodesQueried       NotificationType = "awake_nodes_queried"
	NotificationAllNodesQueried         NotificationType = "all_nodes_queried"
	NotificationAllNodesQueriedSomeDead NotificationType = "all_nodes_queried_some_dead"

	NotificationNodeNaming          NotificationType = "node_naming"
	NotificationNodeProtocolInfo    NotificationType = "node_protocol_info"
	NotificationNodeQueriesComplete NotificationType = "node_queries_complete"
	NotificationGeneric             NotificationType = "notification"
)

// knownTypes lists every type the dispatcher recognises.
var knownTypes = map[NotificationType]bool{
	NotificationValueAdded:              true,
	NotificationValueRemoved:            true,
	NotificationValueChanged:            true,
	NotificationNodeAdded:               true,
	NotificationNodeRemoved:             true,
	NotificationNodeEvent:               true,
	NotificationGroup:                   true,
	NotificationPollingDisabled:         true,
	NotificationPollingEnabled:          true,
	NotificationDriverReady:             true,
	NotificationDriverFailed:            true,
	NotificationDriverReset:             true,
	NotificationAwakeNodesQueried:       true,
	NotificationAllNodesQueried:         true,
	NotificationAllNodesQueriedSomeDead: true,
	NotificationNodeNaming:              true,
	NotificationNodeProtocolInfo:        true,
	NotificationNodeQueriesComplete:     true,
	NotificationGeneric:                 true,
}

// IsKnown reports whether t is one of the recognised notification types.
func (t NotificationType) IsKnown() bool {
	return knownTypes[t]
}

// IsReadiness reports whether t signals that initial node interrogation has
// completed. Some nodes may be dead; the network is still usable.
func (t NotificationType) IsReadiness() bool {
	switch t {
	case NotificationAwakeNodesQueried, NotificationAllNodesQueried, NotificationAllNodesQueriedSomeDead:
		return true
	default:
		return false
	}
}

// IsValueEvent reports whether t carries a ValueID.
func (t NotificationType) IsValueEvent() bool {
	switch t {
	case NotificationValueAdded, NotificationValueRemoved, NotificationValueChanged:
		return true
	default:
		return false
	}
}

// Notification is one asynchronous event delivered by the network manager.
//
// NodeID is zero for driver-level events. Value is only meaningful for the
// value_* types.
type Notification struct {
	Type      NotificationType
	NetworkID uint32
	NodeID    uint8
	Value     ValueID
}

// ValueBelongsToNode reports whether Value is scoped to the network and
// node the notification names. A missing (zero) value never belongs.
func (n Notification) ValueBelongsToNode() bool {
	return n.Value.NetworkID == n.NetworkID && n.Value.NodeID == n.NodeID
}

// Watcher receives notifications from a Manager.
//
// Notify is called from the manager's goroutines and must not block for long.
type Watcher interface {
	Notify(n Notification)
}
