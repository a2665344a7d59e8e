package zwave

import "slices"

// Node is the registry's record of one discovered device.
//
// A Node is created on node_added, gains and loses values through
// value_added/value_removed, and is dropped with all its values on
// node_removed. Nodes are owned by the Registry; callers outside the
// dispatcher goroutine only ever see NodeSnapshot copies.
type Node struct {
	NetworkID uint32
	NodeID    uint8
	Polled    bool

	values []ValueID
}

// Values returns a copy of the node's values in discovery order.
func (n *Node) Values() []ValueID {
	out := make([]ValueID, len(n.values))
	copy(out, n.values)
	return out
}

// Value returns the first value matching commandClass and index.
func (n *Node) Value(commandClass, index uint8) (ValueID, bool) {
	for _, v := range n.values {
		if v.Matches(commandClass, index) {
			return v, true
		}
	}
	return ValueID{}, false
}

// FirstValue returns the first value in the given command class, any index.
func (n *Node) FirstValue(commandClass uint8) (ValueID, bool) {
	for _, v := range n.values {
		if v.CommandClass == commandClass {
			return v, true
		}
	}
	return ValueID{}, false
}

// Snapshot returns an immutable copy of the node.
func (n *Node) Snapshot() NodeSnapshot {
	return NodeSnapshot{
		NetworkID: n.NetworkID,
		NodeID:    n.NodeID,
		Polled:    n.Polled,
		Values:    n.Values(),
	}
}

// NodeSnapshot is a point-in-time copy of a Node, safe to share between
// goroutines and to persist.
type NodeSnapshot struct {
	NetworkID uint32    `json:"network_id"`
	NodeID    uint8     `json:"node_id"`
	Polled    bool      `json:"polled"`
	Values    []ValueID `json:"values"`
}

// Registry is the ordered collection of known nodes.
//
// Nodes are unique by (network id, node id) and kept in discovery order.
// Registry does no locking of its own: it must only be used from the
// dispatcher goroutine (directly, or through Dispatcher.Do).
type Registry struct {
	nodes []*Node
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Find returns the node with the given key.
func (r *Registry) Find(networkID uint32, nodeID uint8) (*Node, bool) {
	for _, n := range r.nodes {
		if n.NetworkID == networkID && n.NodeID == nodeID {
			return n, true
		}
	}
	return nil, false
}

// Add appends a new node with no values and polling off.
//
// If a node with the same key is already registered, the existing node is
// returned unchanged together with ErrNodeExists.
func (r *Registry) Add(networkID uint32, nodeID uint8) (*Node, error) {
	if n, ok := r.Find(networkID, nodeID); ok {
		return n, ErrNodeExists
	}
	n := &Node{NetworkID: networkID, NodeID: nodeID}
	r.nodes = append(r.nodes, n)
	return n, nil
}

// Remove deletes the node and all its values. It reports whether a node
// was removed; removing an unknown node is a no-op.
func (r *Registry) Remove(networkID uint32, nodeID uint8) bool {
	for i, n := range r.nodes {
		if n.NetworkID == networkID && n.NodeID == nodeID {
			r.nodes = slices.Delete(r.nodes, i, i+1)
			return true
		}
	}
	return false
}

// AddValue appends id to the node's values unless an equal value is
// already present. It reports whether the value was added.
func (r *Registry) AddValue(n *Node, id ValueID) bool {
	for _, v := range n.values {
		if v == id {
			return false
		}
	}
	n.values = append(n.values, id)
	return true
}

// RemoveValue deletes the first value equal to id. It reports whether a
// value was removed.
func (r *Registry) RemoveValue(n *Node, id ValueID) bool {
	for i, v := range n.values {
		if v == id {
			n.values = slices.Delete(n.values, i, i+1)
			return true
		}
	}
	return false
}

// SetPolled records whether the manager is polling the node.
func (r *Registry) SetPolled(n *Node, polled bool) {
	n.Polled = polled
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	return len(r.nodes)
}

// Nodes returns snapshots of every node in discovery order.
func (r *Registry) Nodes() []NodeSnapshot {
	out := make([]NodeSnapshot, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n.Snapshot())
	}
	return out
}
