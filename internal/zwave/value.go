package zwave

import "fmt"

// Command classes used by the sensor → switch coupling.
const (
	// CommandClassSwitchBinary is the "switch binary" command class (0x25).
	CommandClassSwitchBinary uint8 = 0x25

	// CommandClassSensorBinary is the "sensor binary" command class (0x30).
	CommandClassSensorBinary uint8 = 0x30
)

// ValueID identifies one reportable or settable datum on a node.
//
// ValueIDs are created by the network manager and announced through
// value_added notifications. The struct is comparable; two ValueIDs are the
// same value when all four fields match.
type ValueID struct {
	NetworkID    uint32 `json:"network_id"`
	NodeID       uint8  `json:"node_id"`
	CommandClass uint8  `json:"command_class"`
	Index        uint8  `json:"index"`
}

// Matches reports whether the value belongs to the given command class and index.
func (v ValueID) Matches(commandClass, index uint8) bool {
	return v.CommandClass == commandClass && v.Index == index
}

// String returns a compact form such as "0xc0ffee01/4/0x30/0".
func (v ValueID) String() string {
	return fmt.Sprintf("%#08x/%d/%#02x/%d", v.NetworkID, v.NodeID, v.CommandClass, v.Index)
}
