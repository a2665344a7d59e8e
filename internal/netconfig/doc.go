// Package netconfig persists the Z-Wave network configuration.
//
// Controller.SaveConfig asks the gateway to write its own configuration and
// then stores the registry snapshot here: every node the controller knew,
// in discovery order, with its value ids. At the next startup the stored
// snapshot is compared with what was rediscovered so missing nodes can be
// reported.
//
// This is configuration, not value history: no readings are stored.
//
// Usage:
//
//	store := netconfig.NewSQLiteStore(db.DB)
//	ctrl := zwave.NewController(zwave.ControllerOptions{Store: store, ...})
package netconfig
