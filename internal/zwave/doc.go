// Package zwave implements the node/value registry and notification dispatch
// engine for the Gray Logic Z-Wave controller.
//
// The package keeps an in-memory model of the nodes discovered on a Z-Wave
// network and the values each node reports, waits for the network manager to
// finish its initial interrogation, and couples a binary sensor to a binary
// power switch: every value change on the sensor re-drives the switch to the
// sensor's current state.
//
// # Architecture
//
//	┌──────────────────┐  Notify()   ┌──────────────────────────────────────┐
//	│  Network manager │────────────▶│            Dispatcher                │
//	│  (zwavemqtt      │             │  inbox ──▶ single goroutine          │
//	│   Gateway)       │◀────────────│   • Registry  (nodes + values)       │
//	└──────────────────┘  SetValue   │   • Session   (network id, failure)  │
//	                      GetValue   │   • ActionDriver (sensor → switch)   │
//	                      ...        │   • StartupGate.Signal()             │
//	                                 └──────────────────────────────────────┘
//	                                                  │
//	                                                  ▼
//	                                 ┌──────────────────────────────────────┐
//	                                 │  Controller (main goroutine)         │
//	                                 │  Start → Wait gate → Ready → Shutdown│
//	                                 └──────────────────────────────────────┘
//
// # Concurrency
//
// The network manager delivers notifications from its own goroutines. They are
// queued and handled one at a time, in delivery order, by the dispatcher
// goroutine. The Registry and Session are only ever touched from that
// goroutine, so neither type does any locking. Code outside the dispatcher
// (the timed demonstration loop, configuration snapshots) reaches the registry
// through Dispatcher.Do, which runs a function on the same goroutine.
//
// # Errors
//
// Notifications that refer to unknown nodes are stale and silently ignored.
// A failed value lookup aborts only the reaction for the current event and is
// reported as ErrLookupFailure. A driver failure, or no readiness report
// before the startup timeout, surfaces from Controller.Start as
// ErrInitializationFailed.
package zwave
