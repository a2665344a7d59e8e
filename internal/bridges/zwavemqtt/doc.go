// Package zwavemqtt implements the Z-Wave network manager over MQTT.
//
// A gateway daemon owns the USB/serial Z-Wave stick and runs the network
// manager library. This package talks to that daemon through the broker and
// exposes it to the controller as a zwave.Manager.
//
// # Architecture
//
//	┌─────────────────┐          ┌─────────────────┐   serial   ┌──────────┐
//	│   zwave core    │  Manager │    Gateway      │    MQTT    │ gateway  │
//	│  (Dispatcher)   │◄────────►│   (this pkg)    │◄──────────►│  daemon  │──► Z-Wave mesh
//	└─────────────────┘          └─────────────────┘            └──────────┘
//
// # Topics
//
// With the default prefix "zwave" and gateway name "graylogic":
//
//	zwave/_EVENTS/graylogic/notification          events from the daemon
//	zwave/_CLIENTS/graylogic/api/{name}/set       API request  (this pkg → daemon)
//	zwave/_CLIENTS/graylogic/api/{name}           API response (daemon → this pkg)
//	graylogic/health/zwave                        bridge health (retained)
//
// Requests carry a random UUID that the daemon echoes in its response, so any
// number of calls can be outstanding at once.
//
// # Ordering
//
// Notifications are forwarded to watchers from a single goroutine in the order
// the broker delivered them. They are queued inside the gateway first, so a
// watcher that is busy waiting on an API response never stalls delivery of
// that response.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
package zwavemqtt
