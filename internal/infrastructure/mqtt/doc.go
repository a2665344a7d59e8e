// Package mqtt provides the broker connection for the Gray Logic Z-Wave
// controller.
//
// This package manages:
//   - Connection to Mosquitto with auto-reconnect
//   - Publishing with QoS guarantees and topic validation
//   - Subscriptions with wildcard support, restored after reconnect
//   - A retained online/offline status per client, with the offline
//     status registered as Last Will and Testament
//
// # Architecture
//
// The controller never talks to the Z-Wave stick directly. A gateway
// daemon owns the serial port and exposes it over MQTT; this client
// carries the gateway's API requests, responses and notifications.
//
//	zwave.Controller ↔ zwavemqtt.Gateway ↔ mqtt.Client ↔ Broker ↔ gateway daemon
//
// # Ordering
//
// paho delivers messages for all subscriptions on a single goroutine in
// arrival order. Handlers must return quickly; zwavemqtt queues events
// rather than processing them inline.
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS) when the broker is not on localhost
//   - Supply credentials through GRAYLOGIC_MQTT_USERNAME/PASSWORD
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("zwave/_EVENTS/graylogic/notification", 1,
//	    func(topic string, payload []byte) error {
//	        return handle(payload)
//	    })
package mqtt
