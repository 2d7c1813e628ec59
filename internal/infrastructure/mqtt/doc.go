// Package mqtt provides MQTT client connectivity for the sequencer daemon.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The daemon never opens the serial port itself. A separate serial bridge
// process owns the port and relays traffic over the broker, so the broker
// is both the command transport and the event bus:
//
//	Sequencer Daemon ↔ MQTT Broker ↔ Serial Bridge ↔ Device
//
// Command lines go out on ogsequence/device/command, response lines come
// back on ogsequence/device/response, and execution lifecycle events are
// published under ogsequence/execution/ for UI processes to observe.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Receive device response lines
//	err = client.Subscribe(mqtt.Topics{}.DeviceResponse(), 1,
//	    func(topic string, payload []byte) error {
//	        engine.AddResponse(string(payload))
//	        return nil
//	    })
//
//	// Send a raw command line
//	client.PublishString(mqtt.Topics{}.DeviceCommand(), "og_power-on", 1, false)
package mqtt
