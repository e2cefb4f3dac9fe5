// Package mqtt provides MQTT client connectivity for LumenSync.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// LumenSync uses MQTT as its remote control surface: home automation
// systems (Home Assistant, Node-RED, openHAB) publish commands to the
// broker and consume retained state, while the LAN controller does the
// actual device I/O over UDP.
//
//	Automation / Dashboards ↔ MQTT Broker ↔ LumenSync Controller ↔ LAN Devices
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
//	// Subscribe to all inbound device commands
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a device command
//	topic := mqtt.Topics{}.DeviceCommand("7A:B1:C4:38:2E:5F:11:09")
//	client.Publish(topic, []byte(`{"power":true}`), 1, false)
package mqtt
