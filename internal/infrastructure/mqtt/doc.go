// Package mqtt provides MQTT client connectivity for the AV bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament registration for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The bridge uses MQTT as its integration bus: change events and health
// status flow out to the wider control system, and commands flow in from
// automation controllers that speak MQTT rather than HTTP.
//
//	Show Controllers ↔ MQTT Broker ↔ AV Bridge ↔ Processor Core
//
// Topic names come from the events package (events.Topics); this package
// only moves bytes. The Last Will is supplied by the caller at Connect time,
// typically the health reporter's offline payload.
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
//   - Reconnect: Exponential backoff between configured delays
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, &mqtt.Will{
//	    Topic:    topics.Health(),
//	    Payload:  lwtPayload,
//	    QoS:      1,
//	    Retained: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Receive commands from the bus
//	err = client.Subscribe(topics.CommandRequest(), 1,
//	    func(topic string, payload []byte) error {
//	        return handleCommand(payload)
//	    })
//
//	// Publish a change event
//	client.Publish(topics.ChangeGroup("mixer-ui"), body, 1, false)
package mqtt
