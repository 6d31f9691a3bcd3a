// Package mqtt publishes façade events to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Retained online/offline status with Last Will and Testament
//   - Connection health monitoring
//
// # Topics
//
// All topics share the configured prefix (default "sqlfacade"):
//
//	<prefix>/transaction/committed
//	<prefix>/transaction/rolled_back
//	<prefix>/system/status
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS=true) for anything beyond a local broker
//   - Event payloads never contain statement parameters
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.Events)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishEvent(client.Topics().Transaction("committed"), payload)
package mqtt
