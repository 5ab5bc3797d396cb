// Package mqtt provides the optional MQTT connection used by the runtime.
//
// The broker is an integration point, not a dependency of the engine:
//   - the mqtt_publish action publishes through Client.Publish
//   - the mqtt trigger subscribes through Client.Subscribe
//   - run events are mirrored to automator/event/{automation_id}/{type}
//   - online/offline status is retained on automator/system/status (with LWT)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.Event("backup-nightly", "complete")
//	client.PublishJSON(topic, payload, 1, false)
//
// TLS should be enabled for any broker outside localhost.
package mqtt
