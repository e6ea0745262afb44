// Package mqtt connects the service to the site MQTT broker.
//
// PC agents publish connect/disconnect events on periphcore/event/{lab}/{pc};
// the service publishes alerts on periphcore/alert/{lab}/{pc}, the latest
// reconciliation report (retained) on periphcore/report/{lab}/{pc}, and its
// own online/offline state on periphcore/system/status, which is also the
// Last Will topic.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllEvents(), 1,
//	    func(topic string, payload []byte) error {
//	        lab, pc, _ := mqtt.ParseEventTopic(topic)
//	        ...
//	    })
//
// The client reconnects with backoff and restores its subscriptions.
// Handlers run on paho goroutines; panics are recovered and logged.
package mqtt
