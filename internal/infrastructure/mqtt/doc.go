// Package mqtt provides MQTT client connectivity for kioskd.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Topic layout under a configurable root
//
// # Architecture
//
// kioskd exposes every piece of device state as a channel under a single
// topic root. Each channel publishes its state to <root>/<channel> and
// accepts commands on <root>/<channel>/set. A retained <root>/status
// topic carries ONLINE/OFFLINE availability.
//
//	Home Assistant ↔ MQTT Broker ↔ kioskd ↔ display / radar / browser
//
// The Topics type builds these paths so the layout lives in one place.
//
// # Resilience
//
//   - Auto-reconnect with exponential backoff (configurable 1s-60s)
//   - Subscriptions are tracked and restored after reconnect
//   - LWT publishes retained OFFLINE if the client dies uncleanly
//   - The on-connect callback lets the channel registry force a full
//     state resync after every (re)connect
//
// # Concurrency
//
// All methods are safe for concurrent use. Outbound publishes are
// serialised through a single mutex because several goroutines publish
// independently (the periodic publisher, radar snapshot nudges, command
// completion hooks).
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// One wildcard subscription covers every channel's command topic
//	err = client.Subscribe(client.Topics().SetWildcard(), 0,
//	    func(topic string, payload []byte) error {
//	        channel, ok := client.Topics().ChannelFromSet(topic)
//	        if !ok {
//	            return nil
//	        }
//	        return registry.Dispatch(channel, payload)
//	    })
//
//	// Publish channel state
//	client.PublishString(client.Topics().State("backlight"), "ON", 0, false)
package mqtt
