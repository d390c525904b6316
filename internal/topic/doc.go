// Package topic provides the channel registry for kioskd.
//
// A channel is one piece of device state exposed on the bus: the registry
// maps channel names to their handlers, drives the periodic diff-publish
// pass, and dispatches inbound set commands. It is the single place where
// "what the bus last saw" is tracked.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────┐
//	│                        Registry                            │
//	│                                                            │
//	│  name ─▶ entry{getter, setter, lastPublished}              │
//	│                                                            │
//	│  PublishAll ──▶ getter ──▶ changed? ──▶ Publisher          │
//	│  Dispatch ───▶ setter (errors logged, never propagated)    │
//	└────────────────────────────────────────────────────────────┘
//	         ▲                                    │
//	   <root>/+/set                        <root>/<channel>
//
// # Publish Semantics
//
// Each pass invokes every registered getter and publishes only values that
// differ from the last successfully published one. The recorded value
// advances only after the transport accepts the publish, so a failed
// publish is retried on the next pass instead of being marked current.
// ForceResync makes the next pass publish every channel unconditionally;
// the MQTT on-connect hook uses this so a reconnected broker sees full
// state.
//
// # Usage
//
//	registry := topic.NewRegistry(publisher)
//	registry.SetLogger(log)
//
//	registry.Register("backlight", topic.GetterFunc(display.Backlight), nil)
//	registry.Register("shell", topic.GetterFunc(runner.Current), topic.SetterFunc(runner.Dispatch))
//
//	go registry.Run(ctx, cfg.MQTT.GetPublishInterval())
//
// Components that change state outside the tick (radar snapshots, command
// completion) call Publish(name) to push the channel immediately.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Getter invocation and the
// publish bookkeeping happen under the registry lock; setters run outside
// it so a slow command handler cannot stall the publish pass.
package topic
