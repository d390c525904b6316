// Package ld2450 bridges HLK-LD2450 mmWave radar sensors to the bus.
//
// Each configured sensor is a serial device streaming 30-byte telemetry
// frames (up to 3 tracked targets). The bridge decodes the stream,
// debounces occupancy, publishes per-sensor snapshots, and derives an
// aggregate power intent for the display.
//
// # Architecture
//
//	serial bytes ──▶ DecodeFrame ──▶ Debouncer ──▶ snapshot payload
//	                                    │                │
//	                              raw occupancy      change hook
//	                                    │                │
//	                                    ▼                ▼
//	                              Manager aggregate   channel publish
//	                                    │
//	                                    ▼
//	                              power intent (display on/off)
//
// One goroutine per sensor owns its port: a blocking read with a short
// timeout, frame decode in arrival order, and directive execution between
// reads. Directives (VERSION, REBOOT, BAUD <n>, ...) are bracketed
// enable-config / operation / disable-config exchanges using the control
// framing, with each response logged in hex.
//
// # Occupancy Semantics
//
// Raw occupancy (`occupied`) is "any target in the latest frame" and
// follows the stream frame by frame. The debounced value
// (`occupied_delayed`) goes true immediately but only falls back after
// the configured off-delay passes with no target, so brief tracking
// dropouts do not flap downstream automations. Power intents come from
// raw occupancy aggregated across all sensors: the radar reacts in
// milliseconds, so the display switches on the moment anyone enters.
//
// # Wire Formats
//
// Telemetry: AA FF 03 00 header, 3 × 8-byte slots (int16-LE x, int16-LE
// y, 4 reserved), 55 CC tail. A slot is a target only if y ≠ 0.
//
// Control: FD FC FB FA header, 2-byte opcode plus arguments, 04 03 02 01
// footer.
//
// # Usage
//
//	manager := ld2450.NewManager(cfg.Radar)
//	manager.SetLogger(log)
//	manager.SetOnSnapshot(func(name string) { registry.Publish(name) })
//	manager.SetOnPowerIntent(func(on bool) { power.Apply(on) })
//
//	manager.Start()
//	defer manager.Stop()
//
//	for _, name := range manager.Sensors() {
//	    registry.Register(name,
//	        topic.GetterFunc(func() (string, error) { return manager.Payload(name) }),
//	        topic.SetterFunc(func(v string) error { return manager.Command(name, v) }))
//	}
package ld2450
