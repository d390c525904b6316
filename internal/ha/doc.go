// Package ha builds Home Assistant MQTT discovery configs for the
// kiosk's channels.
//
// On every broker (re)connect the service publishes one retained config
// per entity under <prefix>/<component>/<node>/<object>/config, where
// the node id derives from the topic root. Home Assistant picks these
// up and materialises the device with its entities without any YAML on
// the HA side.
//
// Entity set (feature-gated through Options):
//
//	sensor         cpu_temp, cpu_load, disk_usage, chrome_tabs
//	text           url
//	select         panel, shell command
//	light          backlight, with brightness topics when enabled
//	binary_sensor  one occupancy flag per radar sensor
//
// All entities bind availability to the status topic, so the LWT flips
// the whole device to unavailable when the kiosk drops off the bus.
//
// Usage:
//
//	discovery := ha.New(cfg.Discovery, client.Topics())
//	discovery.SetLogger(logger)
//	discovery.Publish(client, ha.Options{
//		PanelNames:    panels.Names(),
//		ShellCommands: append([]string{shell.Idle}, runner.Commands()...),
//		Backlight:     cfg.Display.Backlight.Enabled,
//		Brightness:    cfg.Display.Brightness.Enabled,
//		System:        cfg.System.Enabled,
//		RadarSensors:  manager.Sensors(),
//	})
package ha
