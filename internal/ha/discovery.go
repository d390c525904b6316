package ha

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/displaygrid/kioskd/internal/infrastructure/config"
	"github.com/displaygrid/kioskd/internal/infrastructure/mqtt"
)

// Availability payloads carried on the status topic.
const (
	payloadAvailable    = "ONLINE"
	payloadNotAvailable = "OFFLINE"
)

// Logger defines the logging interface used by the discovery publisher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// RetainedPublisher publishes retained messages. The MQTT client
// satisfies this.
type RetainedPublisher interface {
	PublishRetained(topic string, payload []byte) error
}

// Options carries the runtime-derived inputs for the entity set. Empty
// slices and false flags leave the corresponding entities out.
type Options struct {
	// PanelNames are the select options for the panel channel, in
	// display form.
	PanelNames []string

	// ShellCommands are the select options for the shell channel,
	// idle sentinel included.
	ShellCommands []string

	// Backlight includes the light entity; Brightness adds the
	// brightness topics to it.
	Backlight  bool
	Brightness bool

	// System includes the telemetry sensor entities.
	System bool

	// RadarSensors lists the channel names that each get an occupancy
	// binary_sensor.
	RadarSensors []string
}

// Entity is one discovery config ready to publish.
type Entity struct {
	Component string // homeassistant component: sensor, select, light, ...
	ObjectID  string // topic level before /config, unique per component
	Config    any    // marshals to the JSON payload
}

// Discovery builds the retained MQTT discovery configs announcing the
// kiosk's channels to Home Assistant. The entity set follows the
// feature toggles; every entity binds its availability to the status
// topic so the whole device flips unavailable with the LWT.
type Discovery struct {
	cfg    config.DiscoveryConfig
	topics mqtt.Topics
	node   string
	device Device
	logger Logger
}

// New creates a discovery builder for the given topic layout.
func New(cfg config.DiscoveryConfig, topics mqtt.Topics) *Discovery {
	node := nodeID(topics.Root)
	return &Discovery{
		cfg:    cfg,
		topics: topics,
		node:   node,
		device: Device{
			Identifiers:  []string{node},
			Name:         cfg.DeviceName,
			Manufacturer: "displaygrid",
			Model:        "kioskd",
		},
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the discovery publisher.
func (d *Discovery) SetLogger(logger Logger) {
	d.logger = logger
}

// Entities assembles the discovery configs for the feature set in opts.
func (d *Discovery) Entities(opts Options) []Entity {
	var entities []Entity

	if opts.System {
		entities = append(entities, d.systemSensors()...)
	}

	if len(opts.PanelNames) > 0 {
		entities = append(entities, Entity{
			Component: "text",
			ObjectID:  "url",
			Config: TextConfig{
				Name:                "URL",
				UniqueID:            d.uniqueID("url"),
				StateTopic:          d.topics.State("url"),
				CommandTopic:        d.topics.Set("url"),
				AvailabilityTopic:   d.topics.Status(),
				PayloadAvailable:    payloadAvailable,
				PayloadNotAvailable: payloadNotAvailable,
				Device:              d.device,
			},
		}, Entity{
			Component: "select",
			ObjectID:  "panel",
			Config: SelectConfig{
				Name:                "Panel",
				UniqueID:            d.uniqueID("panel"),
				StateTopic:          d.topics.State("panel"),
				CommandTopic:        d.topics.Set("panel"),
				Options:             opts.PanelNames,
				AvailabilityTopic:   d.topics.Status(),
				PayloadAvailable:    payloadAvailable,
				PayloadNotAvailable: payloadNotAvailable,
				Device:              d.device,
			},
		})
	}

	if len(opts.ShellCommands) > 0 {
		entities = append(entities, Entity{
			Component: "select",
			ObjectID:  "shell",
			Config: SelectConfig{
				Name:                "shell command",
				UniqueID:            d.uniqueID("shell"),
				StateTopic:          d.topics.State("shell"),
				CommandTopic:        d.topics.Set("shell"),
				Options:             opts.ShellCommands,
				AvailabilityTopic:   d.topics.Status(),
				PayloadAvailable:    payloadAvailable,
				PayloadNotAvailable: payloadNotAvailable,
				Device:              d.device,
				Icon:                "mdi:console",
			},
		})
	}

	if opts.Backlight {
		// HA lights require a command topic. Power switching actually
		// flows through the shell command aliases; the backlight channel
		// itself is report-only and drops inbound commands.
		light := LightConfig{
			Name:                "backlight",
			UniqueID:            d.uniqueID("backlight"),
			StateTopic:          d.topics.State("backlight"),
			CommandTopic:        d.topics.Set("backlight"),
			PayloadOn:           "ON",
			PayloadOff:          "OFF",
			AvailabilityTopic:   d.topics.Status(),
			PayloadAvailable:    payloadAvailable,
			PayloadNotAvailable: payloadNotAvailable,
			Device:              d.device,
		}
		if opts.Brightness {
			light.BrightnessStateTopic = d.topics.State("brightness_percent")
			light.BrightnessCommandTopic = d.topics.Set("brightness_percent")
			light.BrightnessScale = 100
		}
		entities = append(entities, Entity{
			Component: "light",
			ObjectID:  "backlight",
			Config:    light,
		})
	}

	for _, sensor := range opts.RadarSensors {
		entities = append(entities, Entity{
			Component: "binary_sensor",
			ObjectID:  sensor + "_occupancy",
			Config: BinarySensorConfig{
				Name:                sensor + " occupancy",
				UniqueID:            d.uniqueID(sensor + "_occupancy"),
				StateTopic:          d.topics.State(sensor),
				ValueTemplate:       "{{ 'ON' if value_json.occupied_delayed else 'OFF' }}",
				PayloadOn:           "ON",
				PayloadOff:          "OFF",
				DeviceClass:         "occupancy",
				AvailabilityTopic:   d.topics.Status(),
				PayloadAvailable:    payloadAvailable,
				PayloadNotAvailable: payloadNotAvailable,
				Device:              d.device,
			},
		})
	}

	return entities
}

// systemSensors builds the sensor entities reading fields out of the
// system channel's JSON payload.
func (d *Discovery) systemSensors() []Entity {
	defs := []struct {
		object string
		name   string
		class  string
		unit   string
		icon   string
	}{
		{object: "cpu_temp", name: "cpu temperature", class: "temperature", unit: "°C", icon: "mdi:cpu-64-bit"},
		{object: "chrome_tabs", name: "Active chrome tabs", icon: "mdi:monitor-dashboard"},
		{object: "cpu_load", name: "cpu load", icon: "mdi:cpu-64-bit"},
		{object: "disk_usage", name: "disk usage", unit: "%", icon: "mdi:harddisk"},
	}

	entities := make([]Entity, 0, len(defs))
	for _, def := range defs {
		entities = append(entities, Entity{
			Component: "sensor",
			ObjectID:  def.object,
			Config: SensorConfig{
				Name:                def.name,
				UniqueID:            d.uniqueID(def.object),
				StateTopic:          d.topics.State("system"),
				ValueTemplate:       fmt.Sprintf("{{ value_json.%s }}", def.object),
				AvailabilityTopic:   d.topics.Status(),
				PayloadAvailable:    payloadAvailable,
				PayloadNotAvailable: payloadNotAvailable,
				Device:              d.device,
				DeviceClass:         def.class,
				UnitOfMeasurement:   def.unit,
				Icon:                def.icon,
			},
		})
	}
	return entities
}

// Publish marshals and publishes every entity config, retained, under
// <prefix>/<component>/<node>/<object>/config. A failed entity is
// logged and skipped; the rest still go out.
func (d *Discovery) Publish(pub RetainedPublisher, opts Options) {
	for _, e := range d.Entities(opts) {
		topic := d.configTopic(e.Component, e.ObjectID)
		payload, err := json.Marshal(e.Config)
		if err != nil {
			d.logger.Error("discovery payload marshal failed",
				"object", e.ObjectID,
				"error", err,
			)
			continue
		}

		if err := pub.PublishRetained(topic, payload); err != nil {
			d.logger.Warn("discovery publish failed",
				"topic", topic,
				"error", err,
			)
			continue
		}
		d.logger.Debug("discovery config published", "topic", topic)
	}
}

// configTopic builds <prefix>/<component>/<node>/<object>/config.
func (d *Discovery) configTopic(component, object string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", d.cfg.Prefix, component, d.node, object)
}

// uniqueID scopes an object id to this kiosk.
func (d *Discovery) uniqueID(object string) string {
	return d.node + "_" + object
}

// nodeID derives the discovery node identifier from the topic root:
// "fullpageos/kitchen" becomes "fullpageos_kitchen". The root is the
// kiosk's identity on the bus, so two kiosks never collide.
func nodeID(root string) string {
	return strings.ReplaceAll(strings.Trim(root, "/"), "/", "_")
}
