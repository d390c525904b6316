package ha

// Device holds the Home Assistant device registry fields shared across
// all discovery payloads. Every entity published by this kiosk
// references the same device block so HA groups them under a single
// device page.
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

// SensorConfig is the discovery payload for a sensor entity reading one
// field out of the system channel's JSON value.
type SensorConfig struct {
	Name                string `json:"name"`
	UniqueID            string `json:"unique_id"`
	StateTopic          string `json:"state_topic"`
	ValueTemplate       string `json:"value_template"`
	AvailabilityTopic   string `json:"availability_topic"`
	PayloadAvailable    string `json:"payload_available"`
	PayloadNotAvailable string `json:"payload_not_available"`
	Device              Device `json:"device"`
	DeviceClass         string `json:"device_class,omitempty"`
	UnitOfMeasurement   string `json:"unit_of_measurement,omitempty"`
	Icon                string `json:"icon,omitempty"`
}

// BinarySensorConfig is the discovery payload for a radar occupancy
// entity reading the debounced flag out of a sensor channel's snapshot.
type BinarySensorConfig struct {
	Name                string `json:"name"`
	UniqueID            string `json:"unique_id"`
	StateTopic          string `json:"state_topic"`
	ValueTemplate       string `json:"value_template"`
	PayloadOn           string `json:"payload_on"`
	PayloadOff          string `json:"payload_off"`
	DeviceClass         string `json:"device_class"`
	AvailabilityTopic   string `json:"availability_topic"`
	PayloadAvailable    string `json:"payload_available"`
	PayloadNotAvailable string `json:"payload_not_available"`
	Device              Device `json:"device"`
}

// SelectConfig is the discovery payload for a select entity (panel
// chooser, shell command chooser).
type SelectConfig struct {
	Name                string   `json:"name"`
	UniqueID            string   `json:"unique_id"`
	StateTopic          string   `json:"state_topic"`
	CommandTopic        string   `json:"command_topic"`
	Options             []string `json:"options"`
	AvailabilityTopic   string   `json:"availability_topic"`
	PayloadAvailable    string   `json:"payload_available"`
	PayloadNotAvailable string   `json:"payload_not_available"`
	Device              Device   `json:"device"`
	Icon                string   `json:"icon,omitempty"`
}

// TextConfig is the discovery payload for the url text entity.
type TextConfig struct {
	Name                string `json:"name"`
	UniqueID            string `json:"unique_id"`
	StateTopic          string `json:"state_topic"`
	CommandTopic        string `json:"command_topic"`
	AvailabilityTopic   string `json:"availability_topic"`
	PayloadAvailable    string `json:"payload_available"`
	PayloadNotAvailable string `json:"payload_not_available"`
	Device              Device `json:"device"`
	Icon                string `json:"icon,omitempty"`
}

// LightConfig is the discovery payload for the backlight light entity,
// optionally carrying the brightness topics.
type LightConfig struct {
	Name                   string `json:"name"`
	UniqueID               string `json:"unique_id"`
	StateTopic             string `json:"state_topic"`
	CommandTopic           string `json:"command_topic"`
	PayloadOn              string `json:"payload_on"`
	PayloadOff             string `json:"payload_off"`
	BrightnessStateTopic   string `json:"brightness_state_topic,omitempty"`
	BrightnessCommandTopic string `json:"brightness_command_topic,omitempty"`
	BrightnessScale        int    `json:"brightness_scale,omitempty"`
	AvailabilityTopic      string `json:"availability_topic"`
	PayloadAvailable       string `json:"payload_available"`
	PayloadNotAvailable    string `json:"payload_not_available"`
	Device                 Device `json:"device"`
	Icon                   string `json:"icon,omitempty"`
}
