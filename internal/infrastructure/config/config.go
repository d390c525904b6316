package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for kioskd.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Logging   LoggingConfig   `yaml:"logging"`
	Display   DisplayConfig   `yaml:"display"`
	Shell     ShellConfig     `yaml:"shell"`
	Radar     RadarConfig     `yaml:"radar"`
	Browser   BrowserConfig   `yaml:"browser"`
	System    SystemConfig    `yaml:"system"`
	Discovery DiscoveryConfig `yaml:"discovery"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`

	// TopicRoot prefixes every channel topic, e.g. "fullpageos/kitchen".
	TopicRoot string `yaml:"topic_root"`

	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// PublishInterval is the delay in seconds between publish passes
	// over the registered channels.
	PublishInterval int `yaml:"publish_interval"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// DisplayConfig contains the local display's identity and the shell-level
// adapters used to read and adjust it.
type DisplayConfig struct {
	// ID is substituted for the {displayID} placeholder in display commands.
	ID string `yaml:"id"`

	Backlight  BacklightConfig  `yaml:"backlight"`
	Brightness BrightnessConfig `yaml:"brightness"`
}

// BacklightConfig contains settings for reading display power state.
//
// The backlight channel is report-only: power changes flow through the
// shell command table via the power_on/power_off aliases, which update
// the cached state eagerly.
type BacklightConfig struct {
	Enabled bool `yaml:"enabled"`

	// GetCommand reads the hardware power state once at startup.
	// Supports the {displayID} placeholder.
	GetCommand string `yaml:"get_command"`

	// OnValue is the exact GetCommand output that means "display on".
	// Any other output is reported as OFF.
	OnValue string `yaml:"on_value"`
}

// BrightnessConfig contains settings for the brightness_percent channel.
type BrightnessConfig struct {
	Enabled bool `yaml:"enabled"`

	// GetCommand prints the current hardware brightness value.
	GetCommand string `yaml:"get_command"`

	// SetCommand applies a hardware brightness value. Supports the
	// {value} and {displayID} placeholders.
	SetCommand string `yaml:"set_command"`

	// Min and Max bound the hardware brightness range mapped onto 0-100%.
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// ShellConfig contains the table of named shell commands exposed on the
// shell channel.
type ShellConfig struct {
	// Commands maps an uppercase command id to a command line.
	Commands map[string]string `yaml:"commands"`

	// PowerOn and PowerOff name the command ids that switch the display
	// power. Running either updates the cached backlight state.
	PowerOn  string `yaml:"power_on"`
	PowerOff string `yaml:"power_off"`
}

// RadarConfig contains LD2450 presence radar settings.
type RadarConfig struct {
	Enabled bool `yaml:"enabled"`

	// OffDelay is the occupancy hold time in seconds: how long a sensor
	// keeps reporting occupied_delayed=true after the last target vanished.
	OffDelay int `yaml:"off_delay"`

	Sensors []RadarSensorConfig `yaml:"sensors"`
}

// RadarSensorConfig describes one serial-attached LD2450 sensor.
type RadarSensorConfig struct {
	// Name is the sensor's channel name, e.g. "ld2450".
	Name string `yaml:"name"`

	// Port is the serial device path, e.g. "/dev/ttyAMA0".
	Port string `yaml:"port"`

	// Baud is the serial line rate. The LD2450 factory default is 256000.
	Baud int `yaml:"baud"`
}

// BrowserConfig contains settings for the Chromium DevTools collaborator
// behind the panel and url channels.
type BrowserConfig struct {
	Enabled bool `yaml:"enabled"`

	// DebugURL is the DevTools HTTP endpoint of the kiosk browser.
	DebugURL string `yaml:"debug_url"`

	// DefaultURL is the page shown for the DEFAULT panel. When empty it is
	// read from DefaultURLFile at startup (the FullPageOS convention).
	DefaultURL     string `yaml:"default_url"`
	DefaultURLFile string `yaml:"default_url_file"`

	// Panels maps an uppercase panel name to the URL it shows.
	Panels map[string]string `yaml:"panels"`
}

// SystemConfig contains settings for the system telemetry channel.
type SystemConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DiscoveryConfig contains Home Assistant MQTT discovery settings.
type DiscoveryConfig struct {
	Enabled bool `yaml:"enabled"`

	// Prefix is the discovery topic prefix configured in Home Assistant.
	Prefix string `yaml:"prefix"`

	// DeviceName labels the device entry all entities attach to.
	DeviceName string `yaml:"device_name"`
}

// reservedPanelNames are panel keywords with built-in behaviour; they cannot
// be redefined in browser.panels.
var reservedPanelNames = []string{"DEFAULT", "URL", "BLANK", "RELOAD"}

// builtinChannelNames are channel names owned by kioskd itself; radar
// sensors cannot claim them.
var builtinChannelNames = []string{
	"shell", "backlight", "brightness_percent", "system", "panel", "url", "status",
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: KIOSKD_SECTION_KEY
// For example: KIOSKD_MQTT_HOST, KIOSKD_LOG_LEVEL
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Canonicalise lookup keys before validation
	cfg.normalize()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "kioskd",
			},
			TopicRoot: "fullpageos",
			QoS:       0,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			PublishInterval: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Display: DisplayConfig{
			Brightness: BrightnessConfig{
				Min: 0,
				Max: 255,
			},
		},
		Radar: RadarConfig{
			OffDelay: 120,
		},
		Browser: BrowserConfig{
			DebugURL: "http://127.0.0.1:9222",
		},
		Discovery: DiscoveryConfig{
			Prefix:     "homeassistant",
			DeviceName: "FullPageOS Display",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: KIOSKD_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("KIOSKD_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("KIOSKD_MQTT_TOPIC_ROOT"); v != "" {
		cfg.MQTT.TopicRoot = v
	}
	if v := os.Getenv("KIOSKD_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("KIOSKD_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Logging
	if v := os.Getenv("KIOSKD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Display
	if v := os.Getenv("KIOSKD_DISPLAY_ID"); v != "" {
		cfg.Display.ID = v
	}
}

// normalize canonicalises configuration keys that are matched
// case-insensitively at runtime: shell command ids and power aliases are
// uppercased, panel names are uppercased, sensor channel names are
// lowercased, and the topic root loses any trailing slash.
func (c *Config) normalize() {
	c.MQTT.TopicRoot = strings.TrimRight(strings.TrimSpace(c.MQTT.TopicRoot), "/")

	if len(c.Shell.Commands) > 0 {
		commands := make(map[string]string, len(c.Shell.Commands))
		for key, cmd := range c.Shell.Commands {
			commands[strings.ToUpper(strings.TrimSpace(key))] = cmd
		}
		c.Shell.Commands = commands
	}
	c.Shell.PowerOn = strings.ToUpper(strings.TrimSpace(c.Shell.PowerOn))
	c.Shell.PowerOff = strings.ToUpper(strings.TrimSpace(c.Shell.PowerOff))

	if len(c.Browser.Panels) > 0 {
		panels := make(map[string]string, len(c.Browser.Panels))
		for name, panelURL := range c.Browser.Panels {
			panels[strings.ToUpper(strings.TrimSpace(name))] = strings.TrimSpace(panelURL)
		}
		c.Browser.Panels = panels
	}

	for i := range c.Radar.Sensors {
		c.Radar.Sensors[i].Name = strings.ToLower(strings.TrimSpace(c.Radar.Sensors[i].Name))
		if c.Radar.Sensors[i].Baud == 0 {
			c.Radar.Sensors[i].Baud = 256000
		}
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Broker.ClientID == "" {
		errs = append(errs, "mqtt.broker.client_id is required")
	}
	if c.MQTT.TopicRoot == "" {
		errs = append(errs, "mqtt.topic_root is required")
	} else if strings.ContainsAny(c.MQTT.TopicRoot, "+#") {
		errs = append(errs, "mqtt.topic_root must not contain MQTT wildcards")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.PublishInterval < 1 {
		errs = append(errs, "mqtt.publish_interval must be at least 1 second")
	}

	// Logging validation
	if strings.EqualFold(c.Logging.Output, "file") && c.Logging.File.Path == "" {
		errs = append(errs, "logging.file.path is required when logging.output is file")
	}

	// Display validation
	if c.Display.Backlight.Enabled {
		if c.Display.Backlight.GetCommand == "" {
			errs = append(errs, "display.backlight.get_command is required when backlight is enabled")
		}
		if c.Display.Backlight.OnValue == "" {
			errs = append(errs, "display.backlight.on_value is required when backlight is enabled")
		}
	}
	if c.Display.Brightness.Enabled {
		if c.Display.Brightness.GetCommand == "" {
			errs = append(errs, "display.brightness.get_command is required when brightness is enabled")
		}
		if c.Display.Brightness.SetCommand == "" {
			errs = append(errs, "display.brightness.set_command is required when brightness is enabled")
		}
		if c.Display.Brightness.Min >= c.Display.Brightness.Max {
			errs = append(errs, "display.brightness.min must be below display.brightness.max")
		}
	}

	// Shell validation
	for key, cmd := range c.Shell.Commands {
		if key == "" {
			errs = append(errs, "shell.commands contains an empty command id")
		}
		if strings.TrimSpace(cmd) == "" {
			errs = append(errs, fmt.Sprintf("shell.commands.%s has an empty command line", key))
		}
	}
	if c.Shell.PowerOn != "" {
		if _, ok := c.Shell.Commands[c.Shell.PowerOn]; !ok {
			errs = append(errs, fmt.Sprintf("shell.power_on names unknown command %q", c.Shell.PowerOn))
		}
	}
	if c.Shell.PowerOff != "" {
		if _, ok := c.Shell.Commands[c.Shell.PowerOff]; !ok {
			errs = append(errs, fmt.Sprintf("shell.power_off names unknown command %q", c.Shell.PowerOff))
		}
	}

	// Radar validation
	if c.Radar.Enabled {
		if len(c.Radar.Sensors) == 0 {
			errs = append(errs, "radar.sensors must list at least one sensor when radar is enabled")
		}
		if c.Radar.OffDelay < 1 {
			errs = append(errs, "radar.off_delay must be at least 1 second")
		}
		seen := make(map[string]bool, len(c.Radar.Sensors))
		for i, sensor := range c.Radar.Sensors {
			if sensor.Name == "" {
				errs = append(errs, fmt.Sprintf("radar.sensors[%d].name is required", i))
				continue
			}
			if seen[sensor.Name] {
				errs = append(errs, fmt.Sprintf("radar sensor name %q used more than once", sensor.Name))
			}
			seen[sensor.Name] = true
			for _, builtin := range builtinChannelNames {
				if sensor.Name == builtin {
					errs = append(errs, fmt.Sprintf("radar sensor name %q collides with a built-in channel", sensor.Name))
				}
			}
			if sensor.Port == "" {
				errs = append(errs, fmt.Sprintf("radar.sensors[%d].port is required", i))
			}
			if sensor.Baud < 1 {
				errs = append(errs, fmt.Sprintf("radar.sensors[%d].baud must be positive", i))
			}
		}
	}

	// Browser validation
	if c.Browser.Enabled {
		if !validHTTPURL(c.Browser.DebugURL) {
			errs = append(errs, fmt.Sprintf("browser.debug_url is not a well-formed http(s) URL: %q", c.Browser.DebugURL))
		}
		if c.Browser.DefaultURL == "" && c.Browser.DefaultURLFile == "" {
			errs = append(errs, "browser.default_url or browser.default_url_file is required when browser is enabled")
		}
		if c.Browser.DefaultURL != "" && !validHTTPURL(c.Browser.DefaultURL) {
			errs = append(errs, fmt.Sprintf("browser.default_url is not a well-formed http(s) URL: %q", c.Browser.DefaultURL))
		}
		for name, panelURL := range c.Browser.Panels {
			for _, reserved := range reservedPanelNames {
				if name == reserved {
					errs = append(errs, fmt.Sprintf("panel name %q is reserved", name))
				}
			}
			if !validHTTPURL(panelURL) {
				errs = append(errs, fmt.Sprintf("panel %q URL is not well-formed: %q", name, panelURL))
			}
		}
	}

	// Discovery validation
	if c.Discovery.Enabled && c.Discovery.Prefix == "" {
		errs = append(errs, "discovery.prefix is required when discovery is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validHTTPURL reports whether s parses as an absolute http or https URL.
func validHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// GetPublishInterval returns the channel publish interval as a Duration.
func (c *Config) GetPublishInterval() time.Duration {
	return time.Duration(c.MQTT.PublishInterval) * time.Second
}

// GetOffDelay returns the radar occupancy hold time as a Duration.
func (c RadarConfig) GetOffDelay() time.Duration {
	return time.Duration(c.OffDelay) * time.Second
}

// GetReconnectInitialDelay returns the first reconnect delay as a Duration.
func (c *Config) GetReconnectInitialDelay() time.Duration {
	return time.Duration(c.MQTT.Reconnect.InitialDelay) * time.Second
}

// GetReconnectMaxDelay returns the reconnect delay ceiling as a Duration.
func (c *Config) GetReconnectMaxDelay() time.Duration {
	return time.Duration(c.MQTT.Reconnect.MaxDelay) * time.Second
}
