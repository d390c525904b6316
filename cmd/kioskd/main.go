// kioskd - FullPageOS display bridge
//
// kioskd is the MQTT side of a FullPageOS kiosk. It exposes the display,
// the kiosk browser and the attached presence radar as bus channels:
// inbound <root>/<channel>/set commands drive the hardware, channel
// state publishes back on change, and Home Assistant picks the whole
// device up through MQTT discovery.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/displaygrid/kioskd/internal/bridges/ld2450"
	"github.com/displaygrid/kioskd/internal/browser"
	"github.com/displaygrid/kioskd/internal/display"
	"github.com/displaygrid/kioskd/internal/ha"
	"github.com/displaygrid/kioskd/internal/infrastructure/config"
	"github.com/displaygrid/kioskd/internal/infrastructure/logging"
	"github.com/displaygrid/kioskd/internal/infrastructure/mqtt"
	"github.com/displaygrid/kioskd/internal/shell"
	"github.com/displaygrid/kioskd/internal/sysinfo"
	"github.com/displaygrid/kioskd/internal/topic"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting kioskd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Display adapters. The backlight cache tracks power state even when
	// the channel is disabled so the shell power aliases always have
	// something to update.
	backlight := display.NewBacklight(cfg.Display)
	backlight.SetLogger(log)
	if cfg.Display.Backlight.Enabled {
		backlight.Init()
		log.Info("backlight adapter ready", "power", backlight.Power())
	}
	brightness := display.NewBrightness(cfg.Display)
	brightness.SetLogger(log)

	// Shell command runner with the eager power-state hook.
	runner := shell.NewRunner(cfg.Shell)
	runner.SetLogger(log)
	runner.SetOnPowerState(backlight.SetPower)
	log.Info("shell runner ready", "commands", len(cfg.Shell.Commands))

	// The default URL feeds the DEFAULT panel and the system payload.
	defaultURL := ""
	if cfg.Browser.Enabled || cfg.System.Enabled {
		defaultURL, err = browser.DefaultURL(cfg.Browser)
		if err != nil {
			if cfg.Browser.Enabled {
				return fmt.Errorf("resolving default url: %w", err)
			}
			log.Warn("default url unavailable", "error", err)
		}
	}

	// Browser control behind the panel and url channels.
	var (
		ctrl   *browser.Controller
		panels *browser.Panels
	)
	if cfg.Browser.Enabled {
		ctrl = browser.NewController(cfg.Browser)
		ctrl.SetLogger(log)
		panels = browser.NewPanels(cfg.Browser, defaultURL, ctrl)
		panels.SetLogger(log)
		log.Info("browser control ready",
			"debug_url", cfg.Browser.DebugURL,
			"panels", len(cfg.Browser.Panels),
		)
	} else {
		log.Info("browser control disabled")
	}

	// System telemetry collector.
	var collector *sysinfo.Collector
	if cfg.System.Enabled {
		collector = sysinfo.NewCollector(defaultURL)
		collector.SetLogger(log)
		if ctrl != nil {
			collector.SetTabCounter(ctrl.TabCount)
		}
	}

	// Radar manager. Aggregate occupancy drives the configured shell
	// power aliases; each sensor publishes on its own channel.
	var manager *ld2450.Manager
	if cfg.Radar.Enabled {
		manager = ld2450.NewManager(cfg.Radar)
		manager.SetLogger(log)
		manager.SetOnPowerIntent(func(on bool) {
			alias := cfg.Shell.PowerOn
			if !on {
				alias = cfg.Shell.PowerOff
			}
			if alias == "" {
				return
			}
			if runErr := runner.Run(alias); runErr != nil {
				log.Warn("power intent command rejected",
					"command", alias,
					"occupied", on,
					"error", runErr,
				)
			}
		})
	} else {
		log.Info("radar disabled")
	}

	// Connect to the MQTT broker. The LWT marks the kiosk OFFLINE if the
	// process dies without a clean shutdown.
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := client.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	client.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"topic_root", cfg.MQTT.TopicRoot,
	)

	// Channel registry publishing through the bus adapter.
	registry := topic.NewRegistry(&busPublisher{client: client, qos: byte(cfg.MQTT.QoS)})
	registry.SetLogger(log)

	if err := registerChannels(registry, channelDeps{
		cfg:        cfg,
		runner:     runner,
		backlight:  backlight,
		brightness: brightness,
		collector:  collector,
		panels:     panels,
		manager:    manager,
	}); err != nil {
		return fmt.Errorf("registering channels: %w", err)
	}
	log.Info("channels registered", "channels", registry.ChannelCount())

	// Executor transitions push the shell channel immediately. Wired
	// before anything can invoke the runner.
	runner.SetOnChange(func() { registry.Publish("shell") })

	// Sensor snapshot changes nudge their channel instead of waiting for
	// the next pass.
	if manager != nil {
		manager.SetOnSnapshot(registry.Publish)
		manager.Start()
		defer manager.Stop()
	}

	// Inbound commands: one wildcard subscription covers every channel.
	topics := client.Topics()
	err = client.Subscribe(topics.SetWildcard(), byte(cfg.MQTT.QoS), func(msgTopic string, payload []byte) error {
		channel, ok := topics.ChannelFromSet(msgTopic)
		if !ok {
			return nil
		}
		registry.Dispatch(channel, string(payload))
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to command topics: %w", err)
	}
	log.Info("command subscription active", "filter", topics.SetWildcard())

	// Home Assistant discovery, republished on every reconnect so a
	// restarted HA instance rediscovers the kiosk.
	var discovery *ha.Discovery
	var discoveryOpts ha.Options
	if cfg.Discovery.Enabled {
		discovery = ha.New(cfg.Discovery, topics)
		discovery.SetLogger(log)
		discoveryOpts = buildDiscoveryOptions(cfg, runner, panels, manager)
		discovery.Publish(client, discoveryOpts)
		log.Info("discovery configs published", "prefix", cfg.Discovery.Prefix)
	}

	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
		registry.ForceResync()
		if discovery != nil {
			discovery.Publish(client, discoveryOpts)
		}
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	log.Info("initialisation complete")

	// The publish loop is the main blocker; it returns once ctx is
	// cancelled by a shutdown signal.
	registry.Run(ctx, cfg.GetPublishInterval())

	log.Info("shutdown signal received, cleaning up")

	// Deferred cleanup runs in reverse order:
	// 1. Radar manager (if enabled)
	// 2. MQTT (publishes OFFLINE before disconnecting)

	log.Info("kioskd stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses KIOSKD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("KIOSKD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// channelDeps bundles the handler sources for channel registration.
// Disabled features leave their field nil (or their flag off in cfg)
// and the channel is simply not registered.
type channelDeps struct {
	cfg        *config.Config
	runner     *shell.Runner
	backlight  *display.Backlight
	brightness *display.Brightness
	collector  *sysinfo.Collector
	panels     *browser.Panels
	manager    *ld2450.Manager
}

// registerChannels wires every enabled channel into the registry.
// Registration order is publish-pass order: sensors first, then the
// device channels.
func registerChannels(registry *topic.Registry, deps channelDeps) error {
	if deps.manager != nil {
		manager := deps.manager
		for _, name := range manager.Sensors() {
			sensor := name
			err := registry.Register(sensor,
				topic.GetterFunc(func() (string, error) { return manager.Payload(sensor) }),
				topic.SetterFunc(func(value string) error { return manager.Command(sensor, value) }),
			)
			if err != nil {
				return err
			}
		}
	}

	runner := deps.runner
	err := registry.Register("shell",
		topic.GetterFunc(func() (string, error) { return runner.Current(), nil }),
		topic.SetterFunc(runner.Run),
	)
	if err != nil {
		return err
	}

	if deps.cfg.Display.Backlight.Enabled {
		backlight := deps.backlight
		// Report-only: power changes flow through the shell aliases.
		err := registry.Register("backlight",
			topic.GetterFunc(func() (string, error) { return backlight.Power(), nil }),
			nil,
		)
		if err != nil {
			return err
		}
	}

	if deps.cfg.Display.Brightness.Enabled {
		brightness := deps.brightness
		err := registry.Register("brightness_percent",
			topic.GetterFunc(func() (string, error) {
				percent, err := brightness.Percent()
				if err != nil {
					return "", err
				}
				return strconv.Itoa(percent), nil
			}),
			topic.SetterFunc(func(value string) error {
				percent, err := strconv.Atoi(strings.TrimSpace(value))
				if err != nil {
					return fmt.Errorf("parsing brightness payload %q: %w", value, err)
				}
				return brightness.SetPercent(percent)
			}),
		)
		if err != nil {
			return err
		}
	}

	if deps.collector != nil {
		if err := registry.Register("system", topic.GetterFunc(deps.collector.Payload), nil); err != nil {
			return err
		}
	}

	if deps.panels != nil {
		panels := deps.panels
		if err := registry.Register("panel", topic.GetterFunc(panels.Current), topic.SetterFunc(panels.Set)); err != nil {
			return err
		}
		if err := registry.Register("url", topic.GetterFunc(panels.CurrentURL), topic.SetterFunc(panels.SetURL)); err != nil {
			return err
		}
	}

	return nil
}

// buildDiscoveryOptions derives the discovery entity inputs from the
// running components.
func buildDiscoveryOptions(cfg *config.Config, runner *shell.Runner, panels *browser.Panels, manager *ld2450.Manager) ha.Options {
	opts := ha.Options{
		ShellCommands: append([]string{shell.Idle}, runner.Commands()...),
		Backlight:     cfg.Display.Backlight.Enabled,
		Brightness:    cfg.Display.Brightness.Enabled,
		System:        cfg.System.Enabled,
	}
	if panels != nil {
		opts.PanelNames = panels.Names()
	}
	if manager != nil {
		opts.RadarSensors = manager.Sensors()
	}
	return opts
}

// busPublisher adapts the MQTT client to the registry's Publisher
// interface: channel names map onto the topic layout, channel state
// goes out unretained at the configured QoS.
type busPublisher struct {
	client *mqtt.Client
	qos    byte
}

// PublishChannel implements topic.Publisher.
func (p *busPublisher) PublishChannel(channel, value string) error {
	return p.client.PublishString(p.client.Topics().State(channel), value, p.qos, false)
}
