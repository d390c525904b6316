package ld2450

import (
	"sync"

	"github.com/displaygrid/kioskd/internal/infrastructure/config"
)

// Logger defines the logging interface used by the radar manager.
// This allows different logging implementations to be used.
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

// Manager owns all configured radar sensors: one reader goroutine per
// sensor, the per-sensor debouncers, and the aggregate occupancy used
// for display power intents.
//
// A sensor whose serial port cannot be opened at startup is disabled for
// the process lifetime (logged once); its channel still publishes the
// all-clear snapshot and its commands fail with ErrSensorDisabled.
//
// All public methods are thread-safe.
type Manager struct {
	cfg     config.RadarConfig
	sensors map[string]*sensor
	names   []string

	// openPort is swapped for a fake in tests.
	openPort func(name string, baud int) (SerialPort, error)

	// mu guards the aggregate occupancy set and the callbacks.
	mu          sync.Mutex
	raw         map[string]bool
	anyOccupied bool

	onPowerIntent func(on bool)
	onSnapshot    func(sensor string)

	wg     sync.WaitGroup
	logger Logger
}

// NewManager creates the manager and its debouncers from configuration.
// Serial ports are not touched until Start.
func NewManager(cfg config.RadarConfig) *Manager {
	m := &Manager{
		cfg:      cfg,
		sensors:  make(map[string]*sensor, len(cfg.Sensors)),
		raw:      make(map[string]bool, len(cfg.Sensors)),
		openPort: OpenPort,
		logger:   noopLogger{},
	}

	for _, sc := range cfg.Sensors {
		name := sc.Name
		deb := NewDebouncer(cfg.GetOffDelay())
		deb.SetOnRaw(func(occupied bool) {
			m.handleRaw(name, occupied)
		})
		deb.SetOnChange(func() {
			m.handleSnapshot(name)
		})

		m.sensors[name] = &sensor{
			name:       name,
			deb:        deb,
			directives: make(chan directive, 1),
			done:       make(chan struct{}),
			wg:         &m.wg,
		}
		m.names = append(m.names, name)
		m.raw[name] = false
	}

	return m
}

// SetLogger sets the logger for the manager and its sensors.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// SetOnPowerIntent sets the callback fired when aggregate raw occupancy
// flips: true when the first sensor sees a target while all were clear,
// false when the last occupied sensor goes clear.
func (m *Manager) SetOnPowerIntent(fn func(on bool)) {
	m.mu.Lock()
	m.onPowerIntent = fn
	m.mu.Unlock()
}

// SetOnSnapshot sets the callback fired when a sensor's published
// snapshot changed. The channel registry hooks in here to push the
// sensor's channel immediately instead of waiting for the next pass.
func (m *Manager) SetOnSnapshot(fn func(sensor string)) {
	m.mu.Lock()
	m.onSnapshot = fn
	m.mu.Unlock()
}

// Start opens every configured port and launches the reader goroutines.
// Open failures disable the affected sensor; they never fail startup.
func (m *Manager) Start() {
	for _, sc := range m.cfg.Sensors {
		s := m.sensors[sc.Name]
		s.logger = m.logger

		port, err := m.openPort(sc.Port, sc.Baud)
		if err != nil {
			m.logger.Error("radar sensor disabled",
				"sensor", sc.Name,
				"port", sc.Port,
				"error", err,
			)
			continue
		}

		s.port = port
		m.wg.Add(1)
		go s.readLoop()

		m.logger.Info("radar sensor started",
			"sensor", sc.Name,
			"port", sc.Port,
			"baud", sc.Baud,
		)
	}
}

// Stop shuts down all readers and pending-off timers.
func (m *Manager) Stop() {
	for _, s := range m.sensors {
		if s.port != nil {
			s.stop()
		}
	}
	m.wg.Wait()

	for _, s := range m.sensors {
		s.deb.Stop()
	}

	m.logger.Info("radar manager stopped")
}

// Sensors returns the configured sensor names in configuration order.
// Each name doubles as the sensor's bus channel.
func (m *Manager) Sensors() []string {
	names := make([]string, len(m.names))
	copy(names, m.names)
	return names
}

// Payload returns the sensor's published snapshot for the channel getter.
func (m *Manager) Payload(name string) (string, error) {
	s, ok := m.sensors[name]
	if !ok {
		return "", ErrSensorUnknown
	}
	return s.deb.Payload()
}

// Command routes directive text to a sensor's reader loop.
func (m *Manager) Command(name, text string) error {
	s, ok := m.sensors[name]
	if !ok {
		return ErrSensorUnknown
	}
	if s.port == nil {
		return ErrSensorDisabled
	}
	return s.command(text)
}

// handleRaw recomputes aggregate occupancy over the full sensor set.
// Sensors report interleaved from independent goroutines, so the
// aggregate is always derived from current values, never from deltas.
func (m *Manager) handleRaw(name string, occupied bool) {
	m.mu.Lock()
	m.raw[name] = occupied

	any := false
	for _, v := range m.raw {
		if v {
			any = true
			break
		}
	}

	changed := any != m.anyOccupied
	m.anyOccupied = any
	fn := m.onPowerIntent
	m.mu.Unlock()

	if !changed {
		return
	}

	m.logger.Info("aggregate occupancy changed", "occupied", any, "sensor", name)
	if fn != nil {
		fn(any)
	}
}

// handleSnapshot forwards a sensor's snapshot change to the registry hook.
func (m *Manager) handleSnapshot(name string) {
	m.mu.Lock()
	fn := m.onSnapshot
	m.mu.Unlock()

	if fn != nil {
		fn(name)
	}
}
