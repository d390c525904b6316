package display

import (
	"sync"

	"github.com/displaygrid/kioskd/internal/infrastructure/config"
)

// Power state payloads for the backlight channel.
const (
	PowerOn  = "ON"
	PowerOff = "OFF"
)

// Backlight reports display power on the backlight channel.
//
// The channel is report-only: power changes flow through the shell
// command table, whose power aliases call SetPower the moment the
// command starts. Hardware is read exactly once, at Init.
type Backlight struct {
	cfg       config.BacklightConfig
	displayID string

	// execOut is swapped for a fake in tests.
	execOut func(command string) (string, error)

	mu    sync.Mutex
	power string

	logger Logger
}

// NewBacklight creates the backlight adapter. The cache starts at ON:
// the kiosk service comes up with the display powered, and Init
// overwrites the guess from hardware when the get command works.
func NewBacklight(cfg config.DisplayConfig) *Backlight {
	return &Backlight{
		cfg:       cfg.Backlight,
		displayID: cfg.ID,
		execOut:   shellOut,
		power:     PowerOn,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the adapter.
func (b *Backlight) SetLogger(logger Logger) {
	b.logger = logger
}

// Init seeds the cache from hardware. A failing get command keeps the
// initial guess; the eager alias updates take over from there.
func (b *Backlight) Init() {
	out, err := b.execOut(expand(b.cfg.GetCommand, b.displayID))
	if err != nil {
		b.logger.Warn("backlight state read failed, assuming on",
			"command", b.cfg.GetCommand,
			"error", err,
		)
		return
	}

	state := PowerOff
	if out == b.cfg.OnValue {
		state = PowerOn
	}

	b.mu.Lock()
	b.power = state
	b.mu.Unlock()

	b.logger.Info("backlight state read", "state", state)
}

// Power returns the cached power state payload.
func (b *Backlight) Power() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.power
}

// SetPower updates the cache. The shell runner calls this when a power
// alias command starts.
func (b *Backlight) SetPower(on bool) {
	state := PowerOff
	if on {
		state = PowerOn
	}

	b.mu.Lock()
	b.power = state
	b.mu.Unlock()

	b.logger.Debug("backlight cache updated", "state", state)
}
