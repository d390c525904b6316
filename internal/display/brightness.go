package display

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/displaygrid/kioskd/internal/infrastructure/config"
)

// Brightness maps the hardware brightness range onto the 0-100% scale of
// the brightness_percent channel.
type Brightness struct {
	cfg       config.BrightnessConfig
	displayID string

	// execOut is swapped for a fake in tests.
	execOut func(command string) (string, error)

	logger Logger
}

// NewBrightness creates the brightness adapter.
func NewBrightness(cfg config.DisplayConfig) *Brightness {
	return &Brightness{
		cfg:       cfg.Brightness,
		displayID: cfg.ID,
		execOut:   shellOut,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the adapter.
func (b *Brightness) SetLogger(logger Logger) {
	b.logger = logger
}

// Percent reads the hardware brightness and scales it to 0-100.
//
// Returns:
//   - int: Current brightness percent, clamped to [0, 100]
//   - error: Command or parse failure; the channel skips the publish
func (b *Brightness) Percent() (int, error) {
	out, err := b.execOut(expand(b.cfg.GetCommand, b.displayID))
	if err != nil {
		return 0, fmt.Errorf("reading brightness: %w", err)
	}

	raw, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("parsing brightness output %q: %w", out, err)
	}

	span := b.cfg.Max - b.cfg.Min
	percent := int(math.Round(float64(raw-b.cfg.Min) * 100 / float64(span)))
	return clamp(percent, 0, 100), nil
}

// SetPercent scales a percent onto the hardware range and applies it.
// Out-of-range values are clamped, not rejected.
//
// Parameters:
//   - percent: Requested brightness, any integer
//
// Returns:
//   - error: Command failure; hardware state unchanged
func (b *Brightness) SetPercent(percent int) error {
	percent = clamp(percent, 0, 100)

	span := b.cfg.Max - b.cfg.Min
	raw := b.cfg.Min + int(math.Round(float64(percent)*float64(span)/100))

	command := expand(b.cfg.SetCommand, b.displayID)
	command = strings.ReplaceAll(command, "{value}", strconv.Itoa(raw))

	if _, err := b.execOut(command); err != nil {
		return fmt.Errorf("setting brightness to %d: %w", raw, err)
	}

	b.logger.Info("brightness set", "percent", percent, "raw", raw)
	return nil
}
