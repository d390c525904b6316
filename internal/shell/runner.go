package shell

import (
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"github.com/displaygrid/kioskd/internal/infrastructure/config"
)

// Idle is published on the shell channel when nothing is running.
const Idle = ">_"

// Logger defines the logging interface used by the runner.
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

// systemExec runs one command line through the shell, blocking until it
// exits.
func systemExec(command string) error {
	return exec.Command("/bin/sh", "-c", command).Run()
}

// Runner executes named commands from the configured table, one at a
// time. A second command arriving while one runs is rejected with
// ErrBusy; the running command is never interrupted.
//
// Commands run on a background goroutine, so Run returns immediately
// after claiming the slot. There is no cancellation: reboot/shutdown
// style commands run to completion (or take the process down with them).
type Runner struct {
	commands map[string]string
	powerOn  string
	powerOff string

	// mu guards current: the uppercase id of the running command, or ""
	// when idle.
	mu      sync.Mutex
	current string

	// execFn is swapped for a fake in tests.
	execFn func(command string) error

	// onChange fires from the worker goroutine when a run starts and
	// when it completes. onPowerState fires at the start of a run whose
	// id is a display power alias, so the backlight cache updates before
	// the hardware has even reacted. Set both before the first Run.
	onChange     func()
	onPowerState func(on bool)

	logger Logger
}

// NewRunner creates a runner over the configured command table.
func NewRunner(cfg config.ShellConfig) *Runner {
	return &Runner{
		commands: cfg.Commands,
		powerOn:  cfg.PowerOn,
		powerOff: cfg.PowerOff,
		execFn:   systemExec,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the runner.
func (r *Runner) SetLogger(logger Logger) {
	r.logger = logger
}

// SetOnChange sets the callback fired when a run starts or completes.
// The shell channel hooks in here to publish promptly.
func (r *Runner) SetOnChange(fn func()) {
	r.onChange = fn
}

// SetOnPowerState sets the callback fired when a power-alias command
// starts: true for the power-on alias, false for power-off.
func (r *Runner) SetOnPowerState(fn func(on bool)) {
	r.onPowerState = fn
}

// Run starts the named command in the background.
//
// The name is case-insensitive. If another command is still running the
// call is rejected with ErrBusy and the running command is unaffected.
//
// Parameters:
//   - name: Command id from the configured table
//
// Returns:
//   - error: ErrUnknownCommand, ErrBusy, or nil once the run has started
func (r *Runner) Run(name string) error {
	id := strings.ToUpper(strings.TrimSpace(name))
	command, ok := r.commands[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	r.mu.Lock()
	if r.current != "" {
		running := r.current
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBusy, running)
	}
	r.current = id
	r.mu.Unlock()

	go r.worker(id, command)
	return nil
}

// worker runs one claimed command to completion and releases the slot.
func (r *Runner) worker(id, command string) {
	switch id {
	case r.powerOn:
		if r.onPowerState != nil {
			r.onPowerState(true)
		}
	case r.powerOff:
		if r.onPowerState != nil {
			r.onPowerState(false)
		}
	}

	if r.onChange != nil {
		r.onChange()
	}
	r.logger.Info("shell command started", "command", id)

	if err := r.execFn(command); err != nil {
		r.logger.Warn("shell command failed", "command", id, "error", err)
	} else {
		r.logger.Info("shell command finished", "command", id)
	}

	r.mu.Lock()
	r.current = ""
	r.mu.Unlock()

	if r.onChange != nil {
		r.onChange()
	}
}

// Current returns the running command id in display form (first letter
// upper, rest lower), or the idle sentinel.
func (r *Runner) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == "" {
		return Idle
	}
	return capitalize(r.current)
}

// Commands returns all configured command ids in display form, sorted.
// The discovery select entity uses this as its options list.
func (r *Runner) Commands() []string {
	ids := make([]string, 0, len(r.commands))
	for id := range r.commands {
		ids = append(ids, capitalize(id))
	}
	sort.Strings(ids)
	return ids
}

// capitalize maps an uppercase command id to its display form, e.g.
// "REBOOT" to "Reboot". Ids are ASCII by configuration convention.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
