package display

import (
	"os/exec"
	"strings"
)

// Logger defines the logging interface used by the display adapters.
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

// shellOut runs one command line through the shell and returns its
// trimmed stdout.
func shellOut(command string) (string, error) {
	out, err := exec.Command("/bin/sh", "-c", command).Output()
	return strings.TrimSpace(string(out)), err
}

// expand substitutes the {displayID} placeholder in a command line.
func expand(command, displayID string) string {
	return strings.ReplaceAll(command, "{displayID}", displayID)
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
