package shell

import "errors"

// Sentinel errors for command execution.
// These can be checked with errors.Is() for error handling.
var (
	// ErrBusy indicates a command is already running.
	ErrBusy = errors.New("shell: a command is already running")

	// ErrUnknownCommand indicates the command id is not in the table.
	ErrUnknownCommand = errors.New("shell: unknown command")
)
