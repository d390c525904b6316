package browser

import "errors"

// Sentinel errors for browser control.
// These can be checked with errors.Is() for error handling.
var (
	// ErrNoActiveTab indicates the browser has no page tab open.
	ErrNoActiveTab = errors.New("browser: no active page tab")

	// ErrUnknownPanel indicates the panel name is not configured.
	ErrUnknownPanel = errors.New("browser: unknown panel")

	// ErrInvalidURL indicates the address is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("browser: invalid url")
)
