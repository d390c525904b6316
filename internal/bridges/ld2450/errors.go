package ld2450

import "errors"

// Domain errors for the ld2450 package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, ld2450.ErrUnknownDirective) {
//	    // handle unrecognised command text
//	}
var (
	// ErrUnknownDirective is returned when inbound command text does not
	// match any supported radar directive.
	ErrUnknownDirective = errors.New("ld2450: unknown directive")

	// ErrInvalidBaud is returned when a BAUD directive names a rate the
	// sensor does not support.
	ErrInvalidBaud = errors.New("ld2450: unsupported baud rate")

	// ErrSensorUnknown is returned when a command names a sensor that is
	// not configured.
	ErrSensorUnknown = errors.New("ld2450: sensor not configured")

	// ErrSensorDisabled is returned when a command targets a sensor whose
	// serial port could not be opened at startup.
	ErrSensorDisabled = errors.New("ld2450: sensor disabled")

	// ErrDirectivePending is returned when a directive arrives while the
	// sensor is still executing a previous one.
	ErrDirectivePending = errors.New("ld2450: directive already pending")
)
