package topic

import "errors"

// Domain errors for the topic package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, topic.ErrNoHandler) {
//	    // handle registration mistake
//	}
var (
	// ErrEmptyChannel is returned when registering a channel with an empty name.
	ErrEmptyChannel = errors.New("topic: channel name cannot be empty")

	// ErrNoHandler is returned when registering a channel with neither a
	// getter nor a setter.
	ErrNoHandler = errors.New("topic: channel needs a getter or a setter")
)
