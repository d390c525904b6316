package ld2450

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

const (
	// readTimeout bounds each serial read so the reader loop can check
	// for shutdown and pending directives between reads.
	readTimeout = 500 * time.Millisecond

	// directiveTimeout bounds the wait for one control-frame response.
	directiveTimeout = time.Second
)

// SerialPort is the subset of a serial connection the reader needs.
// go.bug.st/serial ports satisfy it; tests substitute an in-memory fake.
type SerialPort interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// OpenPort opens and configures the serial connection to one sensor.
//
// The LD2450 talks 8N1 at a configurable rate (factory default 256000).
// The read timeout makes Read return (0, nil) when no bytes arrive, which
// the reader loop treats as "check shutdown and directives, then retry".
func OpenPort(name string, baud int) (SerialPort, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}

	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("configuring %s: %w", name, err)
	}

	return port, nil
}
