package ld2450

import (
	"bytes"
	"fmt"
	"sync"
	"time"
)

// serialReadBuffer is the per-read chunk size. Frames are 30 bytes, so
// one read typically drains several reports.
const serialReadBuffer = 256

// directive is a parsed command queued for the reader loop.
type directive struct {
	text  string
	frame []byte
}

// sensor is one radar unit: a serial port, its reader goroutine, and its
// debouncer. The reader owns the port exclusively; directives are queued
// through a channel and executed between reads so telemetry decoding and
// configuration writes never interleave on the wire.
type sensor struct {
	name string
	port SerialPort
	deb  *Debouncer

	directives chan directive
	done       chan struct{}
	stopOnce   sync.Once

	wg     *sync.WaitGroup
	logger Logger
}

// command validates and queues a directive for the reader loop.
// At most one directive is pending at a time; parse failures surface to
// the caller so the bus command can be logged with its reason.
func (s *sensor) command(text string) error {
	frame, err := ParseDirective(text)
	if err != nil {
		return err
	}

	select {
	case s.directives <- directive{text: text, frame: frame}:
		return nil
	default:
		return ErrDirectivePending
	}
}

// stop shuts the reader down. Closing the port unblocks any in-flight
// read; the manager waits on the shared WaitGroup afterwards.
func (s *sensor) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.port.Close()
	})
}

// isClosed reports whether stop was called.
func (s *sensor) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// readLoop is the sensor's goroutine: accumulate serial bytes, decode
// frames in arrival order, feed the debouncer. Runs until stop or a
// persistent read error.
func (s *sensor) readLoop() {
	defer s.wg.Done()

	readBuf := make([]byte, serialReadBuffer)
	acc := make([]byte, 0, 4*frameSize)

	for {
		select {
		case <-s.done:
			return
		case d := <-s.directives:
			s.execDirective(d)
			// Drop bytes read before config mode; the decoder resyncs
			// on the next telemetry header anyway.
			acc = acc[:0]
			continue
		default:
		}

		n, err := s.port.Read(readBuf)
		if err != nil {
			if s.isClosed() {
				return
			}
			s.logger.Error("serial read failed, stopping reader",
				"sensor", s.name,
				"error", err,
			)
			return
		}
		if n == 0 {
			// Read timeout: nothing arrived, check shutdown/directives.
			continue
		}

		acc = append(acc, readBuf[:n]...)
		for {
			targets, discard, found := DecodeFrame(acc)
			if discard > 0 {
				acc = append(acc[:0], acc[discard:]...)
			}
			if !found {
				break
			}
			s.deb.Observe(targets)
		}
	}
}

// execDirective runs one bracketed exchange: enable-config, the
// operation, disable-config. Each step's response is logged; a failed
// step does not abort the bracket, so disable-config always gets a
// chance to restore telemetry streaming.
func (s *sensor) execDirective(d directive) {
	s.logger.Info("radar directive", "sensor", s.name, "directive", d.text)

	for _, frame := range [][]byte{enableConfigFrame, d.frame, disableConfigFrame} {
		if err := s.exchange(frame); err != nil {
			s.logger.Warn("directive exchange failed",
				"sensor", s.name,
				"directive", d.text,
				"error", err,
			)
		}
	}
}

// exchange writes one control frame and reads the sensor's response.
func (s *sensor) exchange(frame []byte) error {
	if _, err := s.port.Write(frame); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	resp, err := s.readResponse()
	if err != nil {
		return err
	}

	s.logger.Debug("directive response",
		"sensor", s.name,
		"response", fmt.Sprintf("% X", resp),
	)
	return nil
}

// readResponse reads until a complete control frame (header through
// footer) arrives or the directive timeout elapses. Telemetry bytes
// interleaved before the control header are skipped.
func (s *sensor) readResponse() ([]byte, error) {
	deadline := time.Now().Add(directiveTimeout)
	resp := make([]byte, 0, serialReadBuffer)
	chunk := make([]byte, serialReadBuffer)

	for time.Now().Before(deadline) {
		n, err := s.port.Read(chunk)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		resp = append(resp, chunk[:n]...)

		start := bytes.Index(resp, ctrlHeader)
		if start < 0 {
			continue
		}
		if end := bytes.Index(resp[start:], ctrlFooter); end >= 0 {
			return resp[start : start+end+len(ctrlFooter)], nil
		}
	}

	return nil, fmt.Errorf("no response within %v", directiveTimeout)
}
