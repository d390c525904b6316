package ld2450

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Telemetry frame layout. The sensor streams one frame per report:
//
//	AA FF 03 00                      header
//	3 × 8-byte target slots          int16-LE x, int16-LE y, 4 reserved
//	55 CC                            tail
var (
	frameHeader = []byte{0xAA, 0xFF, 0x03, 0x00}
	frameTail   = []byte{0x55, 0xCC}
)

const (
	// maxTargets is the number of target slots in every telemetry frame.
	maxTargets = 3

	// targetSlotSize is the width of one target slot in bytes.
	targetSlotSize = 8

	// framePayloadSize is the fixed payload between header and tail.
	framePayloadSize = maxTargets * targetSlotSize

	// frameHeaderSize and frameTailSize are the marker widths.
	frameHeaderSize = 4
	frameTailSize   = 2

	// frameSize is the complete frame length on the wire.
	frameSize = frameHeaderSize + framePayloadSize + frameTailSize
)

// Target is one tracked object from a telemetry frame.
//
// Coordinates are millimetres in the sensor's frame of reference; the
// slot's reserved bytes (speed, gate resolution) are not decoded.
type Target struct {
	// ID is the slot position in the frame, 1-based.
	ID int `json:"id"`

	// X is the horizontal offset in millimetres (signed).
	X int16 `json:"x_mm"`

	// Y is the forward distance in millimetres (signed).
	Y int16 `json:"y_mm"`

	// Dist is the straight-line distance √(x²+y²) in millimetres,
	// rounded to one decimal place.
	Dist float64 `json:"dist_mm"`
}

// DecodeFrame scans buf for one complete telemetry frame.
//
// Decoding is pure and deterministic: the same buffer always yields the
// same result. A missing header, short buffer, or wrong tail is not an
// error, just "no frame yet" while the caller keeps accumulating bytes.
//
// Parameters:
//   - buf: Accumulated serial bytes, possibly containing garbage
//
// Returns:
//   - targets: Valid targets in slot order (nil when no frame found)
//   - discard: Leading bytes the caller should drop before the next scan
//     (consumed frame, leading garbage, or a corrupt header)
//   - found: Whether a complete frame was decoded
func DecodeFrame(buf []byte) (targets []Target, discard int, found bool) {
	h := bytes.Index(buf, frameHeader)
	if h < 0 {
		// No header anywhere. Everything is garbage except the last few
		// bytes, which may be the start of a header still arriving.
		keep := frameHeaderSize - 1
		if len(buf) > keep {
			return nil, len(buf) - keep, false
		}
		return nil, 0, false
	}

	if len(buf) < h+frameSize {
		// Header found but the frame is still arriving: drop only the
		// garbage in front of it.
		return nil, h, false
	}

	if !bytes.Equal(buf[h+frameHeaderSize+framePayloadSize:h+frameSize], frameTail) {
		// Corrupt frame. Skip past this header so the next scan
		// resynchronises on the following one.
		return nil, h + frameHeaderSize, false
	}

	payload := buf[h+frameHeaderSize : h+frameHeaderSize+framePayloadSize]
	return parseTargets(payload), h + frameSize, true
}

// parseTargets decodes the 3 fixed-width target slots of a frame payload.
// A slot is a valid target only if y ≠ 0; empty slots are skipped without
// shifting the IDs of later slots.
func parseTargets(payload []byte) []Target {
	targets := make([]Target, 0, maxTargets)

	for slot := 0; slot < maxTargets; slot++ {
		off := slot * targetSlotSize
		x := int16(binary.LittleEndian.Uint16(payload[off : off+2]))
		y := int16(binary.LittleEndian.Uint16(payload[off+2 : off+4]))
		// Remaining 4 slot bytes are reserved.

		if y == 0 {
			continue
		}

		targets = append(targets, Target{
			ID:   slot + 1,
			X:    x,
			Y:    y,
			Dist: round1(math.Hypot(float64(x), float64(y))),
		})
	}

	return targets
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
