package ld2450

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Control frame layout. Configuration exchanges use a different framing
// from telemetry:
//
//	FD FC FB FA                      header
//	2-byte opcode + arguments        see opcodes below
//	04 03 02 01                      footer
//
// Every exchange is bracketed: enable-config, the operation itself, then
// disable-config, each answered by the sensor.
var (
	ctrlHeader = []byte{0xFD, 0xFC, 0xFB, 0xFA}
	ctrlFooter = []byte{0x04, 0x03, 0x02, 0x01}
)

// Control opcodes.
var (
	opEnableConfig  = []byte{0x00, 0xFF}
	opDisableConfig = []byte{0x00, 0xFE}
	opSingleTarget  = []byte{0x00, 0x80}
	opMultiTarget   = []byte{0x00, 0x90}
	opQueryMode     = []byte{0x00, 0x91}
	opReadVersion   = []byte{0x00, 0xA0}
	opSetBaud       = []byte{0x00, 0xA1}
	opFactoryReset  = []byte{0x00, 0xA2}
	opReboot        = []byte{0x00, 0xA3}
	opBluetooth     = []byte{0x00, 0xA4}
)

// Opcode arguments.
var (
	argEnable  = []byte{0x01, 0x00}
	argDisable = []byte{0x00, 0x00}
)

// baudIndex maps supported baud rates to the sensor's table index,
// encoded little-endian in the set-baud argument.
var baudIndex = map[int]uint16{
	9600:   1,
	19200:  2,
	38400:  3,
	57600:  4,
	115200: 5,
	230400: 6,
	256000: 7,
	460800: 8,
}

// encodeControl builds one control frame from an opcode and its
// arguments (args may be nil).
func encodeControl(opcode, args []byte) []byte {
	frame := make([]byte, 0, len(ctrlHeader)+len(opcode)+len(args)+len(ctrlFooter))
	frame = append(frame, ctrlHeader...)
	frame = append(frame, opcode...)
	frame = append(frame, args...)
	frame = append(frame, ctrlFooter...)
	return frame
}

// enableConfigFrame and disableConfigFrame bracket every directive.
var (
	enableConfigFrame  = encodeControl(opEnableConfig, argEnable)
	disableConfigFrame = encodeControl(opDisableConfig, nil)
)

// ParseDirective translates inbound command text into the control frame
// for the operation it names.
//
// Supported directives (case-insensitive):
//
//	VERSION        read firmware version
//	REBOOT         restart the sensor module
//	SINGLE         single-target tracking mode
//	MULTI          multi-target tracking mode
//	QUERY          query current tracking mode
//	BAUD <rate>    change serial baud rate (effective after REBOOT)
//	FACTORY_RESET  restore factory settings
//	BT_ON / BT_OFF toggle the sensor's bluetooth radio
//
// Parameters:
//   - text: Raw command payload from the bus
//
// Returns:
//   - []byte: The operation's control frame (without the config bracket)
//   - error: ErrUnknownDirective or ErrInvalidBaud
func ParseDirective(text string) ([]byte, error) {
	fields := strings.Fields(strings.ToUpper(strings.TrimSpace(text)))
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrUnknownDirective)
	}

	switch fields[0] {
	case "VERSION":
		return encodeControl(opReadVersion, nil), nil
	case "REBOOT":
		return encodeControl(opReboot, nil), nil
	case "SINGLE":
		return encodeControl(opSingleTarget, nil), nil
	case "MULTI":
		return encodeControl(opMultiTarget, nil), nil
	case "QUERY":
		return encodeControl(opQueryMode, nil), nil
	case "FACTORY_RESET":
		return encodeControl(opFactoryReset, nil), nil
	case "BT_ON":
		return encodeControl(opBluetooth, argEnable), nil
	case "BT_OFF":
		return encodeControl(opBluetooth, argDisable), nil
	case "BAUD":
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: BAUD needs a rate argument", ErrInvalidBaud)
		}
		rate, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidBaud, fields[1])
		}
		index, ok := baudIndex[rate]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrInvalidBaud, rate)
		}
		arg := make([]byte, 2)
		binary.LittleEndian.PutUint16(arg, index)
		return encodeControl(opSetBaud, arg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDirective, fields[0])
	}
}
