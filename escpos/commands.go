// Package escpos encodes ESC/POS commands and decodes printer status replies.
// All encoders are pure: the same input always yields the same byte sequence.
package escpos

import "time"

// Control bytes used as command prefixes.
const (
	esc = 0x1B
	dle = 0x10
	eot = 0x04
	gs  = 0x1D
	lf  = 0x0A
)

// ProcessingDelay is how long the printer needs to assemble the reply to a
// real-time status request before the host may read it. This is a protocol
// property of the device, not a tuning knob.
const ProcessingDelay = 500 * time.Millisecond

// StatusKind selects which status byte a real-time status request returns.
type StatusKind byte

const (
	StatusPrinter StatusKind = 1
	StatusOffline StatusKind = 2
	StatusError   StatusKind = 3
	StatusPaper   StatusKind = 4
)

// Justification modes for Justify.
type Justification byte

const (
	JustifyLeft   Justification = 0
	JustifyCenter Justification = 1
	JustifyRight  Justification = 2
)

// Init resets the printer to its power-on state (ESC @). It must be the
// first command of a session.
func Init() []byte { return []byte{esc, '@'} }

// DisableAutoStatusBack suppresses unsolicited ASB status pushes (GS a 0).
// Only reliable when the printer powered on in an online state.
func DisableAutoStatusBack() []byte { return []byte{gs, 'a', 0} }

// PrintAndFeed prints the line buffer and feeds one line (LF).
func PrintAndFeed() []byte { return []byte{lf} }

// PrintAndFeedLines prints the line buffer and feeds n lines (ESC d n).
func PrintAndFeedLines(n uint8) []byte { return []byte{esc, 'd', n} }

// Cut cuts the paper at the current position (GS V B 0).
func Cut() []byte { return []byte{gs, 'V', 'B', 0} }

// Bold toggles emphasized printing (ESC E).
func Bold(enable bool) []byte { return []byte{esc, 'E', boolByte(enable)} }

// Underline toggles underline mode (ESC -).
func Underline(enable bool) []byte { return []byte{esc, '-', boolByte(enable)} }

// Justify selects text justification (ESC a).
func Justify(mode Justification) []byte { return []byte{esc, 'a', byte(mode)} }

// CharSize selects character magnification (GS !). The width nibble occupies
// the high four bits, the height nibble the low four. Magnifications above 8
// are clamped to 8 so out-of-range input cannot corrupt the encoding.
func CharSize(height, width uint8) []byte {
	return []byte{gs, '!', clampMagnify(width)<<4 | clampMagnify(height)}
}

// StatusRequest asks the printer to transmit one status byte in real time
// (DLE EOT n).
func StatusRequest(kind StatusKind) []byte { return []byte{dle, eot, byte(kind)} }

// BatchedStatusRequest concatenates all four status requests so that a full
// status poll is a single write. The printer answers with 4 bytes in the
// same order.
func BatchedStatusRequest() []byte {
	var cmds []byte
	for _, kind := range []StatusKind{StatusPrinter, StatusOffline, StatusError, StatusPaper} {
		cmds = append(cmds, StatusRequest(kind)...)
	}
	return cmds
}

func clampMagnify(v uint8) uint8 {
	if v > 8 {
		return 8
	}
	return v
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
