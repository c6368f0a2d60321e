package escpos

import (
	"fmt"
	"strings"
)

// StatusReplyLen is the number of bytes a batched status poll returns.
const StatusReplyLen = 4

// Every status byte carries fixed marker bits set by the protocol: masking
// with the template must leave exactly the template value.
const (
	statusTemplateMask  = 0b10010011
	statusTemplateValue = 0b00010010
)

// PaperStatus reports the paper level seen by the roll sensors.
type PaperStatus int

const (
	PaperAdequate PaperStatus = iota
	PaperNearEnd
	PaperNotPresent
)

// PrinterError details an active error condition. The three bits are
// independent and not mutually exclusive.
type PrinterError struct {
	IsCutterError      bool
	IsFatalError       bool
	IsRecoverableError bool
}

// OfflineCause explains why the printer reports itself offline. Err is
// populated only when the offline-cause byte signals an active error.
type OfflineCause struct {
	IsCoverOpen  bool
	IsPaperEmpty bool
	Err          *PrinterError
}

// PrinterStatus is the structured decode of a 4-byte status reply.
// OfflineCause is present only when the printer is offline.
type PrinterStatus struct {
	IsOnline     bool
	OfflineCause *OfflineCause
	PaperStatus  PaperStatus
}

// DecodeStatus interprets the reply to a batched status request, ordered
// [printer, offline-cause, error-cause, paper]. It reports ok=false when any
// byte violates the fixed bit template; a reply decodes fully or not at all.
func DecodeStatus(raw [StatusReplyLen]byte) (*PrinterStatus, bool) {
	for _, b := range raw {
		if b&statusTemplateMask != statusTemplateValue {
			return nil, false
		}
	}

	printerByte, offlineByte, errorByte, paperByte := raw[0], raw[1], raw[2], raw[3]

	status := &PrinterStatus{
		IsOnline:    printerByte&0b1000 == 0,
		PaperStatus: decodePaper(paperByte),
	}
	if status.IsOnline {
		return status, true
	}

	cause := &OfflineCause{
		IsCoverOpen:  offlineByte&0b100 != 0,
		IsPaperEmpty: offlineByte&0b100000 != 0,
	}
	if offlineByte&0b1000000 != 0 {
		cause.Err = &PrinterError{
			IsCutterError:      errorByte&0b1000 != 0,
			IsFatalError:       errorByte&0b100000 != 0,
			IsRecoverableError: errorByte&0b1000000 != 0,
		}
	}
	status.OfflineCause = cause

	return status, true
}

// decodePaper applies the sensor priority policy: the end sensor outranks the
// near-end sensor. When it reports no paper the near-end bits are
// meaningless; with paper present the near-end sensor decides between
// adequate and low.
func decodePaper(b byte) PaperStatus {
	switch {
	case b&0b1100000 != 0:
		return PaperNotPresent
	case b&0b1100 != 0:
		return PaperNearEnd
	default:
		return PaperAdequate
	}
}

// ANSI sequences for terminal rendering.
const (
	ansiGreen   = "\x1b[32;1m"
	ansiRed     = "\x1b[31;1m"
	ansiYellow  = "\x1b[33;1m"
	ansiMagenta = "\x1b[35m"
	ansiReset   = "\x1b[0m"
)

// String renders the status for a terminal, with the offline issue list when
// there is one.
func (s *PrinterStatus) String() string {
	state := ansiGreen + "ONLINE" + ansiReset
	if !s.IsOnline {
		state = ansiRed + "OFFLINE" + ansiReset
	}

	var paper string
	switch s.PaperStatus {
	case PaperNotPresent:
		paper = ansiRed + "EMPTY" + ansiReset
	case PaperNearEnd:
		paper = ansiYellow + "LOW" + ansiReset
	default:
		paper = ansiGreen + "OK" + ansiReset
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Status: %s - Paper: %s", state, paper)

	if cause := s.OfflineCause; cause != nil {
		var issues []string
		if e := cause.Err; e != nil {
			if e.IsFatalError {
				issues = append(issues, ansiRed+"fatal-error"+ansiReset)
			}
			if e.IsRecoverableError {
				issues = append(issues, ansiYellow+"auto-recovery"+ansiReset)
			}
			if e.IsCutterError {
				issues = append(issues, ansiMagenta+"cutter-error"+ansiReset)
			}
		}
		if cause.IsCoverOpen {
			issues = append(issues, ansiMagenta+"cover-open"+ansiReset)
		}
		if cause.IsPaperEmpty {
			issues = append(issues, ansiMagenta+"no-paper"+ansiReset)
		}
		if len(issues) > 0 {
			fmt.Fprintf(&sb, " - Issues: %s", strings.Join(issues, ", "))
		}
	}

	return sb.String()
}
