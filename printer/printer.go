// Package printer sequences ESC/POS sessions against a single transport.
package printer

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nixxel-company-limited/escpos-usb-printer/adapter"
	"github.com/nixxel-company-limited/escpos-usb-printer/escpos"
	"github.com/nixxel-company-limited/escpos-usb-printer/markup"
)

// ErrStatusUnavailable is returned when the reply to a status poll is
// missing, short, or fails template validation. A poll yields a full status
// or none, never a partial one.
var ErrStatusUnavailable = errors.New("printer status unavailable")

// Printer owns one adapter for its whole lifetime and sequences commands on
// it. There is exactly one reader/writer; concurrent use is not supported.
type Printer struct {
	adapter adapter.Adapter
	logger  *log.Logger

	// sleep is swapped out in tests to skip real processing delays.
	sleep func(time.Duration)
}

// New creates a printer on the given adapter.
func New(device adapter.Adapter) *Printer {
	logger := log.New(os.Stdout, "[PRINTER] ", log.LstdFlags|log.Lmsgprefix)
	return NewWithLogger(device, logger)
}

// NewWithLogger creates a printer with a custom logger.
func NewWithLogger(device adapter.Adapter, logger *log.Logger) *Printer {
	return &Printer{adapter: device, logger: logger, sleep: time.Sleep}
}

// Open establishes the session: it opens the adapter if needed, drains stale
// bytes off the line, and resets the printer. Failure at any step leaves the
// printer unusable.
//
// The TM-T88IV transmits an undocumented 7-byte burst over the bulk-IN
// endpoint when powered on, plus a 4-byte ASB message when it boots into an
// offline state. Transmitted data stays queued until the host reads it, so
// the session starts with a drain to clear that backlog.
func (p *Printer) Open() error {
	if !p.adapter.IsOpen() {
		if err := p.adapter.Open(); err != nil {
			return fmt.Errorf("failed to open adapter: %w", err)
		}
	}

	if err := p.adapter.Drain(); err != nil {
		return fmt.Errorf("failed to drain stale bytes: %w", err)
	}
	if _, err := p.adapter.Write(escpos.Init()); err != nil {
		return fmt.Errorf("failed to initialize printer: %w", err)
	}
	// Only reliable when the printer powered on online; otherwise it keeps
	// pushing ASB sequences regardless.
	if _, err := p.adapter.Write(escpos.DisableAutoStatusBack()); err != nil {
		return fmt.Errorf("failed to disable auto status back: %w", err)
	}

	return nil
}

// Status polls the printer for its full status. The four status requests go
// out as one write; the printer answers with four bytes in request order
// after the processing delay it needs to assemble the reply. A failed or
// short read, or a reply violating the status template, reports
// ErrStatusUnavailable.
func (p *Printer) Status() (*escpos.PrinterStatus, error) {
	if _, err := p.adapter.Write(escpos.BatchedStatusRequest()); err != nil {
		return nil, fmt.Errorf("failed to send status request: %w", err)
	}

	p.sleep(escpos.ProcessingDelay)

	var raw [escpos.StatusReplyLen]byte
	n, err := p.adapter.Read(raw[:])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read status reply: %w", ErrStatusUnavailable, err)
	}
	if n != len(raw) {
		return nil, fmt.Errorf("%w: expected %d status bytes, got %d", ErrStatusUnavailable, len(raw), n)
	}

	status, ok := escpos.DecodeStatus(raw)
	if !ok {
		return nil, fmt.Errorf("%w: reply %#x failed template validation", ErrStatusUnavailable, raw[:])
	}

	return status, nil
}

// Print sends raw bytes to the printer unchanged.
func (p *Printer) Print(data []byte) error {
	if _, err := p.adapter.Write(data); err != nil {
		return fmt.Errorf("failed to print: %w", err)
	}
	return nil
}

// PrintText prints a plain text string verbatim.
func (p *Printer) PrintText(text string) error {
	return p.Print([]byte(text))
}

// PrintMarkup compiles a markdown document and prints the result.
func (p *Printer) PrintMarkup(src []byte) error {
	compiled, err := markup.Compile(src)
	if err != nil {
		return fmt.Errorf("failed to compile markup: %w", err)
	}
	return p.Print(compiled)
}

// Cut cuts the paper at the current position. A failed cut after a
// successful print leaves the printed output on the roll; there is no
// rollback.
func (p *Printer) Cut() error {
	if _, err := p.adapter.Write(escpos.Cut()); err != nil {
		return fmt.Errorf("failed to cut: %w", err)
	}
	return nil
}

// Feed prints the line buffer and advances one line.
func (p *Printer) Feed() error {
	if _, err := p.adapter.Write(escpos.PrintAndFeed()); err != nil {
		return fmt.Errorf("failed to feed: %w", err)
	}
	return nil
}

// FeedLines prints the line buffer and advances n lines.
func (p *Printer) FeedLines(n uint8) error {
	if _, err := p.adapter.Write(escpos.PrintAndFeedLines(n)); err != nil {
		return fmt.Errorf("failed to feed %d lines: %w", n, err)
	}
	return nil
}

// Close releases the underlying adapter.
func (p *Printer) Close() error {
	return p.adapter.Close()
}
