package adapter

import (
	"errors"
	"fmt"
)

// ErrPartialWrite reports a transfer that accepted fewer bytes than
// requested. Partial writes are never retried.
var ErrPartialWrite = errors.New("partial write")

// checkFullWrite verifies a transfer accepted the whole payload, reporting
// the accepted prefix for diagnostics otherwise.
func checkFullWrite(n int, data []byte) error {
	if n < len(data) {
		return fmt.Errorf("%w: expected %d bytes, wrote %d (payload %#x)",
			ErrPartialWrite, len(data), n, data[:n])
	}
	return nil
}

// Adapter defines the interface for printer communication backends
type Adapter interface {
	// Open opens the connection to the printer
	Open() error

	// Write sends data to the printer
	Write(data []byte) (int, error)

	// Read reads data from the printer
	Read(buf []byte) (int, error)

	// Drain discards bytes the printer has already queued for the host
	Drain() error

	// Close closes the connection to the printer
	Close() error

	// IsOpen returns whether the connection is open
	IsOpen() bool
}

const drainBufSize = 16

// drainUntilEmpty reads and discards queued bytes until the first
// zero-length read.
func drainUntilEmpty(read func([]byte) (int, error)) error {
	buf := make([]byte, drainBufSize)
	for {
		n, err := read(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}
