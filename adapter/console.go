package adapter

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ConsoleAdapter simulates a printer on a terminal. Writes are rendered as
// hex dumps; reads parse a line of whitespace-separated hex bytes typed by
// the operator, e.g. "0x12 0x12 0x12 0x12" or "12 12 12 12".
type ConsoleAdapter struct {
	in         *bufio.Scanner
	out        io.Writer
	readCount  int
	writeCount int
	isOpen     bool
}

// NewConsoleAdapter creates a console adapter bound to stdin/stdout.
func NewConsoleAdapter() *ConsoleAdapter {
	return NewConsoleAdapterIO(os.Stdin, os.Stdout)
}

// NewConsoleAdapterIO creates a console adapter with explicit streams.
func NewConsoleAdapterIO(in io.Reader, out io.Writer) *ConsoleAdapter {
	return &ConsoleAdapter{in: bufio.NewScanner(in), out: out}
}

// Open marks the console session as started
func (c *ConsoleAdapter) Open() error {
	c.isOpen = true
	return nil
}

// Write renders the outgoing bytes as a hex dump
func (c *ConsoleAdapter) Write(data []byte) (int, error) {
	fmt.Fprintf(c.out, "P -> [%d]:\n%s", c.writeCount, hex.Dump(data))
	c.writeCount++
	return len(data), nil
}

// Read prompts for a line of hex tokens and copies the parsed bytes into
// buf, truncating at the buffer's capacity. A malformed token is a decode
// error; end of input reads as zero bytes.
func (c *ConsoleAdapter) Read(buf []byte) (int, error) {
	fmt.Fprintf(c.out, "P <- [%d]:\n", c.readCount)

	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return 0, fmt.Errorf("console read failed: %w", err)
		}
		return 0, nil
	}

	var values []byte
	for _, token := range strings.Fields(c.in.Text()) {
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(token), "0x"), 16, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid hex token %q: use values like '0x41' or '41'", token)
		}
		values = append(values, byte(v))
	}

	c.readCount++
	return copy(buf, values), nil
}

// Drain is a no-op: the console has no device-side queue.
func (c *ConsoleAdapter) Drain() error {
	return nil
}

// Close ends the console session
func (c *ConsoleAdapter) Close() error {
	c.isOpen = false
	return nil
}

// IsOpen returns whether the session is open
func (c *ConsoleAdapter) IsOpen() bool {
	return c.isOpen
}
