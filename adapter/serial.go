package adapter

import (
	"errors"
	"fmt"
	"sync"

	"go.bug.st/serial"
)

// defaultBaudRate is the factory default of most ESC/POS serial models.
const defaultBaudRate = 38400

// SerialAdapter drives an ESC/POS printer attached to an RS-232 port.
type SerialAdapter struct {
	portName string
	baudRate int
	port     serial.Port
	mu       sync.Mutex
}

// NewSerialAdapter creates a serial adapter for the named port. A zero
// baudRate selects the factory default.
func NewSerialAdapter(portName string, baudRate int) *SerialAdapter {
	if baudRate == 0 {
		baudRate = defaultBaudRate
	}
	return &SerialAdapter{portName: portName, baudRate: baudRate}
}

// Open opens the port in 8N1 mode with a bounded read timeout
func (s *SerialAdapter) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port != nil {
		return errors.New("port already open")
	}

	mode := &serial.Mode{
		BaudRate: s.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.portName, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.portName, err)
	}
	if err := port.SetReadTimeout(ioTimeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout on %s: %w", s.portName, err)
	}

	s.port = port
	return nil
}

// Write sends data to the printer
func (s *SerialAdapter) Write(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return 0, errors.New("port not open")
	}

	n, err := s.port.Write(data)
	if err != nil {
		return n, fmt.Errorf("serial write failed: %w", err)
	}
	if err := checkFullWrite(n, data); err != nil {
		return n, err
	}

	return n, nil
}

// Read reads data from the printer
func (s *SerialAdapter) Read(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return 0, errors.New("port not open")
	}

	n, err := s.port.Read(buf)
	if err != nil {
		return n, fmt.Errorf("serial read failed: %w", err)
	}

	return n, nil
}

// Drain discards anything queued in the receive buffer
func (s *SerialAdapter) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return errors.New("port not open")
	}
	if err := s.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("failed to reset input buffer: %w", err)
	}

	return nil
}

// Close closes the port
func (s *SerialAdapter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}

	err := s.port.Close()
	s.port = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", s.portName, err)
	}

	return nil
}

// IsOpen returns whether the port is open
func (s *SerialAdapter) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}
