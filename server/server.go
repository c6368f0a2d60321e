// Package server exposes a printer as a raw-socket service: every byte a
// client sends is forwarded to the device unchanged, in the style of a
// JetDirect port 9100 listener.
package server

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"

	"github.com/nixxel-company-limited/escpos-usb-printer/printer"
)

// Server represents a TCP server that forwards client bytes to a printer
type Server struct {
	printer  *printer.Printer
	listener net.Listener
	address  string
	mu       sync.Mutex
	running  bool
	wg       sync.WaitGroup
	logger   *log.Logger
}

// New creates a new server instance
func New(p *printer.Printer, address string) *Server {
	logger := log.New(os.Stdout, "[SERVER] ", log.LstdFlags|log.Lmsgprefix)
	return NewWithLogger(p, address, logger)
}

// NewWithLogger creates a new server instance with a custom logger
func NewWithLogger(p *printer.Printer, address string, logger *log.Logger) *Server {
	return &Server{
		printer: p,
		address: address,
		logger:  logger,
	}
}

// Start starts the TCP server and blocks until Stop is called
func (s *Server) Start() error {
	if err := s.start(); err != nil {
		return err
	}

	// Block and accept connections (freezes current goroutine)
	s.logger.Println("Ready to accept connections")
	s.acceptConnections()

	return nil
}

// StartAsync starts the TCP server in a goroutine (non-blocking)
func (s *Server) StartAsync() error {
	if err := s.start(); err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptConnections()
	}()
	s.logger.Println("Server started in background, ready to accept connections")

	return nil
}

// start opens the printer session and the listener.
func (s *Server) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Printf("Starting server on %s", s.address)

	if s.running {
		s.logger.Println("Error: Server already running")
		return fmt.Errorf("server already running")
	}

	s.logger.Println("Opening printer session...")
	if err := s.printer.Open(); err != nil {
		s.logger.Printf("Error: Failed to open printer: %v", err)
		return fmt.Errorf("failed to open printer: %w", err)
	}

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		s.logger.Printf("Error: Failed to start server: %v", err)
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.listener = listener
	s.running = true
	s.logger.Printf("Server listening on %s", s.address)

	return nil
}

// acceptConnections handles incoming client connections
func (s *Server) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()

			if !running {
				// Server is shutting down
				s.logger.Println("Server shutting down, stopping accept loop")
				return
			}
			s.logger.Printf("Error accepting connection: %v", err)
			continue
		}

		s.logger.Printf("Client connected from %s", conn.RemoteAddr())
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection forwards one client's bytes to the printer
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.logger.Printf("Client disconnected: %s", conn.RemoteAddr())
		conn.Close()
	}()

	clientAddr := conn.RemoteAddr().String()

	// Buffer for reading data
	buf := make([]byte, 4096)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			if err != io.EOF {
				s.logger.Printf("Error reading from client %s: %v", clientAddr, err)
			} else {
				s.logger.Printf("Client %s closed connection", clientAddr)
			}
			return
		}

		if n > 0 {
			if err := s.printer.Print(buf[:n]); err != nil {
				s.logger.Printf("Error forwarding to printer: %v", err)
				return
			}
			s.logger.Printf("Forwarded %d bytes from %s to printer", n, clientAddr)
		}
	}
}

// Stop stops the TCP server. The printer session stays open; its lifetime
// belongs to the caller.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Println("Stop called but server is not running")
		return nil
	}

	s.logger.Println("Stopping server...")
	s.running = false
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener.Close()
	}

	// Wait for all connections to finish
	s.logger.Println("Waiting for active connections to close...")
	s.wg.Wait()
	s.logger.Println("Server stopped successfully")

	return nil
}

// IsRunning returns whether the server is running
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Address returns the server address
func (s *Server) Address() string {
	return s.address
}

// Printer returns the underlying printer
func (s *Server) Printer() *printer.Printer {
	return s.printer
}
