package adapter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/gousb"
)

// Interface class codes
// Reference: http://www.usb.org/developers/defined_class
const (
	IfaceClassPrinter = 0x07
)

// Standard control transfer values for clearing an endpoint halt
// (USB 2.0 spec 9.4.1, CLEAR_FEATURE with ENDPOINT_HALT).
const (
	reqTypeClearHalt    = 0x02 // host-to-device, standard, endpoint recipient
	reqClearFeature     = 0x01
	featureEndpointHalt = 0x00
)

// ioTimeout bounds every bulk transfer so a hung device cannot block the
// process indefinitely.
const ioTimeout = 5 * time.Second

// stallRecoveryDelay is the pause between clearing a halted endpoint and
// retrying the transfer.
const stallRecoveryDelay = 500 * time.Millisecond

// USBAdapter manages USB printer communication over one claimed interface
// with a bulk-IN and a bulk-OUT endpoint.
type USBAdapter struct {
	device      *gousb.Device
	ctx         *gousb.Context
	cfg         *gousb.Config
	iface       *gousb.Interface
	outEndpoint *gousb.OutEndpoint
	inEndpoint  *gousb.InEndpoint

	// clearHalt issues the halt-clear for a stalled endpoint. Set by Open,
	// replaceable in tests.
	clearHalt func(epAddr byte) error

	// stallDelay overrides stallRecoveryDelay when non-zero (tests).
	stallDelay time.Duration

	logger *log.Logger
	isOpen bool
	mu     sync.Mutex
}

// NewUSBAdapter creates a USB adapter for the printer identified by vid/pid.
// When no such device is attached it falls back to the first printer-class
// device found.
func NewUSBAdapter(vid, pid uint16) (*USBAdapter, error) {
	ctx := gousb.NewContext()
	a := &USBAdapter{
		ctx:    ctx,
		logger: log.New(os.Stdout, "[USB] ", log.LstdFlags|log.Lmsgprefix),
	}

	device, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil || device == nil {
		printers := FindPrinters(ctx)
		if len(printers) == 0 {
			ctx.Close()
			return nil, fmt.Errorf("cannot find printer (vid=%#04x, pid=%#04x)", vid, pid)
		}
		a.device = printers[0]
		for _, dev := range printers[1:] {
			dev.Close()
		}
		a.logger.Printf("Device %04x:%04x not found, using %s", vid, pid, a.device.Desc)
	} else {
		a.device = device
	}

	return a, nil
}

// NewUSBAdapterAuto creates an adapter for the first printer-class device.
func NewUSBAdapterAuto() (*USBAdapter, error) {
	ctx := gousb.NewContext()
	a := &USBAdapter{
		ctx:    ctx,
		logger: log.New(os.Stdout, "[USB] ", log.LstdFlags|log.Lmsgprefix),
	}

	printers := FindPrinters(ctx)
	if len(printers) == 0 {
		ctx.Close()
		return nil, errors.New("cannot find printer")
	}

	a.device = printers[0]
	for _, dev := range printers[1:] {
		dev.Close()
	}

	return a, nil
}

// IsPrinter checks if a device exposes a printer-class interface
func IsPrinter(dev *gousb.Device) bool {
	if dev == nil {
		return false
	}

	cfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		return false
	}

	cfg, err := dev.Config(cfgNum)
	if err != nil {
		return false
	}
	defer cfg.Close()

	for _, iface := range cfg.Desc.Interfaces {
		for _, alt := range iface.AltSettings {
			if alt.Class == IfaceClassPrinter {
				return true
			}
		}
	}

	return false
}

// FindPrinters returns all USB printer devices
func FindPrinters(ctx *gousb.Context) []*gousb.Device {
	var printers []*gousb.Device

	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return true // Check all devices
	})
	if err != nil {
		return printers
	}

	for _, dev := range devices {
		if IsPrinter(dev) {
			printers = append(printers, dev)
		} else {
			dev.Close()
		}
	}

	return printers
}

// Open claims the first interface exposing both a bulk-IN and a bulk-OUT
// endpoint on the device's active configuration.
func (a *USBAdapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isOpen {
		return errors.New("device already open")
	}
	if a.device == nil {
		return errors.New("device not found")
	}

	// Set auto-detach kernel driver on Linux
	if runtime.GOOS == "linux" {
		a.device.SetAutoDetach(true)
	}

	cfgNum, err := a.device.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("failed to get active config: %w", err)
	}

	cfg, err := a.device.Config(cfgNum)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}

	ifaceNum, inDesc, outDesc, found := findBulkInterface(cfg.Desc)
	if !found {
		cfg.Close()
		return errors.New("no interface with bulk IN and OUT endpoints found")
	}

	iface, err := cfg.Interface(ifaceNum, 0)
	if err != nil {
		cfg.Close()
		return fmt.Errorf("failed to claim interface %d: %w", ifaceNum, err)
	}

	inEndpoint, err := iface.InEndpoint(inDesc.Number)
	if err != nil {
		iface.Close()
		cfg.Close()
		return fmt.Errorf("failed to open bulk-IN endpoint %#02x: %w", byte(inDesc.Address), err)
	}

	outEndpoint, err := iface.OutEndpoint(outDesc.Number)
	if err != nil {
		iface.Close()
		cfg.Close()
		return fmt.Errorf("failed to open bulk-OUT endpoint %#02x: %w", byte(outDesc.Address), err)
	}

	a.cfg = cfg
	a.iface = iface
	a.inEndpoint = inEndpoint
	a.outEndpoint = outEndpoint
	if a.clearHalt == nil {
		a.clearHalt = a.clearEndpointHalt
	}
	a.isOpen = true
	a.logger.Printf("Claimed interface %d (IN %#02x, OUT %#02x)", ifaceNum, byte(inDesc.Address), byte(outDesc.Address))

	return nil
}

// findBulkInterface scans a configuration for the first interface whose
// default alt setting carries both a bulk-IN and a bulk-OUT endpoint.
func findBulkInterface(cfg gousb.ConfigDesc) (num int, in, out gousb.EndpointDesc, found bool) {
	for _, iface := range cfg.Interfaces {
		if len(iface.AltSettings) == 0 {
			continue
		}
		alt := iface.AltSettings[0]

		var inDesc, outDesc *gousb.EndpointDesc
		for _, ep := range alt.Endpoints {
			if ep.TransferType != gousb.TransferTypeBulk {
				continue
			}
			switch ep.Direction {
			case gousb.EndpointDirectionIn:
				if inDesc == nil {
					inDesc = &ep
				}
			case gousb.EndpointDirectionOut:
				if outDesc == nil {
					outDesc = &ep
				}
			}
		}

		if inDesc != nil && outDesc != nil {
			return iface.Number, *inDesc, *outDesc, true
		}
	}

	return 0, gousb.EndpointDesc{}, gousb.EndpointDesc{}, false
}

// Write sends data over the bulk-OUT endpoint. A transfer that accepts fewer
// bytes than requested fails with ErrPartialWrite and reports the accepted
// payload for diagnostics.
func (a *USBAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return 0, errors.New("device not open")
	}

	n, err := a.ioWithRetry(byte(a.outEndpoint.Desc.Address), func() (int, error) {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		return a.outEndpoint.WriteContext(ctx, data)
	})
	if err != nil {
		return n, err
	}
	if err := checkFullWrite(n, data); err != nil {
		return n, err
	}

	return n, nil
}

// Read receives up to len(buf) bytes from the bulk-IN endpoint.
func (a *USBAdapter) Read(buf []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return 0, errors.New("device not open")
	}

	return a.ioWithRetry(byte(a.inEndpoint.Desc.Address), func() (int, error) {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		return a.inEndpoint.ReadContext(ctx, buf)
	})
}

// Drain discards whatever the printer has already queued for the host. The
// printer keeps transmitted bytes queued until the host reads them, so stale
// replies would otherwise corrupt the next status poll. A silent line (read
// timeout) counts as an empty queue.
func (a *USBAdapter) Drain() error {
	return drainUntilEmpty(func(buf []byte) (int, error) {
		n, err := a.Read(buf)
		if err != nil && (errors.Is(err, gousb.ErrorTimeout) || errors.Is(err, context.DeadlineExceeded)) {
			return 0, nil
		}
		if n > 0 {
			a.logger.Printf("Drained %d stale byte(s)", n)
		}
		return n, err
	})
}

// ioWithRetry runs one bulk transfer, recovering from an endpoint stall by
// clearing the halt, pausing, and retrying exactly once. A second failure,
// or any non-stall failure, is terminal.
func (a *USBAdapter) ioWithRetry(epAddr byte, transfer func() (int, error)) (int, error) {
	n, err := transfer()
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, gousb.ErrorPipe) {
		return n, fmt.Errorf("I/O error on endpoint %#02x: %w", epAddr, err)
	}

	a.logger.Printf("Endpoint %#02x stalled, clearing halt and retrying", epAddr)
	if err := a.clearHalt(epAddr); err != nil {
		return 0, fmt.Errorf("failed to clear halt on endpoint %#02x: %w", epAddr, err)
	}

	delay := a.stallDelay
	if delay == 0 {
		delay = stallRecoveryDelay
	}
	time.Sleep(delay)

	n, err = transfer()
	if err != nil {
		return n, fmt.Errorf("retry after stall failed on endpoint %#02x: %w", epAddr, err)
	}

	return n, nil
}

// clearEndpointHalt issues the standard CLEAR_FEATURE(ENDPOINT_HALT) request
// for the given endpoint.
func (a *USBAdapter) clearEndpointHalt(epAddr byte) error {
	_, err := a.device.Control(reqTypeClearHalt, reqClearFeature, featureEndpointHalt, uint16(epAddr), nil)
	return err
}

// Close releases the interface and closes the USB device
func (a *USBAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen && a.device == nil && a.ctx == nil {
		return nil
	}

	var errs []error

	if a.iface != nil {
		a.iface.Close()
		a.iface = nil
	}

	if a.cfg != nil {
		if err := a.cfg.Close(); err != nil {
			errs = append(errs, err)
		}
		a.cfg = nil
	}

	if a.device != nil {
		if err := a.device.Close(); err != nil {
			errs = append(errs, err)
		}
		a.device = nil
	}

	if a.ctx != nil {
		if err := a.ctx.Close(); err != nil {
			errs = append(errs, err)
		}
		a.ctx = nil
	}

	a.isOpen = false

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}

	return nil
}

// IsOpen returns whether the device is open
func (a *USBAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isOpen
}

// GetDevice returns the underlying USB device
func (a *USBAdapter) GetDevice() *gousb.Device {
	return a.device
}
