package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nixxel-company-limited/escpos-usb-printer/adapter"
	"github.com/nixxel-company-limited/escpos-usb-printer/printer"
	"github.com/nixxel-company-limited/escpos-usb-printer/server"
)

// Epson TM-T88IV
const (
	defaultVendorID  = 0x04b8
	defaultProductID = 0x0202
)

const usage = `Usage: escpos-printer [flags] <command>

Commands:
  status        Query the printer and print its decoded status
  print <file>  Print a file (compiled as markdown for .md/.markdown), then cut
  serve         Forward raw bytes from a TCP socket to the printer

Flags:
`

func main() {
	flags := pflag.NewFlagSet("escpos-printer", pflag.ExitOnError)
	flags.Uint16("vid", defaultVendorID, "USB vendor ID of the printer")
	flags.Uint16("pid", defaultProductID, "USB product ID of the printer")
	flags.Bool("console", false, "simulate the printer on stdin/stdout")
	flags.String("serial", "", "serial port to use instead of USB (e.g. /dev/ttyUSB0)")
	flags.Int("baud", 0, "serial baud rate (0 selects the factory default)")
	flags.String("listen", "localhost:9100", "listen address for the serve command")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	flags.Parse(os.Args[1:])

	// Flags win; PRINTER_* environment variables fill the gaps.
	viper.SetEnvPrefix("PRINTER")
	viper.AutomaticEnv()
	if err := viper.BindPFlags(flags); err != nil {
		log.Fatalf("Failed to bind flags: %v", err)
	}

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}

	device, err := newAdapter()
	if err != nil {
		log.Fatalf("Failed to set up transport: %v", err)
	}

	p := printer.New(device)
	defer p.Close()

	switch args[0] {
	case "status":
		openOrDie(p)
		runStatus(p)
	case "print":
		if len(args) < 2 {
			log.Fatal("print requires a file argument")
		}
		openOrDie(p)
		runPrint(p, args[1])
	case "serve":
		svr := server.New(p, viper.GetString("listen"))
		if err := svr.Start(); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	default:
		log.Fatalf("Unknown command: %s", args[0])
	}
}

// newAdapter selects the transport backend from the configuration. The
// printer never learns which backend it is talking through.
func newAdapter() (adapter.Adapter, error) {
	if viper.GetBool("console") {
		return adapter.NewConsoleAdapter(), nil
	}
	if port := viper.GetString("serial"); port != "" {
		return adapter.NewSerialAdapter(port, viper.GetInt("baud")), nil
	}
	return adapter.NewUSBAdapter(viper.GetUint16("vid"), viper.GetUint16("pid"))
}

func openOrDie(p *printer.Printer) {
	if err := p.Open(); err != nil {
		log.Fatalf("Failed to open printer: %v", err)
	}
}

func runStatus(p *printer.Printer) {
	status, err := p.Status()
	if err != nil {
		if errors.Is(err, printer.ErrStatusUnavailable) {
			fmt.Println("Failed to retrieve printer status.")
			return
		}
		log.Fatalf("Status query failed: %v", err)
	}
	fmt.Println(status)
}

func runPrint(p *printer.Printer, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		err = p.PrintMarkup(data)
	default:
		err = p.Print(data)
	}
	if err != nil {
		log.Fatalf("Failed to print %s: %v", path, err)
	}

	if err := p.Cut(); err != nil {
		log.Fatalf("Failed to cut: %v", err)
	}
}
