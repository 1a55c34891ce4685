// Package serialline implements i7565.LineChannel on top of a serial port.
package serialline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"runtime"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/roffe/i7565"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// device is the subset of serial.Port used by Port.
type device interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// Port buffers partial lines between ReadLine calls.
type Port struct {
	dev      device
	buff     *bytes.Buffer
	readBuff []byte
}

type Opts struct {
	Baudrate int
	Attempts uint
	Delay    time.Duration
}

// Open opens name at 8N1. Opening is retried Attempts times before the error
// is returned.
func Open(name string, opts Opts) (*Port, error) {
	if opts.Baudrate == 0 {
		opts.Baudrate = i7565.DefaultPortBaudrate
	}
	if opts.Attempts == 0 {
		opts.Attempts = 3
	}
	if opts.Delay == 0 {
		opts.Delay = 200 * time.Millisecond
	}
	if runtime.GOOS == "windows" {
		name = strings.ToUpper(name)
	}
	mode := &serial.Mode{
		BaudRate: opts.Baudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}

	var p serial.Port
	err := retry.Do(
		func() error {
			var err error
			p, err = serial.Open(name, mode)
			return err
		},
		retry.Attempts(opts.Attempts),
		retry.Delay(opts.Delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("open %s attempt %d: %v", name, n+1, err)
		}),
	)
	if err != nil {
		return nil, i7565.Unrecoverable(fmt.Errorf("failed to open com port %q : %w", name, err))
	}
	if err := p.ResetInputBuffer(); err != nil {
		p.Close()
		return nil, i7565.Unrecoverable(fmt.Errorf("failed to reset input buffer: %w", err))
	}
	return newPort(p), nil
}

func newPort(dev device) *Port {
	return &Port{
		dev:      dev,
		buff:     bytes.NewBuffer(nil),
		readBuff: make([]byte, 64),
	}
}

func (p *Port) Write(b []byte) (int, error) {
	return p.dev.Write(b)
}

// ReadLine returns the next line without its terminator. Bytes read past the
// terminator are kept for the following call. i7565.ErrReadTimeout is
// returned when no complete line arrived within timeout.
func (p *Port) ReadLine(timeout time.Duration, terminator byte) (string, error) {
	if line, ok := p.cut(terminator); ok {
		return line, nil
	}
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", i7565.ErrReadTimeout
		}
		if err := p.dev.SetReadTimeout(remaining); err != nil {
			return "", fmt.Errorf("failed to set read timeout: %w", err)
		}
		n, err := p.dev.Read(p.readBuff)
		if n > 0 {
			p.buff.Write(p.readBuff[:n])
			if line, ok := p.cut(terminator); ok {
				return line, nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) && n > 0 {
				continue
			}
			return "", fmt.Errorf("failed to read com port: %w", err)
		}
	}
}

func (p *Port) cut(terminator byte) (string, bool) {
	by := p.buff.Bytes()
	idx := bytes.IndexByte(by, terminator)
	if idx < 0 {
		return "", false
	}
	line := string(by[:idx])
	p.buff.Next(idx + 1)
	return strings.TrimLeft(line, "\n"), true
}

// Buffered returns the number of bytes read but not yet returned as a line.
func (p *Port) Buffered() int {
	return p.buff.Len()
}

func (p *Port) Close() error {
	if err := p.dev.Close(); err != nil {
		return fmt.Errorf("failed to close com port: %w", err)
	}
	return nil
}

// ListPorts returns the serial ports found on the system.
func ListPorts() ([]*enumerator.PortDetails, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		return nil, errors.New("no serial ports found")
	}
	return ports, nil
}

// PortInfo describes a port for display.
func PortInfo(port *enumerator.PortDetails) string {
	if !port.IsUSB {
		return port.Name
	}
	return fmt.Sprintf("%s (USB ID %s:%s, serial %s)", port.Name, port.VID, port.PID, port.SerialNumber)
}
