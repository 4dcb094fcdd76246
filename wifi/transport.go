package wifi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// readPollTimeout bounds each poll read on a serial port. A Read that
// returns zero bytes within this window means no byte is pending yet.
const readPollTimeout = 5 * time.Millisecond

// Transport represents an established byte stream to a WiFi module.
//
// A Transport is assumed to be already connected and ready for use. It
// provides the low-level primitives the command engine needs: writes for
// outgoing commands, non-blocking single-byte reads for reply
// accumulation, and the clock the engine times attempts against. Typical
// implementations include serial ports and in-memory simulators used for
// testing; the simulator supplies a fake clock, which is why Now and
// Sleep live on the Transport rather than on the Device.
type Transport interface {
	io.Writer
	io.Closer

	// ByteAvailable reports whether at least one reply byte can be read
	// without blocking.
	ByteAvailable() bool

	// ReadByte returns the next reply byte. The engine only calls it
	// after ByteAvailable reported true.
	ReadByte() (byte, error)

	// Now returns the transport's notion of the current time.
	Now() time.Time

	// Sleep pauses the caller on the transport's clock.
	Sleep(d time.Duration)
}

// Dialer opens a Transport to a WiFi module.
//
// Dialer abstracts how the module connection is created (for example, via
// a serial port or a test double) and is intended to be used during
// device construction only. Once a Transport is obtained, the Dialer is
// no longer needed.
type Dialer interface {
	// Dial is responsible for creating and returning a connected
	// Transport. It may perform blocking operations and should respect
	// cancellation and deadlines provided by the context. Dial returns
	// an error if the transport cannot be established.
	Dial(ctx context.Context) (Transport, error)
}

// SerialDialer opens a WiFi module over a serial port using go.bug.st/serial.
//
// If Mode is nil, a default 8N1 mode is built from BaudRate (115200 when
// BaudRate is zero).
type SerialDialer struct {
	PortName string
	BaudRate int
	Mode     *serial.Mode
}

// Dial opens the configured serial port and wraps it in a Transport.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("wifi: context is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.PortName == "" {
		return nil, errors.New("wifi: serial port name is required")
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = 115200
		}
		mode = &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("wifi: open %s: %w", d.PortName, err)
	}
	if err := port.SetReadTimeout(readPollTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("wifi: set read timeout on %s: %w", d.PortName, err)
	}
	// Boot chatter from the module must not leak into the first reply.
	port.ResetInputBuffer()

	return &serialPort{port: port}, nil
}

// serialPort adapts a serial.Port to the Transport interface. The port's
// read timeout makes Read return zero bytes when nothing is pending, so
// ByteAvailable buffers at most one byte between polls.
type serialPort struct {
	port    serial.Port
	pending byte
	has     bool
}

func (s *serialPort) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *serialPort) Close() error {
	return s.port.Close()
}

func (s *serialPort) ByteAvailable() bool {
	if s.has {
		return true
	}
	var buf [1]byte
	n, err := s.port.Read(buf[:])
	if err != nil || n == 0 {
		return false
	}
	s.pending = buf[0]
	s.has = true
	return true
}

func (s *serialPort) ReadByte() (byte, error) {
	if s.has {
		s.has = false
		return s.pending, nil
	}
	var buf [1]byte
	for {
		n, err := s.port.Read(buf[:])
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return buf[0], nil
		}
	}
}

func (s *serialPort) Now() time.Time {
	return time.Now()
}

func (s *serialPort) Sleep(d time.Duration) {
	time.Sleep(d)
}
