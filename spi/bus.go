package spi

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	pspi "periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"

	"github.com/coreman2200/funtimes-huewheel/led"
)

var (
	ErrClosed        = errors.New("spi: transport closed")
	ErrFrameTooLarge = errors.New("spi: frame exceeds bus transfer limit")
)

// Transport sends encoded frames to the LED chain. Transmit blocks until the
// transfer completes or is rejected.
type Transport interface {
	Transmit(f led.Frame) error
	Close() error
	String() string
}

// TransportError is returned by Transmit when the bus rejects a frame.
type TransportError struct {
	Transport string
	Op        string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("spi: %s %s: %v", e.Transport, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Bus writes frames verbatim to the MOSI line of an SPI port.
type Bus struct {
	mu   sync.Mutex
	port pspi.PortCloser
	conn pspi.Conn
	freq physic.Frequency
	max  int
}

// OpenBus opens the named port from the periph registry; "" selects the
// first one. host.Init must have been called.
func OpenBus(name string, freq physic.Frequency) (*Bus, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("spi: open port %q: %w", name, err)
	}
	b, err := NewBus(p, freq)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return b, nil
}

// NewBus connects p in mode 0 with 8-bit words at freq, which must be the
// frequency the encoder's scheme was designed for.
func NewBus(p pspi.PortCloser, freq physic.Frequency) (*Bus, error) {
	if err := p.LimitSpeed(freq); err != nil {
		return nil, fmt.Errorf("spi: limit speed %s: %w", freq, err)
	}
	c, err := p.Connect(freq, pspi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("spi: connect %s: %w", freq, err)
	}
	b := &Bus{
		port: p,
		conn: c,
		freq: freq,
	}
	if l, ok := c.(conn.Limits); ok {
		b.max = l.MaxTxSize()
	}
	return b, nil
}

func (b *Bus) String() string {
	return "spi(" + b.port.String() + "@" + b.freq.String() + ")"
}

// MaxTxSize is the largest frame the port accepts in one transfer; 0 means
// the driver reports no limit.
func (b *Bus) MaxTxSize() int {
	return b.max
}

// Fits reports whether an n byte frame can go out in one transfer.
func (b *Bus) Fits(n int) error {
	if b.max > 0 && n > b.max {
		return fmt.Errorf("%w: %d > %d bytes", ErrFrameTooLarge, n, b.max)
	}
	return nil
}

func (b *Bus) Transmit(f led.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return &TransportError{Transport: "spi", Op: "tx", Err: ErrClosed}
	}
	// Splitting would stretch the low phase of a bit between transfers.
	if err := b.Fits(len(f)); err != nil {
		return &TransportError{Transport: "spi", Op: "tx", Err: err}
	}
	if err := b.conn.Tx(f, nil); err != nil {
		return &TransportError{Transport: "spi", Op: "tx", Err: err}
	}
	return nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	b.conn = nil
	return b.port.Close()
}
