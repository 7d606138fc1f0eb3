// Package led encodes pixels into the WS2812 one-wire protocol as emulated
// on an SPI MOSI line: every protocol bit becomes a short run of bus
// bit-cells whose high/low split matches the chip's "0" or "1" symbol.
package led

import (
	"errors"
	"fmt"
	"time"

	"github.com/coreman2200/funtimes-huewheel/model"
)

var (
	ErrTiming       = errors.New("led: scheme timing out of tolerance")
	ErrOrder        = errors.New("led: invalid channel order")
	ErrSymbol       = errors.New("led: pulse matches neither symbol")
	ErrNoLatch      = errors.New("led: frame has no latch gap")
	ErrPartialPixel = errors.New("led: frame ends mid pixel")
)

// DefaultLatch is comfortably above the 280us reset of current WS2812B parts.
const DefaultLatch = 300 * time.Microsecond

// Frame is the bus-level bit pattern of one complete LED chain update,
// latch gap included.
type Frame []byte

type Options struct {
	Scheme Scheme
	Order  Order
	Timing Timing
	// Latch is the idle-low tail appended after the last pixel.
	Latch time.Duration
}

func (o Options) withDefaults() Options {
	if o.Scheme.CellsPerBit == 0 {
		o.Scheme = Scheme4x
	}
	if o.Order == "" {
		o.Order = OrderGRB
	}
	if o.Timing == (Timing{}) {
		o.Timing = WS2812B
	}
	if o.Latch == 0 {
		o.Latch = DefaultLatch
	}
	return o
}

type Encoder struct {
	opts  Options
	cells int // bytes per color channel; 8 bits * CellsPerBit cells / 8
	latch int
	lut   []byte
}

func NewEncoder(o Options) (*Encoder, error) {
	o = o.withDefaults()
	if err := o.Order.validate(); err != nil {
		return nil, err
	}
	if err := o.Scheme.Validate(o.Timing); err != nil {
		return nil, err
	}
	if o.Latch < o.Timing.Reset {
		return nil, fmt.Errorf("%w: latch %s shorter than reset %s", ErrTiming, o.Latch, o.Timing.Reset)
	}

	e := &Encoder{
		opts:  o,
		cells: o.Scheme.CellsPerBit,
	}
	byteTime := 8 * o.Scheme.Cell()
	e.latch = int((o.Latch + byteTime - 1) / byteTime)

	// Expand each value MSB first into 8*CellsPerBit cells, packed into
	// CellsPerBit bytes.
	e.lut = make([]byte, 256*e.cells)
	for v := 0; v < 256; v++ {
		var out uint64
		for i := 7; i >= 0; i-- {
			out = out<<uint(e.cells) | uint64(o.Scheme.pattern(byte(v>>i)&1))
		}
		dst := e.lut[v*e.cells : (v+1)*e.cells]
		for i := range dst {
			dst[i] = byte(out >> (8 * uint(len(dst)-1-i)))
		}
	}
	return e, nil
}

func (e *Encoder) Options() Options {
	return e.opts
}

// LatchBytes is the number of zero bytes appended after the pixel data.
func (e *Encoder) LatchBytes() int {
	return e.latch
}

// FrameLen returns the encoded size of a frame of n pixels.
func (e *Encoder) FrameLen(n int) int {
	return n*3*e.cells + e.latch
}

// FrameDuration is the time the bus needs to shift out a frame of n pixels.
func (e *Encoder) FrameDuration(n int) time.Duration {
	return time.Duration(e.FrameLen(n)*8) * e.opts.Scheme.Cell()
}

func (e *Encoder) Encode(pixels []model.RGB) Frame {
	return e.EncodeInto(nil, pixels)
}

// EncodeInto encodes into dst, reusing its storage when large enough.
func (e *Encoder) EncodeInto(dst Frame, pixels []model.RGB) Frame {
	n := e.FrameLen(len(pixels))
	if cap(dst) < n {
		dst = make(Frame, n)
	} else {
		dst = dst[:n]
	}

	off := 0
	order := e.opts.Order
	for _, p := range pixels {
		for i := 0; i < 3; i++ {
			v := int(p.Channel(order[i]))
			off += copy(dst[off:], e.lut[v*e.cells:(v+1)*e.cells])
		}
	}
	for i := off; i < n; i++ {
		dst[i] = 0
	}
	return dst
}
