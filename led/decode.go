package led

import (
	"fmt"
	"time"

	"github.com/coreman2200/funtimes-huewheel/model"
)

// Pulse is one protocol symbol as seen on the wire.
type Pulse struct {
	High, Low time.Duration
	Bit       byte
}

// Decoder reads frames back the way a chip would: it measures each high and
// low run and classifies the pair against the timing windows.
type Decoder struct {
	opts Options
}

func NewDecoder(o Options) (*Decoder, error) {
	o = o.withDefaults()
	if err := o.Order.validate(); err != nil {
		return nil, err
	}
	if o.Scheme.CellsPerBit < 1 || o.Scheme.Freq <= 0 {
		return nil, fmt.Errorf("%w: scheme %q", ErrTiming, o.Scheme.Name)
	}
	return &Decoder{opts: o}, nil
}

func (d *Decoder) Options() Options {
	return d.opts
}

// Pulses returns every symbol up to the first latch gap.
func (d *Decoder) Pulses(f Frame) ([]Pulse, error) {
	cell := d.opts.Scheme.Cell()
	t := d.opts.Timing
	total := len(f) * 8
	at := func(i int) bool {
		return f[i/8]>>(7-uint(i%8))&1 != 0
	}

	i := 0
	for i < total && !at(i) {
		i++
	}
	if i == total {
		if time.Duration(total)*cell >= t.Reset {
			return nil, nil
		}
		return nil, ErrNoLatch
	}

	var out []Pulse
	for i < total {
		hi := 0
		for i < total && at(i) {
			hi++
			i++
		}
		lo := 0
		for i < total && !at(i) {
			lo++
			i++
		}
		p := Pulse{High: time.Duration(hi) * cell, Low: time.Duration(lo) * cell}
		latched := p.Low >= t.Reset

		switch {
		case t.T0H.Contains(p.High) && (latched || t.T0L.Contains(p.Low)):
			p.Bit = 0
		case t.T1H.Contains(p.High) && (latched || t.T1L.Contains(p.Low)):
			p.Bit = 1
		default:
			return out, fmt.Errorf("%w: symbol %d high=%s low=%s", ErrSymbol, len(out), p.High, p.Low)
		}
		out = append(out, p)
		if latched {
			return out, nil
		}
	}
	return out, ErrNoLatch
}

// Decode recovers the pixels carried by f.
func (d *Decoder) Decode(f Frame) ([]model.RGB, error) {
	pulses, err := d.Pulses(f)
	if err != nil {
		return nil, err
	}
	if len(pulses)%24 != 0 {
		return nil, fmt.Errorf("%w: %d bits", ErrPartialPixel, len(pulses))
	}

	order := d.opts.Order
	pixels := make([]model.RGB, len(pulses)/24)
	for n := range pixels {
		for c := 0; c < 3; c++ {
			var v byte
			for _, p := range pulses[n*24+c*8 : n*24+c*8+8] {
				v = v<<1 | p.Bit
			}
			pixels[n].SetChannel(order[c], v)
		}
	}
	return pixels, nil
}
