package led

import (
	"fmt"
	"math/bits"
	"strings"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Window is an inclusive tolerance range for one pulse phase.
type Window struct {
	Min, Max time.Duration
}

func (w Window) Contains(d time.Duration) bool {
	return d >= w.Min && d <= w.Max
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]", w.Min, w.Max)
}

// Timing holds the chip's datasheet tolerance windows.
type Timing struct {
	T0H, T0L Window
	T1H, T1L Window
	// Reset is the shortest idle-low period that latches the frame.
	Reset time.Duration
}

// WS2812B uses the +-150ns windows of the WS2812B datasheet. Reset is the
// 280us required by current production parts rather than the original 50us.
var WS2812B = Timing{
	T0H:   Window{250 * time.Nanosecond, 550 * time.Nanosecond},
	T0L:   Window{700 * time.Nanosecond, 1000 * time.Nanosecond},
	T1H:   Window{650 * time.Nanosecond, 950 * time.Nanosecond},
	T1L:   Window{300 * time.Nanosecond, 600 * time.Nanosecond},
	Reset: 280 * time.Microsecond,
}

// Scheme maps one protocol bit onto CellsPerBit SPI bit-cells. Zero and One
// hold the cell patterns in their low CellsPerBit bits, first cell in the
// most significant position. Freq is the bus clock the patterns were
// designed for; change one and the other must be recomputed.
type Scheme struct {
	Name        string
	CellsPerBit int
	Zero, One   byte
	Freq        physic.Frequency
}

var (
	// Scheme4x gives 313ns cells: 0 = 313ns high / 939ns low,
	// 1 = 939ns high / 313ns low.
	Scheme4x = Scheme{Name: "4x", CellsPerBit: 4, Zero: 0b1000, One: 0b1110, Freq: 3200 * physic.KiloHertz}
	// Scheme3x gives 417ns cells: 0 = 417ns high / 834ns low,
	// 1 = 834ns high / 417ns low.
	Scheme3x = Scheme{Name: "3x", CellsPerBit: 3, Zero: 0b100, One: 0b110, Freq: 2400 * physic.KiloHertz}
)

var schemes = []Scheme{Scheme4x, Scheme3x}

func SchemeByName(name string) (Scheme, error) {
	for _, s := range schemes {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return Scheme{}, fmt.Errorf("led: unknown scheme %q", name)
}

// Cell is the duration of one bus bit-cell.
func (s Scheme) Cell() time.Duration {
	return s.Freq.Period()
}

func (s Scheme) pattern(bit byte) byte {
	if bit != 0 {
		return s.One
	}
	return s.Zero
}

// Waveform returns the high and low durations of the symbol for bit.
func (s Scheme) Waveform(bit byte) (high, low time.Duration) {
	p := s.pattern(bit)
	hi := bits.LeadingZeros8(^(p << (8 - s.CellsPerBit)))
	cell := s.Cell()
	return time.Duration(hi) * cell, time.Duration(s.CellsPerBit-hi) * cell
}

// Validate checks the patterns are well formed (high run then low run) and
// that both symbols land inside t's windows at s.Freq.
func (s Scheme) Validate(t Timing) error {
	if s.CellsPerBit < 2 || s.CellsPerBit > 8 {
		return fmt.Errorf("%w: %d cells per bit", ErrTiming, s.CellsPerBit)
	}
	if s.Freq <= 0 {
		return fmt.Errorf("%w: no bus frequency", ErrTiming)
	}
	for _, bit := range []byte{0, 1} {
		p := s.pattern(bit)
		if p>>s.CellsPerBit != 0 {
			return fmt.Errorf("%w: pattern %#b wider than %d cells", ErrTiming, p, s.CellsPerBit)
		}
		high, low := s.Waveform(bit)
		// Only 1...10...0 shapes decode to a single pulse.
		hi := int(high / s.Cell())
		want := byte((1<<hi)-1) << (s.CellsPerBit - hi)
		if hi == 0 || low == 0 || p != want {
			return fmt.Errorf("%w: pattern %#b is not a single high-then-low pulse", ErrTiming, p)
		}
		hw, lw := t.T0H, t.T0L
		if bit == 1 {
			hw, lw = t.T1H, t.T1L
		}
		if !hw.Contains(high) {
			return fmt.Errorf("%w: scheme %s bit %d high %s outside %s", ErrTiming, s.Name, bit, high, hw)
		}
		if !lw.Contains(low) {
			return fmt.Errorf("%w: scheme %s bit %d low %s outside %s", ErrTiming, s.Name, bit, low, lw)
		}
	}
	return nil
}

// Order is the channel order on the wire, e.g. "GRB" for WS2812.
type Order string

const (
	OrderGRB Order = "GRB"
	OrderRGB Order = "RGB"
)

func ParseOrder(s string) (Order, error) {
	o := Order(strings.ToUpper(s))
	if err := o.validate(); err != nil {
		return "", err
	}
	return o, nil
}

func (o Order) validate() error {
	if len(o) != 3 {
		return fmt.Errorf("%w: %q", ErrOrder, string(o))
	}
	seen := map[byte]bool{}
	for i := 0; i < 3; i++ {
		c := o[i]
		if (c != 'R' && c != 'G' && c != 'B') || seen[c] {
			return fmt.Errorf("%w: %q", ErrOrder, string(o))
		}
		seen[c] = true
	}
	return nil
}
