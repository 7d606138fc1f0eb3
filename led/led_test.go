package led

import (
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/funtimes-huewheel/model"
)

func mustEncoder(t *testing.T, o Options) *Encoder {
	t.Helper()
	e, err := NewEncoder(o)
	require.NoError(t, err)
	return e
}

func mustDecoder(t *testing.T, o Options) *Decoder {
	t.Helper()
	d, err := NewDecoder(o)
	require.NoError(t, err)
	return d
}

func TestSchemesWithinWS2812BWindows(t *testing.T) {
	for _, s := range []Scheme{Scheme4x, Scheme3x} {
		assert.NoError(t, s.Validate(WS2812B), s.Name)
	}
}

func TestSchemeWaveform(t *testing.T) {
	high, low := Scheme4x.Waveform(0)
	assert.Equal(t, 313*time.Nanosecond, high)
	assert.Equal(t, 939*time.Nanosecond, low)

	high, low = Scheme4x.Waveform(1)
	assert.Equal(t, 939*time.Nanosecond, high)
	assert.Equal(t, 313*time.Nanosecond, low)

	high, low = Scheme3x.Waveform(1)
	assert.Equal(t, 834*time.Nanosecond, high)
	assert.Equal(t, 417*time.Nanosecond, low)
}

func TestSchemeValidateRejects(t *testing.T) {
	cases := map[string]Scheme{
		"too fast":     {Name: "fast", CellsPerBit: 4, Zero: 0b1000, One: 0b1110, Freq: 8 * physic.MegaHertz},
		"too slow":     {Name: "slow", CellsPerBit: 4, Zero: 0b1000, One: 0b1110, Freq: 1 * physic.MegaHertz},
		"split pulse":  {Name: "split", CellsPerBit: 4, Zero: 0b1000, One: 0b1010, Freq: 3200 * physic.KiloHertz},
		"starts low":   {Name: "low", CellsPerBit: 4, Zero: 0b0100, One: 0b1110, Freq: 3200 * physic.KiloHertz},
		"no low":       {Name: "high", CellsPerBit: 4, Zero: 0b1000, One: 0b1111, Freq: 3200 * physic.KiloHertz},
		"too wide":     {Name: "wide", CellsPerBit: 3, Zero: 0b1000, One: 0b110, Freq: 2400 * physic.KiloHertz},
		"one cell":     {Name: "one", CellsPerBit: 1, Zero: 0, One: 1, Freq: 800 * physic.KiloHertz},
		"no frequency": {Name: "nofreq", CellsPerBit: 4, Zero: 0b1000, One: 0b1110},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.Validate(WS2812B), ErrTiming)
		})
	}
}

func TestSchemeByName(t *testing.T) {
	s, err := SchemeByName("4X")
	require.NoError(t, err)
	assert.Equal(t, Scheme4x, s)
	s, err = SchemeByName("3x")
	require.NoError(t, err)
	assert.Equal(t, Scheme3x, s)
	_, err = SchemeByName("5x")
	assert.Error(t, err)
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("grb")
	require.NoError(t, err)
	assert.Equal(t, OrderGRB, o)

	for _, bad := range []string{"", "RRB", "RGBW", "RGX"} {
		_, err := ParseOrder(bad)
		assert.ErrorIs(t, err, ErrOrder, bad)
	}
}

func TestNewEncoderRejectsShortLatch(t *testing.T) {
	_, err := NewEncoder(Options{Latch: 50 * time.Microsecond})
	assert.ErrorIs(t, err, ErrTiming)
}

func TestEncodeScheme4x(t *testing.T) {
	e := mustEncoder(t, Options{})
	assert.Equal(t, 120, e.LatchBytes())

	f := e.Encode([]model.RGB{{R: 0xFF, G: 0x00, B: 0x80}})
	require.Len(t, f, 12+120)

	// GRB order, MSB first, 0 -> 1000 and 1 -> 1110.
	assert.Equal(t, []byte{0x88, 0x88, 0x88, 0x88}, []byte(f[0:4]), "green")
	assert.Equal(t, []byte{0xEE, 0xEE, 0xEE, 0xEE}, []byte(f[4:8]), "red")
	assert.Equal(t, []byte{0xE8, 0x88, 0x88, 0x88}, []byte(f[8:12]), "blue")
	for i, b := range f[12:] {
		require.Zero(t, b, "latch byte %d", i)
	}
}

func TestEncodeScheme3x(t *testing.T) {
	e := mustEncoder(t, Options{Scheme: Scheme3x, Order: OrderRGB})
	assert.Equal(t, 90, e.LatchBytes())

	f := e.Encode([]model.RGB{{R: 0xFF, G: 0x00, B: 0xFF}})
	require.Len(t, f, 9+90)
	assert.Equal(t, []byte{0xDB, 0x6D, 0xB6}, []byte(f[0:3]), "red")
	assert.Equal(t, []byte{0x92, 0x49, 0x24}, []byte(f[3:6]), "green")
	assert.Equal(t, []byte{0xDB, 0x6D, 0xB6}, []byte(f[6:9]), "blue")
}

func TestEncodeIntoReusesAndClears(t *testing.T) {
	e := mustEncoder(t, Options{})
	px := []model.RGB{{R: 1, G: 2, B: 3}, {R: 250, G: 128, B: 7}}

	buf := make(Frame, 0, 1024)
	buf = buf[:cap(buf)]
	for i := range buf {
		buf[i] = 0xFF
	}
	got := e.EncodeInto(buf[:0], px)
	assert.Equal(t, e.Encode(px), got)
	assert.Same(t, &buf[0], &got[0], "storage reused")
	assert.Equal(t, e.FrameLen(2), len(got))
}

func TestFrameDuration(t *testing.T) {
	e := mustEncoder(t, Options{})
	// 132 bytes * 8 cells * 313ns
	assert.Equal(t, 132*8*313*time.Nanosecond, e.FrameDuration(1))
	assert.GreaterOrEqual(t, int64(e.FrameDuration(0)), int64(WS2812B.Reset))
}

func TestRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(2812))
	for _, s := range []Scheme{Scheme4x, Scheme3x} {
		for _, o := range []Order{OrderGRB, OrderRGB, "BRG"} {
			for _, n := range []int{0, 1, 7, 60} {
				t.Run(s.Name+"/"+string(o)+"/"+strconv.Itoa(n), func(t *testing.T) {
					opts := Options{Scheme: s, Order: o}
					e := mustEncoder(t, opts)
					d := mustDecoder(t, opts)

					px := make([]model.RGB, n)
					for i := range px {
						px[i] = model.RGB{R: uint8(rnd.Intn(256)), G: uint8(rnd.Intn(256)), B: uint8(rnd.Intn(256))}
					}
					got, err := d.Decode(e.Encode(px))
					require.NoError(t, err)
					if n == 0 {
						assert.Empty(t, got)
					} else {
						assert.Equal(t, px, got)
					}
				})
			}
		}
	}
}

func TestPulsesClassifyWithinWindows(t *testing.T) {
	e := mustEncoder(t, Options{})
	d := mustDecoder(t, Options{})

	px := []model.RGB{model.HSVToRGB(0, 255, 100), model.HSVToRGB(43, 255, 100), model.HSVToRGB(128, 255, 100)}
	pulses, err := d.Pulses(e.Encode(px))
	require.NoError(t, err)
	require.Len(t, pulses, 72)

	for i, p := range pulses {
		last := i == len(pulses)-1
		switch p.Bit {
		case 0:
			assert.True(t, WS2812B.T0H.Contains(p.High), "pulse %d high %s", i, p.High)
			if !last {
				assert.True(t, WS2812B.T0L.Contains(p.Low), "pulse %d low %s", i, p.Low)
			}
		case 1:
			assert.True(t, WS2812B.T1H.Contains(p.High), "pulse %d high %s", i, p.High)
			if !last {
				assert.True(t, WS2812B.T1L.Contains(p.Low), "pulse %d low %s", i, p.Low)
			}
		}
	}
	assert.GreaterOrEqual(t, int64(pulses[71].Low), int64(WS2812B.Reset), "latch gap")
}

func TestDecodeErrors(t *testing.T) {
	e := mustEncoder(t, Options{})
	d := mustDecoder(t, Options{})
	px := []model.RGB{{R: 10, G: 20, B: 30}}

	t.Run("no latch", func(t *testing.T) {
		f := e.Encode(px)
		_, err := d.Decode(f[:12])
		assert.ErrorIs(t, err, ErrNoLatch)
	})

	t.Run("short idle", func(t *testing.T) {
		_, err := d.Decode(make(Frame, 4))
		assert.ErrorIs(t, err, ErrNoLatch)
	})

	t.Run("stretched pulse", func(t *testing.T) {
		f := e.Encode(px)
		f[0] = 0xFF
		_, err := d.Decode(f)
		assert.ErrorIs(t, err, ErrSymbol)
	})

	t.Run("partial pixel", func(t *testing.T) {
		f := e.Encode(px)
		short := append(Frame{}, f[:8]...)
		short = append(short, make(Frame, e.LatchBytes())...)
		_, err := d.Decode(short)
		assert.ErrorIs(t, err, ErrPartialPixel)
	})
}

func TestDecoderRejectsBadOrder(t *testing.T) {
	_, err := NewDecoder(Options{Order: "RGG"})
	assert.ErrorIs(t, err, ErrOrder)
}
