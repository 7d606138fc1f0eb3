package model_test

import (
	"strconv"
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/coreman2200/funtimes-huewheel/model"
)

var TestHSVIsExpectedRGB = []struct {
	H, S, V uint8
	Expect  RGB
}{
	{0, 255, 100, RGB{100, 0, 0}},
	{43, 255, 100, RGB{99, 100, 0}},
	{85, 255, 100, RGB{1, 100, 0}},
	{128, 255, 100, RGB{0, 100, 98}},
	{170, 255, 100, RGB{0, 3, 100}},
	{213, 255, 100, RGB{96, 0, 100}},
	{255, 255, 255, RGB{255, 0, 15}},
	{0, 255, 255, RGB{255, 0, 0}},
	{42, 255, 255, RGB{255, 252, 0}},
	{10, 128, 200, RGB{200, 123, 99}},
}

func TestHSVToRGB(t *testing.T) {
	for k, v := range TestHSVIsExpectedRGB {
		t.Run("Given HSV"+strconv.Itoa(k), func(t *testing.T) {
			assert.Equal(t, v.Expect, HSVToRGB(v.H, v.S, v.V))
			assert.Equal(t, v.Expect, HSV{H: v.H, S: v.S, V: v.V}.RGB())
		})
	}
}

func TestHSVAchromatic(t *testing.T) {
	for h := 0; h < 256; h++ {
		for v := 0; v < 256; v++ {
			got := HSVToRGB(uint8(h), 0, uint8(v))
			if got != (RGB{uint8(v), uint8(v), uint8(v)}) {
				t.Fatalf("h=%d v=%d: got %+v", h, v, got)
			}
		}
	}
}

func TestHSVTotal(t *testing.T) {
	// Every input must convert without panicking, and v bounds every channel.
	for h := 0; h < 256; h++ {
		for s := 0; s < 256; s++ {
			for v := 0; v < 256; v++ {
				c := HSVToRGB(uint8(h), uint8(s), uint8(v))
				if c.R > uint8(v) || c.G > uint8(v) || c.B > uint8(v) {
					t.Fatalf("h=%d s=%d v=%d: channel above value %+v", h, s, v, c)
				}
			}
		}
	}
}

func TestHSVPrimariesAtRegionBoundaries(t *testing.T) {
	cases := []struct {
		name string
		h    uint8
		want func(RGB) bool
	}{
		{"red", 0, func(c RGB) bool { return c.R == 255 && c.G == 0 && c.B == 0 }},
		{"yellow", 43, func(c RGB) bool { return c.R > 250 && c.G == 255 && c.B == 0 }},
		{"green", 85, func(c RGB) bool { return c.R < 10 && c.G == 255 && c.B == 0 }},
		{"cyan", 128, func(c RGB) bool { return c.R == 0 && c.G == 255 && c.B > 245 }},
		{"blue", 170, func(c RGB) bool { return c.R == 0 && c.G < 10 && c.B == 255 }},
		{"magenta", 213, func(c RGB) bool { return c.R > 245 && c.G == 0 && c.B == 255 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := HSVToRGB(tc.h, 255, 255)
			assert.True(t, tc.want(c), "h=%d got %+v", tc.h, c)
		})
	}
}

func TestHSVSweepsHueForward(t *testing.T) {
	prev := -1.0
	for h := 0; h < 256; h++ {
		c := HSVToRGB(uint8(h), 255, 255)
		cc, ok := colorful.MakeColor(c.NRGBA())
		require.True(t, ok)
		deg, _, _ := cc.Hsv()
		require.GreaterOrEqual(t, deg+1e-9, prev, "hue went backwards at h=%d (%+v)", h, c)
		prev = deg
	}
	assert.Greater(t, prev, 350.0)
}

func TestRGBHelpers(t *testing.T) {
	c := RGB{R: 0x12, G: 0xab, B: 0x0f}
	assert.Equal(t, uint32(0x12ab0f), c.Uint32())
	assert.Equal(t, "#12ab0f", c.Hex())
	assert.Equal(t, c, RGBFromColor(c.NRGBA()))

	var d RGB
	for _, ch := range []byte("GRB") {
		d.SetChannel(ch, c.Channel(ch))
	}
	assert.Equal(t, c, d)

	assert.Equal(t, RGB{R: 100, G: 50}, RGB{R: 200, G: 100}.Scale(128))
	assert.Equal(t, RGB{}, c.Scale(0))
	assert.Equal(t, RGB{R: 254, G: 254, B: 254}, RGB{R: 255, G: 255, B: 255}.Scale(255))
}

func TestStripRainbow(t *testing.T) {
	s := NewStrip(4)
	s.Rainbow(250, 2, 255, 100)
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, HSVToRGB(250, 255, 100), s.At(0))
	assert.Equal(t, HSVToRGB(252, 255, 100), s.At(1))
	assert.Equal(t, HSVToRGB(254, 255, 100), s.At(2))
	assert.Equal(t, HSVToRGB(0, 255, 100), s.At(3), "hue wraps per pixel")

	s.Rainbow(7, 0, 255, 100)
	for i := 0; i < s.Len(); i++ {
		assert.Equal(t, HSVToRGB(7, 255, 100), s.At(i))
	}
}

func TestStripImageRoundTrip(t *testing.T) {
	s := NewStrip(3)
	s.Set(0, RGB{1, 2, 3})
	s.Set(1, RGB{4, 5, 6})
	s.Set(2, RGB{7, 8, 9})

	im := s.Image()
	assert.Equal(t, 3, im.Bounds().Dx())
	assert.Equal(t, 1, im.Bounds().Dy())

	d := NewStrip(3)
	d.FromImage(im)
	assert.Equal(t, s.Pixels(), d.Pixels())

	d.Clear()
	assert.Equal(t, RGB{}, d.At(1))
}

func TestNewStripBounds(t *testing.T) {
	assert.Equal(t, 1, NewStrip(0).Len())
	assert.Equal(t, MaxStripLength, NewStrip(MaxStripLength+5).Len())
}
