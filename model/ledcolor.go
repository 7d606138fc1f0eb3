package model

import (
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	RED_OFFSET   uint8 = 0x10
	GREEN_OFFSET uint8 = 0x08
	BLUE_OFFSET  uint8 = 0x0
)

// Width of one hue region. 6*43 overshoots 256, so region 5 covers 215..255.
const hueRegion uint8 = 43

// HSV is a perceptual color with 8-bit components. H is cyclic.
type HSV struct {
	H, S, V uint8
}

// RGB is a linear color with 8-bit components.
type RGB struct {
	R, G, B uint8
}

func (c HSV) RGB() RGB {
	return HSVToRGB(c.H, c.S, c.V)
}

// HSVToRGB converts using the integer 6-region model. All divisions are
// truncating shifts so output matches the reference animation bit for bit.
func HSVToRGB(h, s, v uint8) RGB {
	if s == 0 {
		return RGB{R: v, G: v, B: v}
	}

	region := h / hueRegion
	remainder := (h - region*hueRegion) * 6

	vv, ss, rr := uint16(v), uint16(s), uint16(remainder)
	p := uint8((vv * (255 - ss)) >> 8)
	q := uint8((vv * (255 - ((ss * rr) >> 8))) >> 8)
	t := uint8((vv * (255 - ((ss * (255 - rr)) >> 8))) >> 8)

	switch region {
	case 0:
		return RGB{R: v, G: t, B: p}
	case 1:
		return RGB{R: q, G: v, B: p}
	case 2:
		return RGB{R: p, G: v, B: t}
	case 3:
		return RGB{R: p, G: q, B: v}
	case 4:
		return RGB{R: t, G: p, B: v}
	default:
		return RGB{R: v, G: p, B: q}
	}
}

func (c RGB) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// Uint32 packs the color as 0x00RRGGBB.
func (c RGB) Uint32() uint32 {
	return uint32(c.R)<<RED_OFFSET | uint32(c.G)<<GREEN_OFFSET | uint32(c.B)<<BLUE_OFFSET
}

func (c RGB) Hex() string {
	cc, _ := colorful.MakeColor(c.NRGBA())
	return cc.Hex()
}

// Channel returns the component named by ch ('R', 'G' or 'B').
func (c RGB) Channel(ch byte) uint8 {
	switch ch {
	case 'R':
		return c.R
	case 'G':
		return c.G
	default:
		return c.B
	}
}

// SetChannel is the inverse of Channel.
func (c *RGB) SetChannel(ch byte, v uint8) {
	switch ch {
	case 'R':
		c.R = v
	case 'G':
		c.G = v
	default:
		c.B = v
	}
}

func RGBFromColor(c color.Color) RGB {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{R: n.R, G: n.G, B: n.B}
}

// Scale dims each channel by v/256 using the same >>8 arithmetic as HSVToRGB.
func (c RGB) Scale(v uint8) RGB {
	s := uint16(v)
	return RGB{
		R: uint8((uint16(c.R) * s) >> 8),
		G: uint8((uint16(c.G) * s) >> 8),
		B: uint8((uint16(c.B) * s) >> 8),
	}
}
