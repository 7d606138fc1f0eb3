package model

import (
	"image"
)

const MaxStripLength = 1024

// Strip is a chain of pixels in wire order. Pixel 0 is the one nearest the
// controller.
type Strip struct {
	pixels []RGB
}

func NewStrip(n int) *Strip {
	if n < 1 {
		n = 1
	}
	if n > MaxStripLength {
		n = MaxStripLength
	}
	return &Strip{pixels: make([]RGB, n)}
}

func (s *Strip) Len() int {
	return len(s.pixels)
}

func (s *Strip) At(i int) RGB {
	return s.pixels[i]
}

func (s *Strip) Set(i int, c RGB) {
	s.pixels[i] = c
}

func (s *Strip) Fill(c RGB) {
	for i := range s.pixels {
		s.pixels[i] = c
	}
}

func (s *Strip) Clear() {
	s.Fill(RGB{})
}

// Pixels returns the backing slice. It is overwritten by the next Fill or
// Rainbow.
func (s *Strip) Pixels() []RGB {
	return s.pixels
}

// Rainbow paints pixel i with hue+i*spread. A spread of 0 paints the whole
// strip with one color.
func (s *Strip) Rainbow(hue, spread, sat, val uint8) {
	h := hue
	for i := range s.pixels {
		s.pixels[i] = HSVToRGB(h, sat, val)
		h += spread
	}
}

// Image renders the strip as a single row, for display.Drawer sinks.
func (s *Strip) Image() *image.NRGBA {
	im := image.NewNRGBA(image.Rect(0, 0, len(s.pixels), 1))
	for x := 0; x < im.Rect.Max.X; x++ {
		im.SetNRGBA(x, 0, s.pixels[x].NRGBA())
	}
	return im
}

// FromImage copies the first row of img into the strip, truncating or
// leaving trailing pixels untouched as needed.
func (s *Strip) FromImage(img image.Image) {
	b := img.Bounds()
	for i := range s.pixels {
		x := b.Min.X + i
		if x >= b.Max.X {
			return
		}
		s.pixels[i] = RGBFromColor(img.At(x, b.Min.Y))
	}
}
