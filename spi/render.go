package spi

import (
	"fmt"
	"image"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	pspi "periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/funtimes-huewheel/led"
	"github.com/coreman2200/funtimes-huewheel/model"
)

// Preview decodes frames back into pixels and draws them on a
// display.Drawer, by default the ANSI console.
type Preview struct {
	drawer display.Drawer
	dec    *led.Decoder
	strip  *model.Strip
}

func NewPreview(d display.Drawer, dec *led.Decoder) *Preview {
	return &Preview{drawer: d, dec: dec, strip: model.NewStrip(1)}
}

// NewConsolePreview prints each frame at the console.
func NewConsolePreview(dec *led.Decoder, pixels int) *Preview {
	return NewPreview(screen.New(pixels), dec)
}

func (p *Preview) String() string {
	return "preview(" + p.drawer.String() + ")"
}

func (p *Preview) Transmit(f led.Frame) error {
	px, err := p.dec.Decode(f)
	if err != nil {
		return &TransportError{Transport: "preview", Op: "decode", Err: err}
	}
	if len(px) == 0 {
		return nil
	}
	if p.strip.Len() != len(px) {
		p.strip = model.NewStrip(len(px))
	}
	for i, c := range px {
		p.strip.Set(i, c)
	}
	if err := p.drawer.Draw(p.drawer.Bounds(), p.strip.Image(), image.Point{}); err != nil {
		return &TransportError{Transport: "preview", Op: "draw", Err: err}
	}
	return nil
}

func (p *Preview) Close() error {
	return p.drawer.Halt()
}

// NRZ hands decoded pixels to periph's nrzled driver, which does its own
// encoding at 2.5MHz and always emits GRB. It is a reference path for
// checking wiring against a known-good encoder, so dec must use GRB.
type NRZ struct {
	port pspi.PortCloser
	dev  *nrzled.Dev
	dec  *led.Decoder
	raw  []byte
}

func NewNRZ(p pspi.PortCloser, dec *led.Decoder, pixels int) (*NRZ, error) {
	if o := dec.Options().Order; o != led.OrderGRB {
		return nil, fmt.Errorf("spi: nrzled: %w: driver emits GRB, frames are %s", led.ErrOrder, o)
	}
	if pixels < 1 {
		pixels = 1
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: pixels,
		Channels:  3,
		Freq:      2500 * physic.KiloHertz,
	})
	if err != nil {
		return nil, fmt.Errorf("spi: nrzled: %w", err)
	}
	return &NRZ{port: p, dev: d, dec: dec, raw: make([]byte, 0, pixels*3)}, nil
}

func (n *NRZ) String() string {
	return n.dev.String()
}

func (n *NRZ) Transmit(f led.Frame) error {
	px, err := n.dec.Decode(f)
	if err != nil {
		return &TransportError{Transport: "nrzled", Op: "decode", Err: err}
	}
	n.raw = n.raw[:0]
	for _, c := range px {
		n.raw = append(n.raw, c.R, c.G, c.B)
	}
	if _, err := n.dev.Write(n.raw); err != nil {
		return &TransportError{Transport: "nrzled", Op: "write", Err: err}
	}
	return nil
}

func (n *NRZ) Close() error {
	if err := n.dev.Halt(); err != nil {
		_ = n.port.Close()
		return err
	}
	return n.port.Close()
}
