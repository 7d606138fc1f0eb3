package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-huewheel/led"
	"github.com/coreman2200/funtimes-huewheel/model"
	"github.com/coreman2200/funtimes-huewheel/spi"
)

const (
	DriverSPI     = "spi"
	DriverNRZ     = "nrzled"
	DriverPreview = "preview"
)

type SPI struct {
	Port   string        `yaml:"port"`   // periph spireg name; "" picks the first port
	Scheme string        `yaml:"scheme"` // 4x | 3x
	Latch  time.Duration `yaml:"latch"`  // e.g. 300us
}

type Animation struct {
	Saturation uint8 `yaml:"saturation"`
	Value      uint8 `yaml:"value"`
	Step       uint8 `yaml:"step"`
	Spread     uint8 `yaml:"spread"`
	StartHue   uint8 `yaml:"start_hue"`
}

type Frame struct {
	Period time.Duration `yaml:"period"`
	Pacing string        `yaml:"pacing"` // hybrid | spin | sleep
}

type Monitor struct {
	Addr string `yaml:"addr"` // "" disables the HTTP monitor
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

type Config struct {
	Driver     string    `yaml:"driver"` // spi | nrzled | preview
	SPI        SPI       `yaml:"spi"`
	ColorOrder string    `yaml:"color_order"`
	Pixels     int       `yaml:"pixels"`
	Animation  Animation `yaml:"animation"`
	Frame      Frame     `yaml:"frame"`
	Monitor    Monitor   `yaml:"monitor"`
	Log        Log       `yaml:"log"`
}

func Default() *Config {
	return &Config{
		Driver: DriverSPI,
		SPI: SPI{
			Scheme: led.Scheme4x.Name,
			Latch:  led.DefaultLatch,
		},
		ColorOrder: string(led.OrderGRB),
		Pixels:     1,
		Animation: Animation{
			Saturation: spi.DFLT_SATURATION,
			Value:      spi.DFLT_VALUE,
			Step:       spi.DFLT_STEP,
		},
		Frame: Frame{
			Period: spi.DFLT_PERIOD,
			Pacing: spi.PaceHybrid.String(),
		},
		Log: Log{
			Level:  zerolog.InfoLevel.String(),
			Format: "console",
		},
	}
}

// Load reads path over the defaults; keys absent from the file keep their
// default value.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSPI, DriverNRZ, DriverPreview:
	default:
		return fmt.Errorf("driver must be one of spi, nrzled, preview (got %q)", c.Driver)
	}
	if _, err := led.SchemeByName(c.SPI.Scheme); err != nil {
		return fmt.Errorf("spi.scheme: %w", err)
	}
	if c.SPI.Latch <= 0 {
		return errors.New("spi.latch must be positive")
	}
	order, err := led.ParseOrder(c.ColorOrder)
	if err != nil {
		return fmt.Errorf("color_order: %w", err)
	}
	if c.Driver == DriverNRZ && order != led.OrderGRB {
		return fmt.Errorf("color_order must be GRB when driver is nrzled (got %q)", c.ColorOrder)
	}
	if c.Pixels < 1 || c.Pixels > model.MaxStripLength {
		return fmt.Errorf("pixels must be in 1..%d", model.MaxStripLength)
	}
	if c.Frame.Period <= 0 {
		return errors.New("frame.period must be positive")
	}
	if _, err := spi.ParsePacing(c.Frame.Pacing); err != nil {
		return fmt.Errorf("frame.pacing: %w", err)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json (got %q)", c.Log.Format)
	}
	return nil
}

// EncoderOptions resolves the wire settings. Call Validate first.
func (c *Config) EncoderOptions() (led.Options, error) {
	s, err := led.SchemeByName(c.SPI.Scheme)
	if err != nil {
		return led.Options{}, err
	}
	o, err := led.ParseOrder(c.ColorOrder)
	if err != nil {
		return led.Options{}, err
	}
	return led.Options{
		Scheme: s,
		Order:  o,
		Timing: led.WS2812B,
		Latch:  c.SPI.Latch,
	}, nil
}

// LooperOptions resolves the animation settings. Clock, Logger and OnFrame
// are left for the caller.
func (c *Config) LooperOptions() (spi.LooperOptions, error) {
	p, err := spi.ParsePacing(c.Frame.Pacing)
	if err != nil {
		return spi.LooperOptions{}, err
	}
	return spi.LooperOptions{
		Period:     c.Frame.Period,
		Step:       c.Animation.Step,
		Saturation: c.Animation.Saturation,
		Value:      c.Animation.Value,
		StartHue:   c.Animation.StartHue,
		Pixels:     c.Pixels,
		Spread:     c.Animation.Spread,
		Pacing:     p,
	}, nil
}
