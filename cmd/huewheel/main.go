package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/coreman2200/funtimes-huewheel/config"
	"github.com/coreman2200/funtimes-huewheel/led"
	"github.com/coreman2200/funtimes-huewheel/monitor"
	"github.com/coreman2200/funtimes-huewheel/spi"
)

func main() {
	// ---- Flags (set flags win over config.yaml) ----
	var (
		configPath = flag.String("config", "huewheel.yaml", "path to config file")
		driver     = flag.String("driver", config.DriverSPI, "output: spi | nrzled | preview")
		port       = flag.String("port", "", "SPI port name (empty = first available)")
		scheme     = flag.String("scheme", "4x", "bit-cell scheme: 4x | 3x")
		pixels     = flag.Int("pixels", 1, "number of LEDs on the chain")
		addr       = flag.String("addr", "", "monitor HTTP listen address (empty = off)")
		level      = flag.String("log-level", "info", "trace | debug | info | warn | error")
		simOnly    = flag.Bool("sim-only", false, "force the console preview (no hardware output)")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Load config (optional) ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatal().Err(err).Str("path", *configPath).Msg("invalid config")
		}
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with defaults and flags")
		cfg = config.Default()
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "driver":
			cfg.Driver = *driver
		case "port":
			cfg.SPI.Port = *port
		case "scheme":
			cfg.SPI.Scheme = *scheme
		case "pixels":
			cfg.Pixels = *pixels
		case "addr":
			cfg.Monitor.Addr = *addr
		case "log-level":
			cfg.Log.Level = *level
		}
	})
	if *simOnly {
		cfg.Driver = config.DriverPreview
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid settings")
	}

	lvl, _ := zerolog.ParseLevel(cfg.Log.Level)
	zerolog.SetGlobalLevel(lvl)
	if cfg.Log.Format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	// ---- Wire format ----
	eo, err := cfg.EncoderOptions()
	if err != nil {
		log.Fatal().Err(err).Msg("encoder options")
	}
	enc, err := led.NewEncoder(eo)
	if err != nil {
		log.Fatal().Err(err).Str("scheme", eo.Scheme.Name).Msg("scheme does not meet WS2812B timing")
	}
	dec, err := led.NewDecoder(eo)
	if err != nil {
		log.Fatal().Err(err).Msg("decoder")
	}

	// ---- Output selection ----
	if _, err := host.Init(); err != nil {
		log.Fatal().Err(err).Msg("host init failed")
	}
	var tr spi.Transport
	switch cfg.Driver {
	case config.DriverSPI:
		b, err := spi.OpenBus(cfg.SPI.Port, eo.Scheme.Freq)
		if err != nil {
			log.Fatal().Err(err).Str("port", cfg.SPI.Port).Msg("SPI open failed")
		}
		if err := b.Fits(enc.FrameLen(cfg.Pixels)); err != nil {
			b.Close()
			log.Fatal().Err(err).Int("pixels", cfg.Pixels).Int("max_tx", b.MaxTxSize()).
				Msg("frame does not fit one SPI transfer; lower pixels, use scheme 3x or raise spidev bufsiz")
		}
		tr = b
	case config.DriverNRZ:
		p, err := spireg.Open(cfg.SPI.Port)
		if err != nil {
			log.Fatal().Err(err).Str("port", cfg.SPI.Port).Msg("SPI open failed")
		}
		n, err := spi.NewNRZ(p, dec, cfg.Pixels)
		if err != nil {
			p.Close()
			log.Fatal().Err(err).Msg("nrzled init failed")
		}
		tr = n
	default:
		tr = spi.NewConsolePreview(dec, cfg.Pixels)
	}
	defer func() {
		if err := tr.Close(); err != nil {
			log.Warn().Err(err).Msg("close output")
		}
	}()

	// ---- Looper ----
	lo, err := cfg.LooperOptions()
	if err != nil {
		log.Fatal().Err(err).Msg("looper options")
	}
	lo.Logger = &log.Logger

	var mon *monitor.Server
	if cfg.Monitor.Addr != "" {
		lo.OnFrame = func(r spi.Report) { mon.Observe(r) }
	}
	looper := spi.NewLooper(enc, tr, lo)
	if cfg.Monitor.Addr != "" {
		mon = monitor.New(looper, &log.Logger)
	}

	log.Info().
		Str("driver", cfg.Driver).
		Str("output", tr.String()).
		Str("scheme", eo.Scheme.Name).
		Str("order", string(eo.Order)).
		Int("pixels", cfg.Pixels).
		Int("frame_bytes", enc.FrameLen(cfg.Pixels)).
		Dur("frame_time", enc.FrameDuration(cfg.Pixels)).
		Msg("starting")

	// ---- Run loop & monitor until signalled ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return looper.Run(ctx) })
	if mon != nil {
		g.Go(func() error { return mon.ListenAndServe(ctx, cfg.Monitor.Addr) })
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("stopped")
	}
	st := looper.Stats()
	log.Info().Uint64("frames", st.Frames).Uint64("dropped", st.Dropped).Uint64("overruns", st.Overruns).Msg("shutting down")
}
