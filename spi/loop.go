package spi

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-huewheel/led"
	"github.com/coreman2200/funtimes-huewheel/model"
)

const (
	DFLT_PERIOD     = 20 * time.Millisecond
	DFLT_STEP       = 2
	DFLT_SATURATION = 255
	DFLT_VALUE      = 100
)

type LooperOptions struct {
	Period     time.Duration
	Step       uint8
	Saturation uint8
	Value      uint8
	StartHue   uint8
	// Pixels is the chain length. Pixel i shows hue+i*Spread.
	Pixels int
	Spread uint8
	Pacing Pacing
	Clock  Clock
	Logger *zerolog.Logger
	// OnFrame is called on the loop goroutine after each transmit, before
	// pacing. It must return quickly.
	OnFrame func(Report)
}

func DefaultLooperOptions() LooperOptions {
	return LooperOptions{
		Period:     DFLT_PERIOD,
		Step:       DFLT_STEP,
		Saturation: DFLT_SATURATION,
		Value:      DFLT_VALUE,
		Pixels:     1,
	}
}

// Report describes one frame.
type Report struct {
	Seq    uint64
	Hue    uint8
	Pixels []model.RGB
	Err    error
	// Work covers convert, encode and transmit.
	Work time.Duration
	// Elapsed includes pacing. It is zero when seen by OnFrame.
	Elapsed time.Duration
}

type Stats struct {
	Frames   uint64
	Dropped  uint64
	Overruns uint64
}

// Looper owns the animation state and the transport. Only the goroutine
// calling Run or Frame may touch the transport; Hue and Stats are safe from
// anywhere.
type Looper struct {
	enc   *led.Encoder
	tr    Transport
	opts  LooperOptions
	clock Clock
	log   zerolog.Logger
	strip *model.Strip
	buf   led.Frame
	seq   uint64

	hue      atomic.Uint32
	frames   atomic.Uint64
	dropped  atomic.Uint64
	overruns atomic.Uint64
}

// NewLooper takes opts as given apart from Period, Clock and Logger, which
// get defaults when unset. Zero Saturation, Value and Step are honoured, so
// start from DefaultLooperOptions() and override fields.
func NewLooper(enc *led.Encoder, tr Transport, opts LooperOptions) *Looper {
	if opts.Period <= 0 {
		opts.Period = DFLT_PERIOD
	}
	l := &Looper{
		enc:   enc,
		tr:    tr,
		opts:  opts,
		clock: opts.Clock,
		log:   zerolog.Nop(),
		strip: model.NewStrip(opts.Pixels),
	}
	if l.clock == nil {
		l.clock = SystemClock
	}
	if opts.Logger != nil {
		l.log = opts.Logger.With().Str("transport", tr.String()).Logger()
	}
	l.buf = make(led.Frame, 0, enc.FrameLen(l.strip.Len()))
	l.hue.Store(uint32(opts.StartHue))
	return l
}

func (l *Looper) Hue() uint8 {
	return uint8(l.hue.Load())
}

func (l *Looper) Stats() Stats {
	return Stats{
		Frames:   l.frames.Load(),
		Dropped:  l.dropped.Load(),
		Overruns: l.overruns.Load(),
	}
}

func (l *Looper) Transport() Transport {
	return l.tr
}

// Frame runs one iteration: convert, encode, transmit, advance, pace.
// A failed transmit drops the frame and nothing else.
func (l *Looper) Frame() Report {
	start := l.clock.Now()
	hue := l.Hue()

	l.strip.Rainbow(hue, l.opts.Spread, l.opts.Saturation, l.opts.Value)
	l.buf = l.enc.EncodeInto(l.buf, l.strip.Pixels())
	err := l.tr.Transmit(l.buf)

	l.seq++
	l.frames.Add(1)
	if err != nil {
		dropped := l.dropped.Add(1)
		l.log.Warn().Err(err).Uint64("seq", l.seq).Uint64("dropped", dropped).Msg("frame dropped")
	}

	l.hue.Store(uint32(hue + l.opts.Step))

	rep := Report{
		Seq:    l.seq,
		Hue:    hue,
		Pixels: append([]model.RGB(nil), l.strip.Pixels()...),
		Err:    err,
		Work:   l.clock.Now().Sub(start),
	}
	if rep.Work > l.opts.Period {
		l.overruns.Add(1)
	}
	if e := l.log.Debug(); e.Enabled() {
		e.Uint64("seq", l.seq).Uint8("hue", hue).Str("rgb", rep.Pixels[0].Hex()).Msg("frame")
	}
	if l.opts.OnFrame != nil {
		l.opts.OnFrame(rep)
	}

	l.opts.Pacing.wait(l.clock, start, l.opts.Period)
	rep.Elapsed = l.clock.Now().Sub(start)
	return rep
}

// Run loops until ctx is cancelled. Cancellation is checked once per frame,
// so Run returns within one period.
func (l *Looper) Run(ctx context.Context) error {
	l.log.Info().
		Dur("period", l.opts.Period).
		Uint8("step", l.opts.Step).
		Int("pixels", l.strip.Len()).
		Str("pacing", l.opts.Pacing.String()).
		Msg("frame loop starting")
	for {
		select {
		case <-ctx.Done():
			s := l.Stats()
			l.log.Info().Uint64("frames", s.Frames).Uint64("dropped", s.Dropped).Msg("frame loop stopped")
			return nil
		default:
		}
		l.Frame()
	}
}
