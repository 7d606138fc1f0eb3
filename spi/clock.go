package spi

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Clock is the frame clock. Now must carry a monotonic reading.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

var SystemClock Clock = systemClock{}

// Pacing selects how a frame waits out the rest of its period. Every mode
// returns only once the full period has elapsed since the frame started.
type Pacing int

const (
	// PaceHybrid sleeps until spinWindow before the deadline, then spins.
	PaceHybrid Pacing = iota
	// PaceSpin re-reads the clock until the deadline.
	PaceSpin
	// PaceSleep sleeps the remainder once and spins off any early wakeup.
	PaceSleep
)

const spinWindow = time.Millisecond

func ParsePacing(s string) (Pacing, error) {
	switch strings.ToLower(s) {
	case "", "hybrid":
		return PaceHybrid, nil
	case "spin":
		return PaceSpin, nil
	case "sleep":
		return PaceSleep, nil
	}
	return 0, fmt.Errorf("spi: unknown pacing %q", s)
}

func (p Pacing) String() string {
	switch p {
	case PaceSpin:
		return "spin"
	case PaceSleep:
		return "sleep"
	default:
		return "hybrid"
	}
}

func (p Pacing) wait(c Clock, start time.Time, period time.Duration) {
	switch p {
	case PaceSleep:
		if rem := period - c.Now().Sub(start); rem > 0 {
			c.Sleep(rem)
		}
	case PaceHybrid:
		if rem := period - c.Now().Sub(start) - spinWindow; rem > 0 {
			c.Sleep(rem)
		}
	}
	for c.Now().Sub(start) < period {
		runtime.Gosched()
	}
}
