package video

import (
	"context"
	"log"
	"time"

	"github.com/igolaizola/timeslip/pkg/clock"
	"github.com/igolaizola/timeslip/pkg/youtube"
	"github.com/pkg/browser"
)

// Durations returns the length of a video.
type Durations interface {
	Duration(ctx context.Context, id string) (time.Duration, error)
}

// Timed is a screen for terminals: it optionally opens the video in the
// system browser and waits for the video's length.
type Timed struct {
	durations Durations
	clock     clock.Clock
	open      bool
	max       time.Duration
	fallback  time.Duration
}

type TimedConfig struct {
	// Open launches the watch page in the system browser.
	Open bool
	// Max caps the wait for a video (0 means no cap).
	Max time.Duration
	// Fallback is used when the length can't be obtained.
	Fallback time.Duration
}

func NewTimed(durations Durations, c clock.Clock, cfg *TimedConfig) *Timed {
	if c == nil {
		c = clock.Real{}
	}
	if cfg == nil {
		cfg = &TimedConfig{}
	}
	fallback := cfg.Fallback
	if fallback == 0 {
		fallback = 4 * time.Minute
	}
	return &Timed{
		durations: durations,
		clock:     c,
		open:      cfg.Open,
		max:       cfg.Max,
		fallback:  fallback,
	}
}

func (t *Timed) Show(ctx context.Context, id string) error {
	d := t.fallback
	if t.durations != nil {
		candidate, err := t.durations.Duration(ctx, id)
		switch {
		case err != nil:
			log.Printf("video: couldn't get length of %s, using %s: %v\n", id, d, err)
		case candidate > 0:
			d = candidate
		}
	}
	if t.max > 0 && d > t.max {
		d = t.max
	}
	u := youtube.URL(id)
	log.Printf("video: now playing %s (%s)\n", u, d)
	if t.open {
		if err := browser.OpenURL(u); err != nil {
			log.Printf("video: couldn't open browser: %v\n", err)
		}
	}
	return clock.Sleep(ctx, t.clock, d)
}
