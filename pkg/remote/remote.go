package remote

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/oklog/ulid/v2"
)

// ErrUnknownCue is returned when a client reports on a cue that is no longer
// current.
var ErrUnknownCue = errors.New("remote: unknown cue")

type Kind string

const (
	Narration Kind = "narration"
	Video     Kind = "video"
)

// Cue is what the client should be playing.
type Cue struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	VideoID string `json:"videoId,omitempty"`
	Started bool   `json:"started"`
}

type cue struct {
	Cue
	audio   []byte
	started chan struct{}
	ended   chan error
}

// Device stands in for a browser that plays narration audio, music videos
// and the ambience loop. The orchestrator side blocks on cues until the
// client reports they started or ended.
type Device struct {
	debug bool

	mu       sync.Mutex
	current  *cue
	ambience bool
}

func New(debug bool) *Device {
	return &Device{debug: debug}
}

func (d *Device) publish(c *cue) {
	d.mu.Lock()
	d.current = c
	d.mu.Unlock()
	if d.debug {
		log.Printf("remote: cue %s (%s) published\n", c.ID, c.Kind)
	}
}

func (d *Device) release(c *cue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == c {
		d.current = nil
	}
}

func (d *Device) lookup(id string) (*cue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil || d.current.ID != id {
		return nil, ErrUnknownCue
	}
	return d.current, nil
}

// Play publishes a narration cue and blocks until the client reports its
// end. started is called when the client reports the audio is playing.
func (d *Device) Play(ctx context.Context, audio []byte, started func()) error {
	c := &cue{
		Cue:     Cue{ID: ulid.Make().String(), Kind: Narration},
		audio:   audio,
		started: make(chan struct{}),
		ended:   make(chan error, 1),
	}
	d.publish(c)
	defer d.release(c)

	startedC := c.started
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-startedC:
			startedC = nil
			started()
		case err := <-c.ended:
			if err == nil && startedC != nil {
				started()
			}
			return err
		}
	}
}

// Show publishes a video cue and blocks until the client reports its end.
func (d *Device) Show(ctx context.Context, id string) error {
	c := &cue{
		Cue:     Cue{ID: ulid.Make().String(), Kind: Video, VideoID: id},
		started: make(chan struct{}),
		ended:   make(chan error, 1),
	}
	d.publish(c)
	defer d.release(c)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-c.ended:
		return err
	}
}

// Current returns the cue the client should be playing.
func (d *Device) Current() (Cue, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return Cue{}, false
	}
	return d.current.Cue, true
}

// Audio returns the mp3 of a narration cue.
func (d *Device) Audio(id string) ([]byte, error) {
	c, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	if c.Kind != Narration {
		return nil, ErrUnknownCue
	}
	return c.audio, nil
}

// Started marks a cue as playing. Repeated reports are ignored.
func (d *Device) Started(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.current
	if c == nil || c.ID != id {
		return ErrUnknownCue
	}
	if !c.Started {
		c.Started = true
		close(c.started)
	}
	return nil
}

// Ended reports the end of a cue. A non-nil cause means the client couldn't
// play it.
func (d *Device) Ended(id string, cause error) error {
	c, err := d.lookup(id)
	if err != nil {
		return err
	}
	select {
	case c.ended <- cause:
	default:
	}
	return nil
}

// Ambience returns the ambience source backed by the client.
func (d *Device) Ambience() *Ambience {
	return &Ambience{d: d}
}

// AmbiencePlaying reports whether the client should play the ambience loop.
func (d *Device) AmbiencePlaying() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ambience
}

func (d *Device) setAmbience(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ambience = v
}

// Ambience is a flag the client polls to play or pause its loop.
type Ambience struct {
	d *Device
}

func (a *Ambience) Play() error {
	a.d.setAmbience(true)
	return nil
}

func (a *Ambience) Pause() error {
	a.d.setAmbience(false)
	return nil
}

func (a *Ambience) Close() error {
	a.d.setAmbience(false)
	return nil
}
