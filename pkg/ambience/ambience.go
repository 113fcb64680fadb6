package ambience

import (
	"log"
	"sync"
)

// Source is a looping audio source.
type Source interface {
	Play() error
	Pause() error
	Close() error
}

// Controller owns the single ambience source. Start and Pause are
// idempotent and safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	src     Source
	playing bool
	debug   bool
}

func New(src Source, debug bool) *Controller {
	if src == nil {
		src = Silent{}
	}
	return &Controller{src: src, debug: debug}
}

// Start begins or resumes the loop.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		return
	}
	if err := c.src.Play(); err != nil {
		log.Printf("ambience: couldn't play: %v\n", err)
		return
	}
	c.playing = true
	if c.debug {
		log.Println("ambience: playing")
	}
}

// Pause pauses the loop.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		return
	}
	if err := c.src.Pause(); err != nil {
		log.Printf("ambience: couldn't pause: %v\n", err)
	}
	c.playing = false
	if c.debug {
		log.Println("ambience: paused")
	}
}

func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Close pauses and releases the source.
func (c *Controller) Close() error {
	c.Pause()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.src.Close()
}

// Silent is a source that plays nothing.
type Silent struct{}

func (Silent) Play() error  { return nil }
func (Silent) Pause() error { return nil }
func (Silent) Close() error { return nil }
