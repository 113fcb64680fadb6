package narration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
)

// ErrFailed matches every synthesis or playback failure returned by Speak.
var ErrFailed = errors.New("narration: failed")

// Error wraps the cause of a failed narration.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("narration: failed: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrFailed
}

// Synthesizer converts text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Output plays encoded audio and blocks until it has finished. started is
// called once the audio is actually playing.
type Output interface {
	Play(ctx context.Context, audio []byte, started func()) error
}

// Pauser is paused when narration audio starts.
type Pauser interface {
	Pause()
}

// Player speaks one narration at a time.
type Player struct {
	synth    Synthesizer
	out      Output
	ambience Pauser
	debug    bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(synth Synthesizer, out Output, ambience Pauser, debug bool) *Player {
	return &Player{
		synth:    synth,
		out:      out,
		ambience: ambience,
		debug:    debug,
	}
}

// Speak synthesizes text and plays it to completion. A narration already in
// flight is abandoned, and its audio stopped, before the new one starts.
func (p *Player) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return &Error{Err: errors.New("empty text")}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.mu.Lock()
	prevCancel, prevDone := p.cancel, p.done
	p.cancel, p.done = cancel, done
	p.mu.Unlock()
	defer func() {
		cancel()
		close(done)
		p.mu.Lock()
		if p.done == done {
			p.cancel, p.done = nil, nil
		}
		p.mu.Unlock()
	}()

	if prevCancel != nil {
		prevCancel()
		select {
		case <-prevDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if p.debug {
		log.Printf("narration: synthesizing %d characters\n", len(text))
	}
	audio, err := p.synth.Synthesize(ctx, text)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return &Error{Err: err}
	}
	if len(audio) == 0 {
		return &Error{Err: errors.New("empty audio")}
	}

	started := func() {
		if ctx.Err() != nil {
			return
		}
		if p.debug {
			log.Println("narration: on air")
		}
		if p.ambience != nil {
			p.ambience.Pause()
		}
	}
	err = p.out.Play(ctx, audio, started)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return &Error{Err: err}
	}
	return nil
}

// Stop abandons the narration in flight, if any.
func (p *Player) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Speaking reports whether a narration is in flight.
func (p *Player) Speaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done != nil
}
