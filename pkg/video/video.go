package video

import (
	"context"
	"log"
	"sync"
)

// Searcher finds the video for a query. An empty id means no match.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Screen shows a video and blocks until it reaches its natural end or ctx
// is done.
type Screen interface {
	Show(ctx context.Context, id string) error
}

// Bridge resolves and plays music videos.
type Bridge struct {
	search Searcher
	screen Screen
	debug  bool

	mu      sync.Mutex
	playing uint64
}

func New(search Searcher, screen Screen, debug bool) *Bridge {
	return &Bridge{
		search: search,
		screen: screen,
		debug:  debug,
	}
}

// Resolve returns the video id for a query. Lookup failures are logged and
// reported as no match.
func (b *Bridge) Resolve(ctx context.Context, query string) (string, bool) {
	if b.search == nil {
		return "", false
	}
	id, err := b.search.Search(ctx, query)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("video: couldn't resolve %q: %v\n", query, err)
		}
		return "", false
	}
	if id == "" {
		if b.debug {
			log.Printf("video: no match for %q\n", query)
		}
		return "", false
	}
	return id, true
}

// Play shows the video and returns nil once it has ended. It returns
// ctx.Err() if the video was detached first. Only the latest playback can
// report an end: starting a new one detaches the previous.
func (b *Bridge) Play(ctx context.Context, id string) error {
	b.mu.Lock()
	b.playing++
	seq := b.playing
	b.mu.Unlock()

	err := b.screen.Show(ctx, id)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	b.mu.Lock()
	current := b.playing == seq
	b.mu.Unlock()
	if !current {
		return context.Canceled
	}
	if err != nil {
		log.Printf("video: couldn't play %s: %v\n", id, err)
	}
	return nil
}
