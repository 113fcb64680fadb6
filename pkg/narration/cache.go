package narration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
)

// Store keeps mp3 files by id.
type Store interface {
	GetMP3(ctx context.Context, path, id string) error
	SetMP3(ctx context.Context, path, id string) error
}

// Cache is a Synthesizer that reuses audio already synthesized for the same
// voice and text.
type Cache struct {
	synth Synthesizer
	store Store
	voice string
	debug bool
}

func NewCache(synth Synthesizer, store Store, voice string, debug bool) *Cache {
	return &Cache{
		synth: synth,
		store: store,
		voice: voice,
		debug: debug,
	}
}

// Key returns the cache id for a text spoken with a voice.
func Key(voice, text string) string {
	sum := sha256.Sum256([]byte(voice + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) Synthesize(ctx context.Context, text string) ([]byte, error) {
	id := Key(c.voice, text)

	tmp, err := os.CreateTemp("", "timeslip-*.mp3")
	if err != nil {
		return nil, fmt.Errorf("narration: couldn't create temp file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := c.store.GetMP3(ctx, path, id); err == nil {
		if b, err := os.ReadFile(path); err == nil && len(b) > 0 {
			if c.debug {
				log.Println("narration: cache hit", id)
			}
			return b, nil
		}
	} else if c.debug {
		log.Printf("narration: cache miss %s: %v\n", id, err)
	}

	audio, err := c.synth.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, audio, 0644); err != nil {
		log.Printf("narration: couldn't write cache file: %v\n", err)
		return audio, nil
	}
	if err := c.store.SetMP3(ctx, path, id); err != nil {
		log.Printf("narration: couldn't store %s: %v\n", id, err)
	}
	return audio, nil
}
