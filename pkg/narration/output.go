package narration

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/igolaizola/timeslip/pkg/clock"
)

// FFPlay plays audio on the local speakers through ffplay.
type FFPlay struct {
	bin string
}

func NewFFPlay(bin string) *FFPlay {
	if bin == "" {
		bin = "ffplay"
	}
	return &FFPlay{bin: bin}
}

func (f *FFPlay) Play(ctx context.Context, audio []byte, started func()) error {
	cmd := exec.CommandContext(ctx, f.bin, "-nodisp", "-autoexit", "-loglevel", "error", "-i", "pipe:0")
	cmd.Stdin = bytes.NewReader(audio)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("narration: couldn't start %s: %w", f.bin, err)
	}
	started()
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("narration: couldn't play: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Clock simulates playback by waiting for the decoded duration of the mp3.
type Clock struct {
	clock clock.Clock
}

func NewClock(c clock.Clock) *Clock {
	if c == nil {
		c = clock.Real{}
	}
	return &Clock{clock: c}
}

func (c *Clock) Play(ctx context.Context, audio []byte, started func()) error {
	d, err := Duration(audio)
	if err != nil {
		return err
	}
	started()
	return clock.Sleep(ctx, c.clock, d)
}

// Duration returns the playback length of an mp3 stream.
func Duration(audio []byte) (time.Duration, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(audio))
	if err != nil {
		return 0, fmt.Errorf("narration: couldn't decode mp3: %w", err)
	}
	rate := decoder.SampleRate()
	if rate <= 0 {
		return 0, fmt.Errorf("narration: invalid sample rate %d", rate)
	}
	// Decoded output is 16-bit stereo: 4 bytes per sample.
	samples := decoder.Length() / 4
	if samples <= 0 {
		return 0, fmt.Errorf("narration: empty mp3 stream")
	}
	return time.Duration(float64(samples) / float64(rate) * float64(time.Second)), nil
}
