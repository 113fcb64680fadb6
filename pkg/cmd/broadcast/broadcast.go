package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/igolaizola/timeslip/pkg/ambience"
	core "github.com/igolaizola/timeslip/pkg/broadcast"
	"github.com/igolaizola/timeslip/pkg/clock"
	"github.com/igolaizola/timeslip/pkg/ffmpeg"
	"github.com/igolaizola/timeslip/pkg/filestore"
	"github.com/igolaizola/timeslip/pkg/narration"
	"github.com/igolaizola/timeslip/pkg/openai"
	"github.com/igolaizola/timeslip/pkg/program"
	"github.com/igolaizola/timeslip/pkg/script"
	"github.com/igolaizola/timeslip/pkg/video"
	"github.com/igolaizola/timeslip/pkg/youtube"
)

type Config struct {
	Debug bool
	Proxy string

	Input string
	Year  int
	Month int
	Delay time.Duration

	OpenAIToken   string
	OpenAIBaseURL string
	Model         string
	SpeechModel   string
	Voice         string
	Language      string
	Segments      int

	YoutubeKey  string
	Browser     bool
	MaxVideo    time.Duration
	FFPlay      string
	DryRun      bool
	Ambience    string
	AmbienceVol int

	FSType string
	FSConn string
}

// Run plays a broadcast on the local machine until it completes.
func Run(ctx context.Context, cfg *Config) error {
	log.Println("broadcast: process started")
	defer log.Println("broadcast: process ended")

	debug := func(format string, args ...interface{}) {
		if !cfg.Debug {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}

	var p program.Program
	period := program.Period{Year: cfg.Year, Month: cfg.Month}
	if cfg.Input != "" {
		var err error
		p, err = program.Read(cfg.Input)
		if err != nil {
			return fmt.Errorf("broadcast: couldn't read program: %w", err)
		}
	} else if err := period.Validate(); err != nil {
		return fmt.Errorf("broadcast: input file or period required: %w", err)
	}

	ai, err := openai.New(&openai.Config{
		Debug:       cfg.Debug,
		Token:       cfg.OpenAIToken,
		BaseURL:     cfg.OpenAIBaseURL,
		Proxy:       cfg.Proxy,
		Model:       cfg.Model,
		SpeechModel: cfg.SpeechModel,
		Voice:       cfg.Voice,
	})
	if err != nil {
		return fmt.Errorf("broadcast: couldn't create openai client: %w", err)
	}
	var synth narration.Synthesizer = ai
	if cfg.FSType != "" {
		store, err := filestore.New(ctx, cfg.FSType, cfg.FSConn, cfg.Debug)
		if err != nil {
			return fmt.Errorf("broadcast: couldn't create file storage: %w", err)
		}
		synth = narration.NewCache(ai, store, ai.Voice(), cfg.Debug)
		debug("broadcast: narration cache enabled (%s)", cfg.FSType)
	}

	if !cfg.DryRun {
		v, err := ffmpeg.Version(ctx, ffplayBin(cfg.FFPlay))
		if err != nil {
			return fmt.Errorf("broadcast: ffplay is required unless dry-run is set: %w", err)
		}
		debug("broadcast: ffplay %s", v)
	}

	var out narration.Output = narration.NewFFPlay(cfg.FFPlay)
	var src ambience.Source
	if cfg.DryRun {
		out = narration.NewClock(clock.Real{})
	} else if cfg.Ambience != "" {
		src = ambience.NewLoop(cfg.FFPlay, cfg.Ambience, cfg.AmbienceVol)
	}
	amb := ambience.New(src, cfg.Debug)
	defer amb.Close()

	var search video.Searcher
	var screen video.Screen
	if cfg.YoutubeKey != "" {
		yt, err := youtube.New(ctx, cfg.YoutubeKey, cfg.Debug)
		if err != nil {
			return fmt.Errorf("broadcast: couldn't create youtube client: %w", err)
		}
		search = yt
		screen = video.NewTimed(yt, clock.Real{}, &video.TimedConfig{
			Open: cfg.Browser && !cfg.DryRun,
			Max:  cfg.MaxVideo,
		})
	} else {
		log.Println("broadcast: no youtube key, music videos are skipped")
	}

	gen := script.New(ai, &script.Config{
		Debug:    cfg.Debug,
		Segments: cfg.Segments,
		Language: cfg.Language,
	})

	w := newWatcher()
	o := core.New(&core.Config{
		Debug:    cfg.Debug,
		Delay:    cfg.Delay,
		OnChange: w.update,
	}, amb, narration.New(synth, out, amb, cfg.Debug), video.New(search, screen, cfg.Debug), gen)

	load := func(ctx context.Context) error {
		if p != nil {
			return o.Load(ctx, p)
		}
		return o.Generate(ctx, period)
	}
	return play(ctx, o, w, load)
}

func ffplayBin(bin string) string {
	if bin == "" {
		return "ffplay"
	}
	return bin
}

// watcher follows the orchestrator until the broadcast is over.
type watcher struct {
	once sync.Once
	done chan struct{}
	err  error

	narrated int
}

func newWatcher() *watcher {
	return &watcher{done: make(chan struct{})}
}

func (w *watcher) finish(err error) {
	w.once.Do(func() {
		w.err = err
		close(w.done)
	})
}

func (w *watcher) update(st core.State) {
	switch {
	case st.Loading:
		log.Println("broadcast: writing the program...")
	case st.Phase == core.Narrating && st.Segment != nil:
		w.narrated++
		log.Printf("broadcast: on air %d/%d %q\n", st.Index+1, st.Total, st.Segment.Title)
	case st.Phase == core.MusicPlaying && st.Segment != nil:
		log.Printf("broadcast: now playing %s - %s\n", st.Segment.Artist, st.Segment.Song)
	case st.Phase == core.Complete:
		w.finish(nil)
	case st.Phase == core.Idle && st.Err != nil:
		w.finish(st.Err)
	}
}

// play runs o, loads the program and waits until it completes or fails.
func play(ctx context.Context, o *core.Orchestrator, w *watcher, load func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errC := make(chan error, 1)
	go func() {
		errC <- o.Run(ctx)
	}()
	defer func() {
		cancel()
		<-errC
	}()

	if err := load(ctx); err != nil {
		return fmt.Errorf("broadcast: couldn't load program: %w", err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
	}
	if w.err != nil {
		if errors.Is(w.err, narration.ErrFailed) {
			return fmt.Errorf("broadcast: narration failed: %w", w.err)
		}
		return fmt.Errorf("broadcast: %w", w.err)
	}
	log.Printf("broadcast: complete (%d segments on air)\n", w.narrated)
	return nil
}
