package script

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/igolaizola/timeslip/pkg/openai"
	"github.com/igolaizola/timeslip/pkg/program"
	"github.com/igolaizola/timeslip/pkg/script"
)

type Config struct {
	Debug   bool
	Proxy   string
	Timeout time.Duration

	Year   int
	Month  int
	Output string

	OpenAIToken   string
	OpenAIBaseURL string
	Model         string
	Language      string
	Segments      int
	Minutes       int
}

type generator interface {
	Generate(ctx context.Context, period program.Period) (program.Program, error)
}

// Run writes the program of a broadcast to a file.
func Run(ctx context.Context, cfg *Config) error {
	log.Println("script: process started")
	defer log.Println("script: process ended")

	if cfg.Output == "" {
		return fmt.Errorf("script: output file required")
	}
	period := program.Period{Year: cfg.Year, Month: cfg.Month}
	if err := period.Validate(); err != nil {
		return fmt.Errorf("script: %w", err)
	}

	ai, err := openai.New(&openai.Config{
		Debug:   cfg.Debug,
		Token:   cfg.OpenAIToken,
		BaseURL: cfg.OpenAIBaseURL,
		Proxy:   cfg.Proxy,
		Timeout: cfg.Timeout,
		Model:   cfg.Model,
	})
	if err != nil {
		return fmt.Errorf("script: couldn't create openai client: %w", err)
	}
	gen := script.New(ai, &script.Config{
		Debug:    cfg.Debug,
		Segments: cfg.Segments,
		Language: cfg.Language,
		Minutes:  cfg.Minutes,
	})
	return write(ctx, gen, period, cfg.Output)
}

func write(ctx context.Context, gen generator, period program.Period, output string) error {
	p, err := gen.Generate(ctx, period)
	if err != nil {
		return err
	}
	if err := program.Write(output, p); err != nil {
		return fmt.Errorf("script: couldn't write program: %w", err)
	}
	for i, s := range p {
		log.Printf("script: %d %q %s - %s (%d chars)\n", i+1, s.Title, s.Artist, s.Song, len([]rune(s.Narration)))
	}
	log.Printf("script: program for %s written to %s\n", period, output)
	return nil
}
