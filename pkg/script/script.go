package script

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"text/template"

	"github.com/igolaizola/timeslip/pkg/program"
)

// Completer answers a prompt with a JSON document.
type Completer interface {
	JSON(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	Debug    bool
	Segments int
	Language string
	Minutes  int
}

// Generator writes broadcast programs for a given month.
type Generator struct {
	completer Completer
	segments  int
	language  string
	minutes   int
	debug     bool
}

func New(completer Completer, cfg *Config) *Generator {
	segments := cfg.Segments
	if segments <= 0 {
		segments = 4
	}
	language := cfg.Language
	if language == "" {
		language = "Japanese"
	}
	minutes := cfg.Minutes
	if minutes <= 0 {
		minutes = 30
	}
	return &Generator{
		completer: completer,
		segments:  segments,
		language:  language,
		minutes:   minutes,
		debug:     cfg.Debug,
	}
}

var promptTemplate = template.Must(template.New("prompt").Parse(`You are a radio director and DJ who knows the music of the 1980s to the 2020s inside out.
Write the complete running order and script of a {{.Minutes}}-minute radio show broadcast in {{.Month}}/{{.Year}}.

Rules:
Write exactly {{.Segments}} segments.
1. Opening: greetings, the mood of that month, news of the time, introduce song 1.
{{- if gt .Segments 2}}
{{- range .Middle}}
{{.}}. Middle talk: trends, subculture or listener letters of the time, introduce song {{.}}.
{{- end}}
{{- end}}
{{- if gt .Segments 1}}
{{.Segments}}. Ending: wrap up the show, the night scenery of the time, introduce song {{.Segments}}.
{{- end}}

Output format: answer only with JSON like this:
{
  "segments": [
    {
      "segmentTitle": "Opening",
      "script": "script text...",
      "songTitle": "song title",
      "artistName": "artist name"
    }
  ]
}

Each segment's talk must take about 3 to 4 minutes when read aloud (around 800 to 1200 characters).
Write the scripts in {{.Language}} and pack them with references that listeners in their 40s and 50s remember from that month.
Only pick songs that had been released by {{.Month}}/{{.Year}}.
`))

// Prompt returns the prompt sent for a period.
func (g *Generator) Prompt(period program.Period) (string, error) {
	var middle []int
	for i := 2; i < g.segments; i++ {
		middle = append(middle, i)
	}
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, map[string]any{
		"Year":     period.Year,
		"Month":    period.Month,
		"Segments": g.segments,
		"Middle":   middle,
		"Minutes":  g.minutes,
		"Language": g.language,
	}); err != nil {
		return "", fmt.Errorf("script: couldn't render prompt: %w", err)
	}
	return buf.String(), nil
}

// Generate asks the model for a program and validates it.
func (g *Generator) Generate(ctx context.Context, period program.Period) (program.Program, error) {
	if err := period.Validate(); err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	prompt, err := g.Prompt(period)
	if err != nil {
		return nil, err
	}
	if g.debug {
		log.Printf("script: generating program for %s\n", period)
	}
	resp, err := g.completer.JSON(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("script: couldn't generate program: %w", err)
	}
	p, err := program.Parse([]byte(resp))
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	if g.debug {
		log.Printf("script: generated %d segments\n", len(p))
	}
	return p, nil
}
