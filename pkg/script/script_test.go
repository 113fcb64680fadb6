package script

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/igolaizola/timeslip/pkg/program"
)

type fakeCompleter struct {
	resp   string
	err    error
	prompt string
}

func (f *fakeCompleter) JSON(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.resp, f.err
}

func TestGenerate(t *testing.T) {
	c := &fakeCompleter{resp: `{"segments":[{"segmentTitle":"Opening","script":"Good evening","songTitle":"Tomorrow never knows","artistName":"Mr.Children"}]}`}
	g := New(c, &Config{})
	p, err := g.Generate(context.Background(), program.Period{Year: 1995, Month: 8})
	if err != nil {
		t.Fatalf("Generate() err = %v; want nil", err)
	}
	if len(p) != 1 || p[0].Artist != "Mr.Children" {
		t.Fatalf("Generate() = %v; want one Mr.Children segment", p)
	}
	for _, want := range []string{"8/1995", "exactly 4 segments", "Japanese", "introduce song 3", "4. Ending"} {
		if !strings.Contains(c.prompt, want) {
			t.Fatalf("prompt doesn't contain %q:\n%s", want, c.prompt)
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name      string
		completer *fakeCompleter
		period    program.Period
		malformed bool
	}{
		{"service", &fakeCompleter{err: errors.New("unavailable")}, program.Period{Year: 1995, Month: 8}, false},
		{"empty", &fakeCompleter{resp: `{"segments":[]}`}, program.Period{Year: 1995, Month: 8}, true},
		{"garbage", &fakeCompleter{resp: `sorry, I can't`}, program.Period{Year: 1995, Month: 8}, true},
		{"period", &fakeCompleter{}, program.Period{Year: 1995, Month: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.completer, &Config{}).Generate(context.Background(), tt.period)
			if err == nil {
				t.Fatalf("Generate() err = nil; want error")
			}
			if got := errors.Is(err, program.ErrMalformedProgram); got != tt.malformed {
				t.Fatalf("errors.Is(%v, ErrMalformedProgram) = %v; want %v", err, got, tt.malformed)
			}
		})
	}
}

func TestPromptSegments(t *testing.T) {
	g := New(&fakeCompleter{}, &Config{Segments: 1, Language: "English"})
	prompt, err := g.Prompt(program.Period{Year: 1984, Month: 1})
	if err != nil {
		t.Fatalf("Prompt() err = %v; want nil", err)
	}
	if strings.Contains(prompt, "Ending") || strings.Contains(prompt, "Middle") {
		t.Fatalf("single segment prompt has extra corners:\n%s", prompt)
	}
	if !strings.Contains(prompt, "in English") {
		t.Fatalf("prompt doesn't use the language:\n%s", prompt)
	}
}
