package program

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

// Read loads a program from a json, yaml or csv file.
func Read(path string) (Program, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("program: couldn't read %s: %w", path, err)
	}

	var p Program
	switch ext := filepath.Ext(path); ext {
	case ".json":
		return Parse(b)
	case ".yaml", ".yml":
		var e envelope
		if err := yaml.Unmarshal(b, &e); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedProgram, err)
		}
		p = e.Segments
	case ".csv":
		var segments []*Segment
		if err := gocsv.UnmarshalBytes(b, &segments); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedProgram, err)
		}
		for _, s := range segments {
			p = append(p, *s)
		}
	default:
		return nil, fmt.Errorf("program: unsupported input format: %s", ext)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Write stores a program in the format given by the path extension.
func Write(path string, p Program) error {
	var b []byte
	var err error
	switch ext := filepath.Ext(path); ext {
	case ".json":
		b, err = json.MarshalIndent(envelope{Segments: p}, "", "  ")
	case ".yaml", ".yml":
		b, err = yaml.Marshal(envelope{Segments: p})
	case ".csv":
		segments := make([]*Segment, 0, len(p))
		for i := range p {
			segments = append(segments, &p[i])
		}
		b, err = gocsv.MarshalBytes(&segments)
	default:
		return fmt.Errorf("program: unsupported output format: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("program: couldn't marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("program: couldn't write %s: %w", path, err)
	}
	return nil
}
