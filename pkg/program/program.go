package program

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedProgram is returned when a generated program can't be played.
var ErrMalformedProgram = errors.New("program: malformed program")

var ErrInvalidPeriod = errors.New("program: invalid period")

// Segment is one narration and song unit of a broadcast.
type Segment struct {
	Title     string `json:"segmentTitle" yaml:"segmentTitle" csv:"segmentTitle"`
	Narration string `json:"script" yaml:"script" csv:"script"`
	Song      string `json:"songTitle" yaml:"songTitle" csv:"songTitle"`
	Artist    string `json:"artistName" yaml:"artistName" csv:"artistName"`
}

// Program is the ordered list of segments of a broadcast.
type Program []Segment

type envelope struct {
	Segments []Segment `json:"segments" yaml:"segments"`
}

// HasSong reports whether the segment has a music cue.
func (s Segment) HasSong() bool {
	return strings.TrimSpace(s.Song) != "" && strings.TrimSpace(s.Artist) != ""
}

// Query returns the video search query for the segment's song.
func (s Segment) Query() string {
	return fmt.Sprintf("%s %s", strings.TrimSpace(s.Artist), strings.TrimSpace(s.Song))
}

// AppleMusicURL returns the Apple Music search page for the segment's song,
// or an empty string if it has none.
func (s Segment) AppleMusicURL() string {
	if !s.HasSong() {
		return ""
	}
	return "https://music.apple.com/jp/search?" + url.Values{"term": {s.Query()}}.Encode()
}

func (s Segment) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: missing segment title", ErrMalformedProgram)
	}
	if strings.TrimSpace(s.Narration) == "" {
		return fmt.Errorf("%w: missing script for %q", ErrMalformedProgram, s.Title)
	}
	return nil
}

func (p Program) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("%w: no segments", ErrMalformedProgram)
	}
	for i, s := range p {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
	}
	return nil
}

// Clone returns a copy that doesn't share memory with p.
func (p Program) Clone() Program {
	if p == nil {
		return nil
	}
	c := make(Program, len(p))
	copy(c, p)
	return c
}

// Parse decodes and validates a generation response. Both the
// {"segments": [...]} object and a bare array are accepted.
func Parse(b []byte) (Program, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedProgram)
	}
	var p Program
	switch b[0] {
	case '[':
		if err := json.Unmarshal(b, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedProgram, err)
		}
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedProgram, err)
		}
		segments, ok := raw["segments"]
		if !ok {
			return nil, fmt.Errorf("%w: missing segments", ErrMalformedProgram)
		}
		if err := json.Unmarshal(segments, &p); err != nil {
			return nil, fmt.Errorf("%w: segments is not a list: %v", ErrMalformedProgram, err)
		}
	default:
		return nil, fmt.Errorf("%w: unexpected payload", ErrMalformedProgram)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Period is the month a broadcast is set in.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (p Period) Validate() error {
	if p.Year <= 0 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, p.Year)
	}
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidPeriod, p.Month)
	}
	return nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// UnmarshalJSON accepts numbers and numeric strings, since web forms send
// {"year": "1995", "month": "8"}.
func (p *Period) UnmarshalJSON(b []byte) error {
	var raw struct {
		Year  json.Number `json:"year"`
		Month json.Number `json:"month"`
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("program: couldn't decode period: %w", err)
	}
	year, err := raw.Year.Int64()
	if err != nil {
		return fmt.Errorf("program: invalid year %q", raw.Year)
	}
	month, err := raw.Month.Int64()
	if err != nil {
		return fmt.Errorf("program: invalid month %q", raw.Month)
	}
	p.Year = int(year)
	p.Month = int(month)
	return nil
}
