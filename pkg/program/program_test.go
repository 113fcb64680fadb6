package program

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
		wantErr bool
	}{
		{"object", `{"segments":[{"segmentTitle":"Opening","script":"Good evening","songTitle":"Tomorrow never knows","artistName":"Mr.Children"}]}`, 1, false},
		{"array", `[{"segmentTitle":"A","script":"a"},{"segmentTitle":"B","script":"b"}]`, 2, false},
		{"empty", ``, 0, true},
		{"empty list", `{"segments":[]}`, 0, true},
		{"no segments", `{"foo":[]}`, 0, true},
		{"not a list", `{"segments":"nope"}`, 0, true},
		{"string", `"hello"`, 0, true},
		{"missing script", `{"segments":[{"segmentTitle":"A"}]}`, 0, true},
		{"missing title", `{"segments":[{"script":"a"}]}`, 0, true},
		{"blank title", `{"segments":[{"segmentTitle":"  ","script":"a"}]}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse([]byte(tt.payload))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedProgram) {
					t.Fatalf("Parse(%q) err = %v; want ErrMalformedProgram", tt.payload, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) err = %v; want nil", tt.payload, err)
			}
			if len(p) != tt.want {
				t.Fatalf("len(Parse(%q)) = %d; want %d", tt.payload, len(p), tt.want)
			}
		})
	}
}

func TestSegmentSong(t *testing.T) {
	s := Segment{Title: "Opening", Narration: "...", Song: "Tomorrow never knows", Artist: "Mr.Children"}
	if !s.HasSong() {
		t.Fatalf("HasSong() = false; want true")
	}
	if got, want := s.Query(), "Mr.Children Tomorrow never knows"; got != want {
		t.Fatalf("Query() = %q; want %q", got, want)
	}
	if got, want := s.AppleMusicURL(), "https://music.apple.com/jp/search?term=Mr.Children+Tomorrow+never+knows"; got != want {
		t.Fatalf("AppleMusicURL() = %q; want %q", got, want)
	}
	s.Artist = ""
	if s.HasSong() {
		t.Fatalf("HasSong() = true; want false")
	}
	if got := s.AppleMusicURL(); got != "" {
		t.Fatalf("AppleMusicURL() = %q; want empty", got)
	}
}

func TestPeriod(t *testing.T) {
	tests := []struct {
		payload string
		want    Period
		valid   bool
	}{
		{`{"year":"1995","month":"8"}`, Period{1995, 8}, true},
		{`{"year":1995,"month":12}`, Period{1995, 12}, true},
		{`{"year":1995,"month":13}`, Period{1995, 13}, false},
		{`{"year":0,"month":1}`, Period{0, 1}, false},
	}
	for _, tt := range tests {
		var p Period
		if err := p.UnmarshalJSON([]byte(tt.payload)); err != nil {
			t.Fatalf("UnmarshalJSON(%q) err = %v; want nil", tt.payload, err)
		}
		if p != tt.want {
			t.Fatalf("UnmarshalJSON(%q) = %v; want %v", tt.payload, p, tt.want)
		}
		if err := p.Validate(); (err == nil) != tt.valid {
			t.Fatalf("Validate(%v) = %v; want valid %v", p, err, tt.valid)
		}
	}
	var p Period
	if err := p.UnmarshalJSON([]byte(`{"year":"nineteen"}`)); err == nil {
		t.Fatalf("UnmarshalJSON() err = nil; want error")
	}
}

func TestReadWrite(t *testing.T) {
	want := Program{
		{Title: "Opening", Narration: "Good evening, it's August.", Song: "Tomorrow never knows", Artist: "Mr.Children"},
		{Title: "Ending", Narration: "Good night.", Song: "", Artist: ""},
	}
	dir := t.TempDir()
	for _, ext := range []string{".json", ".yaml", ".csv"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(dir, "program"+ext)
			if err := Write(path, want); err != nil {
				t.Fatalf("Write(%q) err = %v; want nil", path, err)
			}
			got, err := Read(path)
			if err != nil {
				t.Fatalf("Read(%q) err = %v; want nil", path, err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("Read(%q) = %v; want %v", path, got, want)
			}
		})
	}
	if _, err := Read(filepath.Join(dir, "program.txt")); err == nil {
		t.Fatalf("Read(.txt) err = nil; want error")
	}
}
