package broadcast

import (
	"fmt"

	"github.com/igolaizola/timeslip/pkg/program"
)

// Phase is the step of the broadcast a session is in.
type Phase int

const (
	Idle Phase = iota
	Narrating
	MusicLookup
	MusicPlaying
	Advancing
	Complete
)

var phaseNames = [...]string{
	Idle:         "idle",
	Narrating:    "narrating",
	MusicLookup:  "music-lookup",
	MusicPlaying: "music-playing",
	Advancing:    "advancing",
	Complete:     "complete",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is a snapshot of the orchestrator.
type State struct {
	// Session identifies the loaded program run; empty when nothing is
	// loaded.
	Session string `json:"session,omitempty"`
	Phase   Phase  `json:"phase"`
	// Index is the active segment, -1 when no program is loaded.
	Index   int              `json:"index"`
	Total   int              `json:"total"`
	VideoID string           `json:"videoId,omitempty"`
	Segment *program.Segment `json:"segment,omitempty"`
	// Loading is set while a program is being generated.
	Loading bool `json:"loading"`
	// Err is the last reported error.
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

func (s State) String() string {
	if s.Index < 0 {
		return s.Phase.String()
	}
	return fmt.Sprintf("%s(%d)", s.Phase, s.Index)
}
