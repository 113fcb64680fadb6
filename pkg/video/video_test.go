package video

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/igolaizola/timeslip/pkg/clock"
)

type fakeSearch map[string]string

func (f fakeSearch) Search(ctx context.Context, query string) (string, error) {
	if query == "broken" {
		return "", errors.New("quota exceeded")
	}
	return f[query], nil
}

type gateScreen struct {
	gates map[string]chan error
}

func (s *gateScreen) Show(ctx context.Context, id string) error {
	select {
	case err := <-s.gates[id]:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestResolve(t *testing.T) {
	b := New(fakeSearch{"Mr.Children Tomorrow never knows": "abc123"}, nil, false)
	tests := []struct {
		query  string
		want   string
		wantOK bool
	}{
		{"Mr.Children Tomorrow never knows", "abc123", true},
		{"unknown", "", false},
		{"broken", "", false},
	}
	for _, tt := range tests {
		got, ok := b.Resolve(context.Background(), tt.query)
		if got != tt.want || ok != tt.wantOK {
			t.Fatalf("Resolve(%q) = %q, %v; want %q, %v", tt.query, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPlay(t *testing.T) {
	screen := &gateScreen{gates: map[string]chan error{
		"a": make(chan error, 1),
		"b": make(chan error, 1),
	}}
	b := New(nil, screen, false)

	// Natural end.
	screen.gates["a"] <- nil
	if err := b.Play(context.Background(), "a"); err != nil {
		t.Fatalf("Play(a) err = %v; want nil", err)
	}

	// Playback errors still end the video.
	screen.gates["a"] <- errors.New("embed disabled")
	if err := b.Play(context.Background(), "a"); err != nil {
		t.Fatalf("Play(a) err = %v; want nil", err)
	}

	// Detached.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Play(ctx, "b"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Play(b) err = %v; want context.Canceled", err)
	}
}

func TestPlaySuperseded(t *testing.T) {
	screen := &gateScreen{gates: map[string]chan error{
		"old": make(chan error, 1),
		"new": make(chan error, 1),
	}}
	b := New(nil, screen, false)

	oldC := make(chan error, 1)
	go func() {
		oldC <- b.Play(context.Background(), "old")
	}()
	for {
		b.mu.Lock()
		n := b.playing
		b.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	newC := make(chan error, 1)
	go func() {
		newC <- b.Play(context.Background(), "new")
	}()
	for {
		b.mu.Lock()
		n := b.playing
		b.mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	screen.gates["old"] <- nil
	if err := <-oldC; !errors.Is(err, context.Canceled) {
		t.Fatalf("Play(old) err = %v; want context.Canceled", err)
	}
	screen.gates["new"] <- nil
	if err := <-newC; err != nil {
		t.Fatalf("Play(new) err = %v; want nil", err)
	}
}

type fakeDurations map[string]time.Duration

func (f fakeDurations) Duration(ctx context.Context, id string) (time.Duration, error) {
	d, ok := f[id]
	if !ok {
		return 0, errors.New("not found")
	}
	return d, nil
}

func TestTimed(t *testing.T) {
	m := clock.NewManual()
	screen := NewTimed(fakeDurations{"short": 3 * time.Minute, "long": time.Hour}, m, &TimedConfig{
		Max:      10 * time.Minute,
		Fallback: time.Minute,
	})
	for _, id := range []string{"short", "long", "missing"} {
		errC := make(chan error, 1)
		go func() {
			errC <- screen.Show(context.Background(), id)
		}()
		for m.Pending() == 0 {
			time.Sleep(time.Millisecond)
		}
		m.Fire()
		if err := <-errC; err != nil {
			t.Fatalf("Show(%q) err = %v; want nil", id, err)
		}
	}
	want := []time.Duration{3 * time.Minute, 10 * time.Minute, time.Minute}
	if got := m.Requested(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Requested() = %v; want %v", got, want)
	}
}
