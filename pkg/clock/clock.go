package clock

import (
	"context"
	"sync"
	"time"

	bclock "github.com/benbjohnson/clock"
)

// Clock abstracts waiting so tests can drive time.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

// Real is the wall clock.
type Real struct{}

var wall = bclock.New()

func (Real) After(d time.Duration) <-chan time.Time {
	return wall.After(d)
}

// Sleep waits for d on c or until ctx is done. Non-positive durations
// return at once.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if c == nil {
		c = Real{}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.After(d):
		return nil
	}
}

// Manual is a mock clock whose timers only fire when told to.
type Manual struct {
	mu        sync.Mutex
	mock      *bclock.Mock
	deadlines []time.Time
	requested []time.Duration
}

func NewManual() *Manual {
	return &Manual{mock: bclock.NewMock()}
}

func (m *Manual) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requested = append(m.requested, d)
	if d > 0 {
		m.deadlines = append(m.deadlines, m.mock.Now().Add(d))
	}
	return m.mock.After(d)
}

// Pending returns the number of timers waiting to fire.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deadlines)
}

// Requested returns every duration asked for so far.
func (m *Manual) Requested() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.requested...)
}

// Fire advances the clock past every pending timer and returns how many
// there were.
func (m *Manual) Fire() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.deadlines)
	if n == 0 {
		return 0
	}
	now := m.mock.Now()
	last := now
	for _, d := range m.deadlines {
		if d.After(last) {
			last = d
		}
	}
	m.deadlines = nil
	m.mock.Add(last.Sub(now))
	return n
}
