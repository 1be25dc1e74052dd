package clock

import (
	"sync"
	"time"
)

// Clock allows injecting time in services and the fast-store fakes.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Manual is a settable clock for tests that need to move time forward, e.g. to
// expire rate-limit windows or cached counters.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a manual clock starting at t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t.UTC()}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// NewFixed returns a clock that always reports t (useful for tests).
func NewFixed(t time.Time) Clock {
	return &fixed{now: t.UTC()}
}

type fixed struct {
	now time.Time
}

func (f *fixed) Now() time.Time {
	return f.now
}
