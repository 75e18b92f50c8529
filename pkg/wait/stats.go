package wait

import (
	"sync"
	"time"
)

// Stats records the measurements produced by a guard. It implements
// Observer and is safe for concurrent use; the accessors may be read while
// another goroutine is completing a guarded region.
type Stats struct {
	mu      sync.Mutex
	valid   bool
	last    Measurement
	history []time.Duration
	limit   int
	total   int
}

// Observe records one completed pass.
func (s *Stats) Observe(m Measurement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid = true
	s.last = m
	s.total++
	s.history = append(s.history, m.Runtime)
	if s.limit > 0 && len(s.history) > s.limit {
		s.history = s.history[len(s.history)-s.limit:]
	}
}

// LastRuntime returns the most recently measured runtime of the wrapped
// operation alone, excluding any enforced wait. The bool is false until the
// first pass completes.
func (s *Stats) LastRuntime() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last.Runtime, s.valid
}

// LastActive returns the total duration of the most recent pass, including
// any enforced wait. Always >= the matching LastRuntime.
func (s *Stats) LastActive() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last.Active, s.valid
}

// History returns the recorded runtimes in completion order, one entry per
// completed pass. Unbounded unless the guard was built with
// WithHistoryLimit, in which case the oldest entries are dropped.
func (s *Stats) History() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.history))
	copy(out, s.history)
	return out
}

// Count returns the number of passes recorded so far. With a history limit
// in place this can exceed len(History()).
func (s *Stats) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}
