// Package scheduler runs callbacks at absolute deadlines.
//
// Every callback is registered under a key; registering the same key again
// replaces the pending callback, and Cancel/CancelPrefix drop pending ones.
// A callback that was cancelled or replaced never runs, even if its timer
// had already expired when the cancellation happened.
package scheduler

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type entry struct {
	timer    clockwork.Timer
	gen      uint64
	deadline time.Time
}

type Scheduler struct {
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	gen     uint64
	stopped bool
}

func New(clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		clock:   clock,
		entries: make(map[string]*entry),
	}
}

// Clock returns the clock deadlines are measured against.
func (s *Scheduler) Clock() clockwork.Clock {
	return s.clock
}

// At arms fn to run at deadline under key, replacing any callback pending
// under the same key. It reports false, arming nothing, when the deadline
// is not in the future or the scheduler is stopped.
func (s *Scheduler) At(key string, deadline time.Time, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}

	s.cancelLocked(key)

	d := deadline.Sub(s.clock.Now())
	if d <= 0 {
		return false
	}

	s.gen++
	gen := s.gen
	e := &entry{gen: gen, deadline: deadline}
	e.timer = s.clock.AfterFunc(d, func() { s.fire(key, gen, fn) })
	s.entries[key] = e
	return true
}

func (s *Scheduler) fire(key string, gen uint64, fn func()) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok || e.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.entries, key)
	s.mu.Unlock()

	fn()
}

// Cancel drops the callback pending under key and reports whether there was
// one.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(key)
}

// CancelPrefix drops every pending callback whose key starts with prefix and
// returns how many were dropped.
func (s *Scheduler) CancelPrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			s.cancelLocked(key)
			n++
		}
	}
	return n
}

func (s *Scheduler) cancelLocked(key string) bool {
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.entries, key)
	return true
}

// Deadline returns the deadline pending under key.
func (s *Scheduler) Deadline(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return time.Time{}, false
	}
	return e.deadline, true
}

// Pending returns the keys with a pending callback, sorted.
func (s *Scheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop cancels everything and makes further At calls no-ops.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.entries {
		s.cancelLocked(key)
	}
	s.stopped = true
}
