package service

import (
	"sync"
	"time"
)

// Scheduler holds at most one pending delayed transition. Scheduling a new
// one replaces whatever was waiting.
type Scheduler struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// Schedule runs fn after delay unless it is cancelled or replaced first.
// A non-positive delay runs fn synchronously.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) {
	s.mu.Lock()
	s.stopLocked()
	if delay <= 0 {
		s.mu.Unlock()
		fn()
		return
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()
		fn()
	})
	s.mu.Unlock()
}

// Cancel drops the pending transition and reports whether there was one
func (s *Scheduler) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

// Pending reports whether a transition is waiting to run
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *Scheduler) stopLocked() bool {
	if s.timer == nil {
		return false
	}
	s.timer.Stop()
	s.timer = nil
	s.gen++
	return true
}
