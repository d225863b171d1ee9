package breaker

import (
	"sync"
	"time"
)

// timerSlot owns at most one pending timer for a single scheduling purpose.
// Arming always cancels the previous timer first, so a slot can never hold
// two outstanding timers.
type timerSlot struct {
	mu    sync.Mutex
	timer *time.Timer
}

// arm schedules fn after d, replacing any pending timer.
func (s *timerSlot) arm(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, fn)
}

// stop cancels the pending timer, if any. Safe to call repeatedly.
func (s *timerSlot) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
