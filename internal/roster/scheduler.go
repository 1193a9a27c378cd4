package roster

import (
	"sync"
	"time"
)

// DebounceDelay is the settle window between the last mutation and the
// render push that reflects it.
const DebounceDelay = 800 * time.Millisecond

// Scheduler coalesces rapid session mutations into at most one render push
// per debounce window. Each Schedule call re-arms the timer, so a burst of
// mutations produces exactly one push after the last one settles. The push
// callback must re-validate session state itself: the session may have
// closed while the timer was pending.
type Scheduler struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	push  func()
}

func NewScheduler(delay time.Duration, push func()) *Scheduler {
	if delay <= 0 {
		delay = DebounceDelay
	}
	return &Scheduler{delay: delay, push: push}
}

// Schedule arms (or re-arms) the debounce timer.
func (s *Scheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.push)
}

// Stop cancels any pending push. Safe to call repeatedly or with nothing
// scheduled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
