package story

import "sync"

// Scheduler decides when to request generation of the next segment. It
// keeps a lookahead window ahead of the playhead and holds a single
// in-flight token so at most one pipeline invocation runs system-wide.
//
// The trigger threshold is deliberately literal: the window counts the
// currently playing segment, so generation fires while
// produced < playhead - 1 + lookahead (playhead is 1-based). Alternate
// thresholds change observable buffering behavior.
type Scheduler struct {
	mu        sync.Mutex
	lookahead int
	total     int
	inFlight  bool
}

// NewScheduler creates a scheduler for a story of the given estimated
// length.
func NewScheduler(lookahead, total int) *Scheduler {
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	return &Scheduler{lookahead: lookahead, total: total}
}

// Next reports whether generation should run now, given how many segments
// exist and where the playhead is, and if so for which index. A true result
// acquires the in-flight token; the caller must Release it on every exit
// path, including timeouts.
func (s *Scheduler) Next(produced, playhead int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight {
		return 0, false
	}
	if produced >= s.total {
		return 0, false
	}
	if produced >= playhead-1+s.lookahead {
		return 0, false
	}
	s.inFlight = true
	return produced + 1, true
}

// Release returns the in-flight token.
func (s *Scheduler) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
}

// InFlight reports whether a generation is currently running.
func (s *Scheduler) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Done reports whether production has reached the estimated total, after
// which the scheduler never triggers again.
func (s *Scheduler) Done(produced int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return produced >= s.total
}
