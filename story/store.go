package story

import (
	"sort"
	"sync"
)

// Store is the append-only, index-sorted collection of finished segments.
// Appending an index that is already present is a no-op, which is what
// protects the store against retried or late generation results. Segments
// are never removed before the session is reset.
type Store struct {
	mu       sync.RWMutex
	session  uint64
	segments []Segment
}

// NewStore creates a store bound to a session. The session counter lets the
// controller drop results produced for a session that has since been reset.
func NewStore(session uint64) *Store {
	return &Store{session: session}
}

// Session returns the session counter the store belongs to.
func (s *Store) Session() uint64 { return s.session }

// Append inserts the segment unless its index is already present, keeping
// the store sorted by index. It reports whether the segment was inserted.
func (s *Store) Append(seg Segment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.segments), func(i int) bool {
		return s.segments[i].Index >= seg.Index
	})
	if i < len(s.segments) && s.segments[i].Index == seg.Index {
		return false
	}

	s.segments = append(s.segments, Segment{})
	copy(s.segments[i+1:], s.segments[i:])
	s.segments[i] = seg
	return true
}

// Get returns the segment with the given index.
func (s *Store) Get(index int) (Segment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := sort.Search(len(s.segments), func(i int) bool {
		return s.segments[i].Index >= index
	})
	if i < len(s.segments) && s.segments[i].Index == index {
		return s.segments[i], true
	}
	return Segment{}, false
}

// Len returns the number of stored segments: the production frontier the
// scheduler works against.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.segments)
}

// Tail returns up to max characters of narrative from the end of the story
// so far, used as continuity context for the next text generation.
func (s *Store) Tail(max int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int
	for _, seg := range s.segments {
		total += len(seg.Text) + 1
	}
	buf := make([]byte, 0, total)
	for _, seg := range s.segments {
		if len(buf) > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, seg.Text...)
	}
	if max > 0 && len(buf) > max {
		buf = buf[len(buf)-max:]
	}
	return string(buf)
}
