// Package history keeps the undo stack of prior sessions.
package history

import (
	"sync"

	"github.com/bgdnvk/wpdeploy/internal/session"
)

// DefaultLimit is how many prior states are kept.
const DefaultLimit = 50

// Stack is a bounded undo stack. The oldest snapshot is evicted when the
// limit is reached; Pop returns the newest. There is no redo.
type Stack struct {
	mu      sync.Mutex
	entries []session.Session
	limit   int
}

func New(limit int) *Stack {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Stack{
		entries: make([]session.Session, 0, limit),
		limit:   limit,
	}
}

// Record stores a deep copy of the state that is about to be replaced.
func (s *Stack) Record(prior session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, prior.Clone())
	if len(s.entries) > s.limit {
		s.entries = s.entries[len(s.entries)-s.limit:]
	}
}

// Pop removes and returns the most recent snapshot.
func (s *Stack) Pop() (session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return session.Session{}, false
	}
	last := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return last.Clone(), true
}

func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.entries[:0]
}
