package pathtrack

import (
	"sync"

	"github.com/google/uuid"
)

// Session is one recorded pass of original -> output path pairs.
// It is safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	id        uuid.UUID
	name      string
	originals []string
	patterns  []*Pattern
}

func newSession(name string) *Session {
	return &Session{
		id:   uuid.New(),
		name: name,
	}
}

// ID returns the unique identifier of the session.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Name returns the label the session was created with.
func (s *Session) Name() string {
	return s.name
}

// RecordBefore pushes the original path of the next file.
func (s *Session) RecordBefore(original string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.originals = append(s.originals, original)
}

// RecordAfter pushes the output path matching the oldest original that has
// no output yet. It fails when there is no such original.
func (s *Session) RecordAfter(output string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.patterns) >= len(s.originals) {
		return s.orderingErrorLocked(len(s.originals), len(s.patterns)+1)
	}
	s.patterns = append(s.patterns, NewPattern(output))
	return nil
}

// Record pushes a complete pair at once. Concurrent writers must use Record;
// interleaving RecordBefore/RecordAfter from several goroutines would pair
// paths of different files.
func (s *Session) Record(original, output string) error {
	p := NewPattern(output)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.patterns) != len(s.originals) {
		return s.orderingErrorLocked(len(s.originals), len(s.patterns))
	}
	s.originals = append(s.originals, original)
	s.patterns = append(s.patterns, p)
	return nil
}

// Len returns the number of complete pairs.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return min(len(s.originals), len(s.patterns))
}

// Validate reports a SessionOrderingError when before/after counts differ.
func (s *Session) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.originals) != len(s.patterns) {
		return s.orderingErrorLocked(len(s.originals), len(s.patterns))
	}
	return nil
}

// Replace rewrites every occurrence of a recorded output path in text back to
// its original, newest pair first.
func (s *Session) Replace(text string) (string, error) {
	s.mu.Lock()
	if len(s.originals) != len(s.patterns) {
		err := s.orderingErrorLocked(len(s.originals), len(s.patterns))
		s.mu.Unlock()
		return text, err
	}
	originals := s.originals[:len(s.originals):len(s.originals)]
	patterns := s.patterns[:len(s.patterns):len(s.patterns)]
	s.mu.Unlock()

	for i := len(patterns) - 1; i >= 0; i-- {
		text = patterns[i].ReplaceAll(text, originals[i])
	}
	return text, nil
}

func (s *Session) orderingErrorLocked(before, after int) error {
	return &SessionOrderingError{
		Session: s.name,
		ID:      s.id,
		Before:  before,
		After:   after,
	}
}
