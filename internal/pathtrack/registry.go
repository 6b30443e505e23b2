package pathtrack

import (
	"errors"
	"sync"
)

// Registry is the ordered set of sessions for one pipeline run.
// The zero value is ready to use; a nil *Registry replaces nothing.
type Registry struct {
	mu       sync.Mutex
	sessions []*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Create appends a new session and returns it.
func (r *Registry) Create(name string) *Session {
	s := newSession(name)
	r.mu.Lock()
	r.sessions = append(r.sessions, s)
	r.mu.Unlock()
	return s
}

// Sessions returns the sessions in creation order.
func (r *Registry) Sessions() []*Session {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}

// Select returns a registry sharing only the named sessions, kept in creation
// order. Sessions created on r afterwards are not seen by the result.
func (r *Registry) Select(names ...string) *Registry {
	out := NewRegistry()
	for _, s := range r.Sessions() {
		for _, name := range names {
			if s.Name() == name {
				out.sessions = append(out.sessions, s)
				break
			}
		}
	}
	return out
}

// Validate checks every session and joins the ordering errors found.
func (r *Registry) Validate() error {
	var errs []error
	for _, s := range r.Sessions() {
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Replace runs every session over text in creation order.
// It stops at the first session with mismatched recordings.
func (r *Registry) Replace(text string) (string, error) {
	for _, s := range r.Sessions() {
		out, err := s.Replace(text)
		if err != nil {
			return text, err
		}
		text = out
	}
	return text, nil
}
