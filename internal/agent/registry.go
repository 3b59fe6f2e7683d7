package agent

import "sync"

// Registry tracks the one live session per call id. It is the only piece of
// cross-call shared mutable state besides the call log, so every operation
// is a single atomic step under the lock.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: map[string]*Session{}}
}

// Insert registers s for its call id and returns any session it displaced.
// A second start frame for a live call replaces atomically; the caller is
// responsible for closing the displaced session.
func (r *Registry) Insert(s *Session) (displaced *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.sessions[s.CallID()]
	r.sessions[s.CallID()] = s
	if prev == s {
		return nil
	}
	return prev
}

func (r *Registry) Get(callID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[callID]
	return s, ok
}

// Remove deregisters s only if it is still the registered session for its
// call id. A displaced session tearing down late must not evict its
// replacement.
func (r *Registry) Remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.sessions[s.CallID()]
	if !ok || cur != s {
		return false
	}
	delete(r.sessions, s.CallID())
	return true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
