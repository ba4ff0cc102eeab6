package host

import (
	"sort"
	"sync"
)

// Registry tracks the open host sessions of this process by match code
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Get returns the session for code
func (r *Registry) Get(code string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[code]
	return s, ok
}

// Add registers s unless a session for the same code exists, in which case the
// existing one is returned with false
func (r *Registry) Add(s *Session) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[s.code]; ok {
		return existing, false
	}
	r.sessions[s.code] = s
	return s, true
}

// Remove drops s if it is still the registered session for its code
func (r *Registry) Remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.code]; ok && cur == s {
		delete(r.sessions, s.code)
		return true
	}
	return false
}

// Codes lists the hosted match codes in sorted order
func (r *Registry) Codes() []string {
	r.mu.RLock()
	codes := make([]string, 0, len(r.sessions))
	for code := range r.sessions {
		codes = append(codes, code)
	}
	r.mu.RUnlock()
	sort.Strings(codes)
	return codes
}

// Drain removes and returns every session
func (r *Registry) Drain() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for code, s := range r.sessions {
		out = append(out, s)
		delete(r.sessions, code)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
