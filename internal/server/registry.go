package server

import "sync"

// sessionRegistry is the single source of truth for who is currently
// connected and joined. Keys are the opaque connection ids assigned at
// accept time, so the socket handle itself never needs map-key semantics.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*Session)}
}

// register stores the session for a connection id. Returns false if the id
// is already present; the protocol processes join at most once per
// connection, so a duplicate means a repeated join frame and the existing
// entry wins.
func (r *sessionRegistry) register(id string, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[id]; exists {
		return false
	}
	r.sessions[id] = s
	return true
}

// unregister removes and returns the session for id, or nil if the
// connection never joined or was already pruned.
func (r *sessionRegistry) unregister(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[id]
	if s != nil {
		delete(r.sessions, id)
	}
	return s
}

// snapshot returns a point-in-time view that stays valid while other
// goroutines mutate the registry.
func (r *sessionRegistry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *sessionRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
