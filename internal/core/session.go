package core

import (
	"sync"
	"time"
)

// Session is the server-side record of one authenticated connection.
// Owned exclusively by the registry; callers only see snapshots.
type Session struct {
	Username string
	Conn     *Conn
	LastSeen time.Time
}

// SessionRegistry tracks connected users behind a single mutex. It exposes
// only atomic compound operations; the underlying map never escapes.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionRegistry constructs an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*Session)}
}

// InsertIfAbsent registers username under one lock acquisition: the presence
// check and the insert cannot race. Returns false when the name is taken.
func (r *SessionRegistry) InsertIfAbsent(username string, c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.sessions[username]; taken {
		return false
	}
	r.sessions[username] = &Session{
		Username: username,
		Conn:     c,
		LastSeen: time.Now(),
	}
	return true
}

// Remove deletes the session only if it is still owned by c, which makes
// disconnects idempotent: a stale conn racing a fresh login for the same
// name is a no-op. Returns true when a session was actually removed.
func (r *SessionRegistry) Remove(username string, c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[username]
	if !ok || s.Conn != c {
		return false
	}
	delete(r.sessions, username)
	return true
}

// ConnOf returns the live connection for username, if any.
func (r *SessionRegistry) ConnOf(username string) (*Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[username]
	if !ok {
		return nil, false
	}
	return s.Conn, true
}

// Touch advances the user's last-seen timestamp.
func (r *SessionRegistry) Touch(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[username]; ok {
		s.LastSeen = time.Now()
	}
}

// LastSeen reports the last-seen timestamp for username.
func (r *SessionRegistry) LastSeen(username string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[username]
	if !ok {
		return time.Time{}, false
	}
	return s.LastSeen, true
}

// Snapshot returns a copy of every session for iteration outside the lock.
func (r *SessionRegistry) Snapshot() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	return out
}

// Len returns the number of active sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
