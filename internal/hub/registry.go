package hub

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry tracks live sessions keyed by their connection.
type Registry struct {
	sessions     map[Conn]*Session
	mu           sync.RWMutex
	writeTimeout time.Duration
	observers    []Observer
}

// Observer is notified after a session joins or leaves the live set.
type Observer interface {
	SessionOpened(sessionID string)
	SessionClosed(sessionID string)
}

// NewRegistry creates an empty registry. writeTimeout bounds every send.
func NewRegistry(writeTimeout time.Duration) *Registry {
	return &Registry{
		sessions:     make(map[Conn]*Session),
		writeTimeout: writeTimeout,
	}
}

// AddObserver installs o. Call before serving connections.
func (r *Registry) AddObserver(o Observer) {
	r.observers = append(r.observers, o)
}

// Connect registers conn as live under a fresh random session id.
func (r *Registry) Connect(conn Conn) *Session {
	s := &Session{
		ID:           uuid.NewString(),
		ConnectedAt:  time.Now(),
		conn:         conn,
		writeTimeout: r.writeTimeout,
		state:        StateOpen,
	}

	r.mu.Lock()
	r.sessions[conn] = s
	total := len(r.sessions)
	r.mu.Unlock()

	log.Printf("[Hub] Session %s connected, live: %d", s.ID, total)
	for _, o := range r.observers {
		o.SessionOpened(s.ID)
	}
	return s
}

// Disconnect removes conn from the live set and closes it.
// Disconnecting an absent connection is a no-op and returns false.
func (r *Registry) Disconnect(conn Conn) bool {
	r.mu.Lock()
	s, ok := r.sessions[conn]
	if ok {
		delete(r.sessions, conn)
	}
	total := len(r.sessions)
	r.mu.Unlock()

	if !ok || !s.close() {
		return false
	}

	_ = conn.Close()
	log.Printf("[Hub] Session %s disconnected after %v, live: %d",
		s.ID, s.Duration().Round(time.Second), total)
	for _, o := range r.observers {
		o.SessionClosed(s.ID)
	}
	return true
}

// Lookup returns the live session for conn.
func (r *Registry) Lookup(conn Conn) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[conn]
	return s, ok
}

// Snapshot returns the sessions live at the time of the call.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// ForEachLive calls fn for every session in a snapshot, skipping sessions
// that closed after the snapshot was taken. A non-nil error from fn
// disconnects that session once the whole snapshot has been visited, so
// observers of the disconnect never delay the remaining sessions.
func (r *Registry) ForEachLive(fn func(s *Session) error) {
	var failed []*Session
	for _, s := range r.Snapshot() {
		if !s.IsOpen() {
			continue
		}
		if err := fn(s); err != nil {
			log.Printf("[Hub] Dropping session %s: %v", s.ID, err)
			failed = append(failed, s)
		}
	}
	for _, s := range failed {
		r.Disconnect(s.conn)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}
