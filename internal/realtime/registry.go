package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/collabpad/collabpad/pkg/metrics"
)

type sessionEntry struct {
	userID     string
	documentID string
}

// Registry maps live connections to the (user, document) pair they joined.
// Exactly one session exists per connection; a second join overwrites the
// first association.
type Registry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]sessionEntry)}
}

// Join records the session. A connection re-joining while already joined
// replaces its previous association and returns the old document id so the
// caller can detach transport subscriptions (presence for the old document is
// left to staleness eviction).
func (r *Registry) Join(connID uuid.UUID, userID, documentID string) (prevDocID string, rejoined bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.sessions[connID]; ok {
		prevDocID, rejoined = prev.documentID, true
	} else {
		metrics.OpenSessions.Inc()
	}
	r.sessions[connID] = sessionEntry{userID: userID, documentID: documentID}
	return prevDocID, rejoined
}

// Leave removes and returns the session's identity. A connection that never
// joined returns ok=false, so disconnect-before-join is a safe no-op.
func (r *Registry) Leave(connID uuid.UUID) (userID, documentID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[connID]
	if !ok {
		return "", "", false
	}
	delete(r.sessions, connID)
	metrics.OpenSessions.Dec()
	return entry.userID, entry.documentID, true
}

// Lookup returns the session identity without removing it.
func (r *Registry) Lookup(connID uuid.UUID) (userID, documentID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[connID]
	return entry.userID, entry.documentID, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
