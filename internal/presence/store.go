package presence

import (
	"context"
	"sync"
	"time"

	"github.com/collabpad/collabpad/internal/document"
	"github.com/collabpad/collabpad/pkg/logger"
)

// DefaultStaleAfter is how long an entry may stay idle before it is swept.
const DefaultStaleAfter = 5 * time.Minute

// Syncer writes the pruned active-user list through to durable storage.
// Implemented by the document repository.
type Syncer interface {
	UpdateActiveUsers(ctx context.Context, docID string, entries []document.PresenceEntry) error
}

// Store tracks active users per document. Entries are keyed by (docID, userID)
// so repeated upserts refresh rather than duplicate, and kept in insertion
// order of first appearance. Stale entries (idle longer than staleAfter) are
// pruned on every read and every mutation. After each mutation the surviving
// list is synced to durable storage best-effort; the in-memory list stays
// authoritative when the write fails.
type Store struct {
	mu         sync.Mutex
	staleAfter time.Duration
	docs       map[string][]document.PresenceEntry
	sync       Syncer

	// now is swappable in tests
	now func() time.Time
}

func NewStore(staleAfter time.Duration, sync Syncer) *Store {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Store{
		staleAfter: staleAfter,
		docs:       make(map[string][]document.PresenceEntry),
		sync:       sync,
		now:        time.Now,
	}
}

// Upsert inserts or refreshes the user's entry, prunes stale entries and
// returns the resulting list. CursorPosition is updated only when provided.
func (s *Store) Upsert(ctx context.Context, docID, userID, username string, cursorPosition *int) []document.PresenceEntry {
	s.mu.Lock()
	now := s.now()
	entries := s.docs[docID]
	found := false
	for i := range entries {
		if entries[i].UserID == userID {
			entries[i].LastActive = now
			entries[i].Username = username
			if cursorPosition != nil {
				entries[i].CursorPosition = cursorPosition
			}
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, document.PresenceEntry{
			UserID:         userID,
			Username:       username,
			LastActive:     now,
			CursorPosition: cursorPosition,
		})
	}
	out := s.pruneLocked(docID, entries)
	s.mu.Unlock()

	s.writeThrough(ctx, docID, out)
	return out
}

// Remove deletes every entry for the user (duplicates never linger) and
// returns the remaining list. Removing an absent user is a no-op.
func (s *Store) Remove(ctx context.Context, docID, userID string) []document.PresenceEntry {
	s.mu.Lock()
	entries := s.docs[docID]
	kept := entries[:0]
	for _, e := range entries {
		if e.UserID != userID {
			kept = append(kept, e)
		}
	}
	out := s.pruneLocked(docID, kept)
	s.mu.Unlock()

	s.writeThrough(ctx, docID, out)
	return out
}

// Snapshot prunes stale entries and returns the rest. The prune mutates stored
// state so what is reported always matches what is kept.
func (s *Store) Snapshot(ctx context.Context, docID string) []document.PresenceEntry {
	s.mu.Lock()
	before := len(s.docs[docID])
	out := s.pruneLocked(docID, s.docs[docID])
	pruned := before != len(out)
	s.mu.Unlock()

	if pruned {
		s.writeThrough(ctx, docID, out)
	}
	return out
}

// pruneLocked drops stale entries, stores the result and returns a copy.
// Caller must hold mu.
func (s *Store) pruneLocked(docID string, entries []document.PresenceEntry) []document.PresenceEntry {
	cutoff := s.now().Add(-s.staleAfter)
	live := entries[:0]
	for _, e := range entries {
		if e.LastActive.After(cutoff) {
			live = append(live, e)
		}
	}
	if len(live) == 0 {
		delete(s.docs, docID)
	} else {
		s.docs[docID] = live
	}
	return append([]document.PresenceEntry(nil), live...)
}

func (s *Store) writeThrough(ctx context.Context, docID string, entries []document.PresenceEntry) {
	if s.sync == nil {
		return
	}
	if err := s.sync.UpdateActiveUsers(ctx, docID, entries); err != nil {
		logger.Warnf("presence sync for %s failed: %v", docID, err)
	}
}
