package repository

import (
	"context"
	"sync"
	"time"

	"github.com/collabpad/collabpad/internal/document"
)

// MemoryRepo is a simple in-memory repository used for unit tests and for
// running without a configured MongoDB.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*document.Document
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*document.Document)}
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	cp.ActiveUsers = append([]document.PresenceEntry(nil), d.ActiveUsers...)
	return &cp, nil
}

func (m *MemoryRepo) GetOrCreate(ctx context.Context, id, creatorUserID string) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok {
		d = &document.Document{
			ID:             id,
			Content:        "",
			LastModified:   time.Now().UTC(),
			LastModifiedBy: creatorUserID,
			ActiveUsers:    []document.PresenceEntry{},
		}
		m.store[id] = d
	}
	cp := *d
	cp.ActiveUsers = append([]document.PresenceEntry(nil), d.ActiveUsers...)
	return &cp, nil
}

func (m *MemoryRepo) UpdateContent(ctx context.Context, id, content, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok {
		d = &document.Document{ID: id, ActiveUsers: []document.PresenceEntry{}}
		m.store[id] = d
	}
	d.Content = content
	d.LastModified = time.Now().UTC()
	d.LastModifiedBy = userID
	return nil
}

func (m *MemoryRepo) UpdateActiveUsers(ctx context.Context, id string, entries []document.PresenceEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	d.ActiveUsers = append([]document.PresenceEntry(nil), entries...)
	return nil
}
