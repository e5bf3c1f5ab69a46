package manager

import (
	"context"
	"sync"
	"time"

	"github.com/collabpad/collabpad/internal/document"
	"github.com/collabpad/collabpad/internal/document/repository"
	"github.com/collabpad/collabpad/pkg/logger"
	"github.com/collabpad/collabpad/pkg/metrics"
)

// DefaultDebounce is the quiet period after which an edited document is
// written durably. Edits arriving inside the window cancel and re-arm the
// pending write, so a keystroke burst collapses into a single persist.
const DefaultDebounce = time.Second

const persistTimeout = 10 * time.Second

// Archiver uploads a content snapshot alongside each durable persist.
// Optional; a nil Archiver disables snapshots.
type Archiver interface {
	Archive(ctx context.Context, docID, content string) error
}

// residentDoc is the per-document working copy held for the process lifetime.
// The timer is the cancellable handle for the pending debounced write.
type residentDoc struct {
	content        string
	lastModifiedBy string
	timer          *time.Timer
	dirty          bool
}

// Manager owns authoritative in-memory content per document id and coordinates
// reads and debounced writes against durable storage. In-memory content is
// authoritative for live reads; durable state may lag while edits keep
// arriving.
type Manager struct {
	mu       sync.Mutex
	repo     repository.Repository
	archive  Archiver
	debounce time.Duration
	docs     map[string]*residentDoc
}

func New(repo repository.Repository, archive Archiver, debounce time.Duration) *Manager {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Manager{
		repo:     repo,
		archive:  archive,
		debounce: debounce,
		docs:     make(map[string]*residentDoc),
	}
}

// GetOrCreate returns the durable record (created empty when absent) with its
// content replaced by the resident working copy when one exists, so joins
// always observe the latest edits.
func (m *Manager) GetOrCreate(ctx context.Context, docID, creatorUserID string) (*document.Document, error) {
	d, err := m.repo.GetOrCreate(ctx, docID, creatorUserID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rd, ok := m.docs[docID]; ok {
		d.Content = rd.content
		if rd.lastModifiedBy != "" {
			d.LastModifiedBy = rd.lastModifiedBy
		}
	} else {
		m.docs[docID] = &residentDoc{content: d.Content, lastModifiedBy: d.LastModifiedBy}
	}
	return d, nil
}

// ApplyEdit replaces in-memory content immediately (read-your-writes within
// the process) and schedules a durable write after the debounce window. An
// edit arriving before the window elapses cancels the pending write and
// re-arms it.
func (m *Manager) ApplyEdit(docID, newContent, editingUserID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rd, ok := m.docs[docID]
	if !ok {
		rd = &residentDoc{}
		m.docs[docID] = rd
	}
	rd.content = newContent
	rd.lastModifiedBy = editingUserID
	rd.dirty = true
	metrics.EditsApplied.Inc()

	if rd.timer != nil {
		rd.timer.Stop()
	}
	rd.timer = time.AfterFunc(m.debounce, func() { m.persist(docID) })
}

// Read returns the current in-memory content, falling back to durable storage
// (and making the document resident) when the process has not touched it yet.
func (m *Manager) Read(ctx context.Context, docID string) (string, error) {
	m.mu.Lock()
	if rd, ok := m.docs[docID]; ok {
		content := rd.content
		m.mu.Unlock()
		return content, nil
	}
	m.mu.Unlock()

	d, err := m.repo.Get(ctx, docID)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	if _, ok := m.docs[docID]; !ok {
		m.docs[docID] = &residentDoc{content: d.Content, lastModifiedBy: d.LastModifiedBy}
	}
	content := m.docs[docID].content
	m.mu.Unlock()
	return content, nil
}

// persist writes the latest in-memory content durably. Failures are logged,
// not retried; the next edit re-arms the debounce and tries again.
func (m *Manager) persist(docID string) {
	m.mu.Lock()
	rd, ok := m.docs[docID]
	if !ok || !rd.dirty {
		m.mu.Unlock()
		return
	}
	content := rd.content
	userID := rd.lastModifiedBy
	rd.dirty = false
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	metrics.PersistWrites.Inc()
	if err := m.repo.UpdateContent(ctx, docID, content, userID); err != nil {
		metrics.PersistFailures.Inc()
		logger.Errorf("persist %s failed: %v", docID, err)
		m.mu.Lock()
		rd.dirty = true
		m.mu.Unlock()
		return
	}

	if m.archive != nil {
		if err := m.archive.Archive(ctx, docID, content); err != nil {
			logger.Warnf("snapshot archive %s failed: %v", docID, err)
		}
	}
}

// Close flushes every pending debounced write synchronously. Call on shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.docs))
	for id, rd := range m.docs {
		if rd.timer != nil {
			rd.timer.Stop()
			rd.timer = nil
		}
		if rd.dirty {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.persist(id)
	}
}
