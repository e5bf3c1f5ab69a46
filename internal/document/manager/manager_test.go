package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/collabpad/collabpad/internal/document/repository"
)

// countingRepo wraps MemoryRepo and counts durable content writes.
type countingRepo struct {
	*repository.MemoryRepo
	mu     sync.Mutex
	writes int
}

func newCountingRepo() *countingRepo {
	return &countingRepo{MemoryRepo: repository.NewMemoryRepo()}
}

func (c *countingRepo) UpdateContent(ctx context.Context, id, content, userID string) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.MemoryRepo.UpdateContent(ctx, id, content, userID)
}

func (c *countingRepo) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	repo := newCountingRepo()
	m := New(repo, nil, DefaultDebounce)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := m.GetOrCreate(ctx, "doc1", "creator")
			require.NoError(t, err)
			require.Equal(t, "", d.Content)
		}()
	}
	wg.Wait()

	d, err := repo.Get(ctx, "doc1")
	require.NoError(t, err)
	require.Equal(t, "doc1", d.ID)
	require.Equal(t, "", d.Content)
}

func TestApplyEditReadYourWrites(t *testing.T) {
	repo := newCountingRepo()
	m := New(repo, nil, time.Hour) // debounce never fires during the test
	ctx := context.Background()

	_, err := m.GetOrCreate(ctx, "doc1", "u1")
	require.NoError(t, err)

	m.ApplyEdit("doc1", "hello", "u1")
	got, err := m.Read(ctx, "doc1")
	require.NoError(t, err)
	require.Equal(t, "hello", got)

	// durable store has not seen the edit yet
	d, err := repo.Get(ctx, "doc1")
	require.NoError(t, err)
	require.Equal(t, "", d.Content)
}

func TestDebounceCollapsesBursts(t *testing.T) {
	repo := newCountingRepo()
	m := New(repo, nil, 50*time.Millisecond)
	ctx := context.Background()

	_, err := m.GetOrCreate(ctx, "doc1", "u1")
	require.NoError(t, err)

	// burst of edits inside the window
	m.ApplyEdit("doc1", "h", "u1")
	m.ApplyEdit("doc1", "he", "u1")
	m.ApplyEdit("doc1", "hel", "u1")
	m.ApplyEdit("doc1", "hello", "u1")

	require.Eventually(t, func() bool {
		d, err := repo.Get(ctx, "doc1")
		return err == nil && d.Content == "hello"
	}, time.Second, 10*time.Millisecond)

	require.Equal(t, 1, repo.writeCount())

	d, err := repo.Get(ctx, "doc1")
	require.NoError(t, err)
	require.Equal(t, "u1", d.LastModifiedBy)
}

func TestFreshEditReschedulesPendingWrite(t *testing.T) {
	repo := newCountingRepo()
	m := New(repo, nil, 60*time.Millisecond)
	ctx := context.Background()

	m.ApplyEdit("doc1", "a", "u1")
	time.Sleep(30 * time.Millisecond)
	m.ApplyEdit("doc1", "ab", "u1") // cancels the first pending write
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, 0, repo.writeCount())

	require.Eventually(t, func() bool {
		return repo.writeCount() == 1
	}, time.Second, 10*time.Millisecond)

	d, err := repo.Get(ctx, "doc1")
	require.NoError(t, err)
	require.Equal(t, "ab", d.Content)
}

func TestReadFallsBackToDurableStore(t *testing.T) {
	repo := newCountingRepo()
	require.NoError(t, repo.MemoryRepo.UpdateContent(context.Background(), "cold", "stored", "u9"))

	m := New(repo, nil, DefaultDebounce)
	got, err := m.Read(context.Background(), "cold")
	require.NoError(t, err)
	require.Equal(t, "stored", got)

	_, err = m.Read(context.Background(), "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

// recordingArchiver captures snapshot uploads
type recordingArchiver struct {
	mu    sync.Mutex
	snaps map[string]string
}

func (r *recordingArchiver) Archive(ctx context.Context, docID, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snaps == nil {
		r.snaps = map[string]string{}
	}
	r.snaps[docID] = content
	return nil
}

func TestPersistArchivesSnapshot(t *testing.T) {
	repo := newCountingRepo()
	arch := &recordingArchiver{}
	m := New(repo, arch, 30*time.Millisecond)

	m.ApplyEdit("doc1", "snapshot me", "u1")

	require.Eventually(t, func() bool {
		arch.mu.Lock()
		defer arch.mu.Unlock()
		return arch.snaps["doc1"] == "snapshot me"
	}, time.Second, 10*time.Millisecond)
}

func TestCloseFlushesPendingWrites(t *testing.T) {
	repo := newCountingRepo()
	m := New(repo, nil, time.Hour)

	m.ApplyEdit("doc1", "unsaved", "u1")
	m.Close()

	d, err := repo.Get(context.Background(), "doc1")
	require.NoError(t, err)
	require.Equal(t, "unsaved", d.Content)
}
