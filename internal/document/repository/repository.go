package repository

import (
	"context"
	"errors"

	"github.com/collabpad/collabpad/internal/document"
)

var ErrNotFound = errors.New("document not found")

// Repository defines durable persistence for documents. Implementations must
// make GetOrCreate idempotent under concurrent calls for the same id: the id
// acts as a uniqueness constraint and exactly one record may exist per id.
type Repository interface {
	Get(ctx context.Context, id string) (*document.Document, error)
	GetOrCreate(ctx context.Context, id, creatorUserID string) (*document.Document, error)
	UpdateContent(ctx context.Context, id, content, userID string) error
	UpdateActiveUsers(ctx context.Context, id string, entries []document.PresenceEntry) error
}
