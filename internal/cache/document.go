package cache

import (
	"context"

	"github.com/google/uuid"

	"github.com/emrgen/grantcore/internal/model"
)

// DocumentCache is a read-through cache of document heads. Cached values
// are snapshots; a miss is reported as a nil document and a nil error.
type DocumentCache interface {
	// GetDocument gets a document from the cache.
	GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error)
	// SetDocument stores a document unless the cache already holds a newer
	// snapshot of it.
	SetDocument(ctx context.Context, doc *model.Document) error
	// DeleteDocument deletes a document from the cache.
	DeleteDocument(ctx context.Context, id uuid.UUID) error
}

var _ DocumentCache = (*NopDocumentCache)(nil)

type NopDocumentCache struct{}

func NewNopDocumentCache() *NopDocumentCache {
	return &NopDocumentCache{}
}

func (NopDocumentCache) GetDocument(context.Context, uuid.UUID) (*model.Document, error) {
	return nil, nil
}

func (NopDocumentCache) SetDocument(context.Context, *model.Document) error { return nil }

func (NopDocumentCache) DeleteDocument(context.Context, uuid.UUID) error { return nil }

// newer reports whether a is a later snapshot of the same document than b.
func newer(a, b *model.Document) bool {
	if a.HeadSequence != b.HeadSequence {
		return a.HeadSequence > b.HeadSequence
	}
	return a.UpdatedAt.After(b.UpdatedAt)
}
