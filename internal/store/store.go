package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/emrgen/grantcore/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrHeadMoved is returned when a conditional write finds the document
	// in a different state than the caller expected.
	ErrHeadMoved = errors.New("document head moved")
	// ErrUnavailable wraps any failure of the backing database.
	ErrUnavailable = errors.New("storage unavailable")
)

// Columns a document listing can be ordered by.
const (
	OrderByCreatedAt = "created_at"
	OrderByUpdatedAt = "updated_at"
	OrderByTitle     = "title"
)

// DocumentQuery selects a page of the documents of one owner.
type DocumentQuery struct {
	OwnerID string
	// State matches every state when empty.
	State model.LifecycleState
	// Search matches a case-insensitive substring of the title or the
	// research field.
	Search string
	// OrderBy is one of the OrderBy columns; ties are broken by id.
	OrderBy string
	Desc    bool
	Offset  int
	// Limit of zero returns every remaining document.
	Limit int
}

type Store interface {
	DocumentStore
	VersionStore
	CorpusStore
	ReferenceStore
	Migrate() error
}

type DocumentStore interface {
	// CreateDocument writes a document together with its first version.
	CreateDocument(ctx context.Context, doc *model.Document, first *model.Version) error
	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error)
	// ListDocuments retrieves a page of documents and the number of
	// documents matching the query before paging.
	ListDocuments(ctx context.Context, query DocumentQuery) ([]*model.Document, int64, error)
	// CountDocumentsByState counts the documents of an owner per state.
	// States without documents are absent.
	CountDocumentsByState(ctx context.Context, ownerID string) (map[model.LifecycleState]int64, error)
	// CommitVersion appends next and moves the head of next.DocumentID to it
	// in one atomic step, provided the head is still expected and the
	// document is not in a terminal state. Otherwise nothing is written and
	// ErrHeadMoved is returned.
	CommitVersion(ctx context.Context, expected uuid.UUID, next *model.Version) (*model.Document, error)
	// SwapState moves the document from one state to another, provided the
	// head is still expectedHead and the state is still from.
	SwapState(ctx context.Context, id, expectedHead uuid.UUID, from, to model.LifecycleState, at time.Time) (*model.Document, error)
	// EraseDocument hard deletes a document, its versions and references.
	EraseDocument(ctx context.Context, id uuid.UUID) error
}

type VersionStore interface {
	// GetVersion retrieves a version by ID.
	GetVersion(ctx context.Context, id uuid.UUID) (*model.Version, error)
	// ListVersions retrieves every version of a document, newest first.
	ListVersions(ctx context.Context, docID uuid.UUID) ([]*model.Version, error)
}

type CorpusStore interface {
	// SaveCorpusEntry inserts or replaces a corpus entry. Replacing keeps the
	// stored citation count, which only UpdateCitationCount changes.
	SaveCorpusEntry(ctx context.Context, entry *model.CorpusEntry) error
	// GetCorpusEntry retrieves a corpus entry by ID.
	GetCorpusEntry(ctx context.Context, id string) (*model.CorpusEntry, error)
	// ListCorpusEntries retrieves the corpus entries with the given IDs.
	// Unknown IDs are skipped.
	ListCorpusEntries(ctx context.Context, ids []string) ([]*model.CorpusEntry, error)
	// ScanCorpusEntries calls fn with every corpus entry in batches.
	ScanCorpusEntries(ctx context.Context, batch int, fn func([]*model.CorpusEntry) error) error
	// UpdateCitationCount refreshes the only mutable field of an entry.
	UpdateCitationCount(ctx context.Context, id string, count int64) error
	// EraseCorpusEntry hard deletes a corpus entry and its references.
	EraseCorpusEntry(ctx context.Context, id string) error
}

type ReferenceStore interface {
	// UpsertReference creates a reference or overwrites the score of an
	// existing one, keeping its creation time and origin.
	UpsertReference(ctx context.Context, ref *model.Reference) (*model.Reference, error)
	// DeleteReference removes a reference. Missing references are ignored.
	DeleteReference(ctx context.Context, docID uuid.UUID, entryID string) error
	// ListReferences retrieves the references of a document.
	ListReferences(ctx context.Context, docID uuid.UUID) ([]*model.Reference, error)
	// ListReferencesByEntries retrieves the references pointing at entries.
	ListReferencesByEntries(ctx context.Context, entryIDs []string) ([]*model.Reference, error)
	// ListReferencesByOrigin retrieves every reference with the given origin.
	ListReferencesByOrigin(ctx context.Context, origin model.ReferenceOrigin) ([]*model.Reference, error)
	// UpdateReferenceScore sets a decayed score, provided the reference still
	// has the score and decay time of prev. It reports false and writes
	// nothing when the reference was relinked, decayed or removed since prev
	// was read.
	UpdateReferenceScore(ctx context.Context, prev *model.Reference, score float64, decayedAt time.Time) (bool, error)
}
