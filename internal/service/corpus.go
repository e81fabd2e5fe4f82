package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/grantcore/internal/metrics"
	"github.com/emrgen/grantcore/internal/model"
	"github.com/emrgen/grantcore/internal/store"
	"github.com/emrgen/grantcore/internal/vector"
)

const (
	// DefaultRebuildFactor triggers a rebuild once the corpus holds four
	// times the square of the list count, i.e. once sqrt(n) has doubled.
	DefaultRebuildFactor = 4.0
	// MaxSearchResults caps k for a single search.
	MaxSearchResults = 1000

	recommendSeeds = 10
	scanBatch      = 500
)

// SearchRequest is a similarity query over the corpus.
type SearchRequest struct {
	Embedding  []float32
	K          int
	Categories []string
	// From and To bound published_at to [From, To); zero bounds are open.
	From time.Time
	To   time.Time
	// WithProposals joins each hit with the documents referencing it.
	WithProposals bool
}

// SearchResult is a hit joined with its corpus entry.
type SearchResult struct {
	Entry      *model.CorpusEntry
	Similarity float64
	Documents  []uuid.UUID
}

// NewCorpusService creates a new CorpusService.
func NewCorpusService(store store.Store, index *vector.Index, references *ReferenceService, rebuildFactor float64) *CorpusService {
	if rebuildFactor <= 0 {
		rebuildFactor = DefaultRebuildFactor
	}
	return &CorpusService{
		store:         store,
		index:         index,
		references:    references,
		validate:      validator.New(),
		rebuildFactor: rebuildFactor,
	}
}

// CorpusService keeps the persisted corpus and the vector index in step and
// answers similarity queries.
type CorpusService struct {
	store         store.Store
	index         *vector.Index
	references    *ReferenceService
	validate      *validator.Validate
	rebuildFactor float64
}

// Ingest persists an entry and indexes its embedding. An existing entry
// with the same id is replaced, except for its citation count.
func (c *CorpusService) Ingest(ctx context.Context, entry *model.CorpusEntry) error {
	if err := c.validate.Struct(entry); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	embedding := entry.Embedding.Slice()
	if err := c.index.Validate(embedding); err != nil {
		return err
	}

	if err := c.store.SaveCorpusEntry(ctx, entry); err != nil {
		return fmt.Errorf("save corpus entry %s: %w", entry.ID, err)
	}
	if err := c.index.Insert(entry.ID, embedding, meta(entry)); err != nil {
		return err
	}

	metrics.SetIndexSize(c.index.Len(), c.index.Lists())
	logrus.Debugf("ingested corpus entry %s", entry.ID)
	return nil
}

// Get returns a corpus entry.
func (c *CorpusService) Get(ctx context.Context, entryID string) (*model.CorpusEntry, error) {
	return c.store.GetCorpusEntry(ctx, entryID)
}

// RefreshCitations sets the citation count of an entry.
func (c *CorpusService) RefreshCitations(ctx context.Context, entryID string, count int64) error {
	if count < 0 {
		return invalidArgument("citation count %d is negative", count)
	}
	return c.store.UpdateCitationCount(ctx, entryID, count)
}

// Retract purges an entry, its references and its embedding.
func (c *CorpusService) Retract(ctx context.Context, entryID string) error {
	if _, err := c.store.GetCorpusEntry(ctx, entryID); err != nil {
		return err
	}
	if err := c.store.EraseCorpusEntry(ctx, entryID); err != nil {
		return err
	}
	c.index.Remove(entryID)

	metrics.SetIndexSize(c.index.Len(), c.index.Lists())
	logrus.Infof("retracted corpus entry %s", entryID)
	return nil
}

// Search runs a similarity query and joins the hits with their entries.
func (c *CorpusService) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	if req.K <= 0 {
		return nil, invalidArgument("k must be positive")
	}
	if req.K > MaxSearchResults {
		return nil, invalidArgument("k must be at most %d", MaxSearchResults)
	}
	if !req.From.IsZero() && !req.To.IsZero() && !req.From.Before(req.To) {
		return nil, invalidArgument("empty published range")
	}

	var filters []vector.Filter
	if len(req.Categories) > 0 {
		filters = append(filters, vector.ByCategory(req.Categories...))
	}
	if !req.From.IsZero() || !req.To.IsZero() {
		filters = append(filters, vector.PublishedBetween(req.From, req.To))
	}

	return c.search(ctx, req.Embedding, req.K, vector.All(filters...), req.WithProposals)
}

// Recommend suggests entries for a document from the mean embedding of its
// best references, leaving out entries it already references.
func (c *CorpusService) Recommend(ctx context.Context, docID uuid.UUID, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, invalidArgument("k must be positive")
	}
	if _, err := c.store.GetDocument(ctx, docID); err != nil {
		return nil, err
	}

	linked, err := c.store.ListReferences(ctx, docID)
	if err != nil {
		return nil, err
	}
	exclude := mapset.NewThreadUnsafeSet[string]()
	for _, ref := range linked {
		exclude.Add(ref.EntryID)
	}

	top, err := c.references.TopReferences(ctx, docID, recommendSeeds)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(top))
	for _, ref := range top {
		ids = append(ids, ref.EntryID)
	}
	seeds, err := c.store.ListCorpusEntries(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return []SearchResult{}, nil
	}

	vectors := make([][]float32, 0, len(seeds))
	for _, entry := range seeds {
		vectors = append(vectors, entry.Embedding.Slice())
	}
	query := vector.Mean(vectors)

	results, err := c.search(ctx, query, k, func(id string, _ vector.Meta) bool {
		return !exclude.Contains(id)
	}, false)
	if errors.Is(err, vector.ErrDegenerateVector) {
		// references pointing in opposite directions cancel out
		return []SearchResult{}, nil
	}
	return results, err
}

func (c *CorpusService) search(ctx context.Context, query []float32, k int, filter vector.Filter, withProposals bool) ([]SearchResult, error) {
	start := time.Now()
	hits, err := c.index.Search(ctx, query, k, filter)
	metrics.ObserveSearch(start, filter != nil)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.ID
	}
	entries, err := c.store.ListCorpusEntries(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.CorpusEntry, len(entries))
	for _, entry := range entries {
		byID[entry.ID] = entry
	}

	var linked map[string][]uuid.UUID
	if withProposals {
		linked, err = c.references.LinkedDocuments(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		entry, ok := byID[hit.ID]
		if !ok {
			// retracted between the index scan and the join
			continue
		}
		results = append(results, SearchResult{
			Entry:      entry,
			Similarity: hit.Similarity,
			Documents:  linked[hit.ID],
		})
	}
	return results, nil
}

// LoadIndex rebuilds the index from every persisted entry.
func (c *CorpusService) LoadIndex(ctx context.Context) error {
	start := time.Now()
	err := c.index.RebuildFrom(func() ([]vector.Entry, error) {
		entries := make([]vector.Entry, 0)
		err := c.store.ScanCorpusEntries(ctx, scanBatch, func(batch []*model.CorpusEntry) error {
			for _, entry := range batch {
				entries = append(entries, vector.Entry{
					ID:        entry.ID,
					Embedding: entry.Embedding.Slice(),
					Meta:      meta(entry),
				})
			}
			return nil
		})
		return entries, err
	})
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	metrics.IndexRebuilds.Observe(time.Since(start).Seconds())
	metrics.SetIndexSize(c.index.Len(), c.index.Lists())
	return nil
}

// RebuildIfNeeded rebuilds the index once it has outgrown its lists and
// reports whether it did.
func (c *CorpusService) RebuildIfNeeded(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	n, lists := c.index.Len(), c.index.Lists()
	if lists == 0 || float64(n) <= c.rebuildFactor*float64(lists*lists) {
		return false, nil
	}

	logrus.Infof("rebuilding vector index: %d entries in %d lists", n, lists)
	start := time.Now()
	if err := c.index.Reindex(); err != nil {
		return false, err
	}

	metrics.IndexRebuilds.Observe(time.Since(start).Seconds())
	metrics.SetIndexSize(c.index.Len(), c.index.Lists())
	return true, nil
}

// Snapshot returns a copy of every indexed entry.
func (c *CorpusService) Snapshot() []vector.Entry {
	return c.index.Snapshot()
}

// IndexStats describes the vector index.
func (c *CorpusService) IndexStats() vector.Stats {
	return c.index.Stats()
}

func meta(entry *model.CorpusEntry) vector.Meta {
	return vector.Meta{Category: entry.Category, PublishedAt: entry.PublishedAt}
}
