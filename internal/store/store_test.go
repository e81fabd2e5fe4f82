package store

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/grantcore/internal/model"
	"github.com/emrgen/grantcore/internal/tester"
)

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"gorm":   NewGormStore(tester.TestDB(t)),
	}
}

func newDocument(owner string) (*model.Document, *model.Version) {
	docID := uuid.New()
	first := &model.Version{
		ID:          uuid.New(),
		DocumentID:  docID,
		Sequence:    1,
		Content:     []byte{0xa0},
		Compression: "none",
		Fingerprint: "00",
		CreatedBy:   owner,
		CreatedAt:   time.Now(),
	}
	doc := &model.Document{
		ID:            docID,
		HeadVersionID: first.ID,
		HeadSequence:  1,
		OwnerID:       owner,
		State:         model.StateDraft,
		Title:         "proposal",
	}
	return doc, first
}

func nextVersion(parent *model.Version) *model.Version {
	parentID := parent.ID
	return &model.Version{
		ID:              uuid.New(),
		DocumentID:      parent.DocumentID,
		Sequence:        parent.Sequence + 1,
		ParentVersionID: &parentID,
		Content:         []byte{0xa0},
		Compression:     "none",
		Fingerprint:     "01",
		CreatedAt:       time.Now(),
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc, first := newDocument("owner-1")
			require.NoError(t, s.CreateDocument(ctx, doc, first))

			got, err := s.GetDocument(ctx, doc.ID)
			require.NoError(t, err)
			assert.Equal(t, first.ID, got.HeadVersionID)
			assert.Equal(t, model.StateDraft, got.State)

			version, err := s.GetVersion(ctx, first.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), version.Sequence)
			assert.Nil(t, version.ParentVersionID)

			_, err = s.GetDocument(ctx, uuid.New())
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.GetVersion(ctx, uuid.New())
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_CommitVersion(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc, first := newDocument("owner-1")
			require.NoError(t, s.CreateDocument(ctx, doc, first))

			second := nextVersion(first)
			updated, err := s.CommitVersion(ctx, first.ID, second)
			require.NoError(t, err)
			assert.Equal(t, second.ID, updated.HeadVersionID)
			assert.Equal(t, int64(2), updated.HeadSequence)

			// stale expected head
			stale := nextVersion(first)
			_, err = s.CommitVersion(ctx, first.ID, stale)
			assert.ErrorIs(t, err, ErrHeadMoved)
			_, err = s.GetVersion(ctx, stale.ID)
			assert.ErrorIs(t, err, ErrNotFound)

			versions, err := s.ListVersions(ctx, doc.ID)
			require.NoError(t, err)
			require.Len(t, versions, 2)
			assert.Equal(t, int64(2), versions[0].Sequence)
			assert.Equal(t, int64(1), versions[1].Sequence)
		})
	}
}

func TestStore_CommitVersionRace(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc, first := newDocument("owner-1")
			require.NoError(t, s.CreateDocument(ctx, doc, first))

			const writers = 8
			var wg sync.WaitGroup
			errs := make([]error, writers)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = s.CommitVersion(ctx, first.ID, nextVersion(first))
				}(i)
			}
			wg.Wait()

			wins := 0
			for _, err := range errs {
				if err == nil {
					wins++
				} else {
					assert.ErrorIs(t, err, ErrHeadMoved)
				}
			}
			assert.Equal(t, 1, wins)

			versions, err := s.ListVersions(ctx, doc.ID)
			require.NoError(t, err)
			assert.Len(t, versions, 2)
		})
	}
}

func TestStore_SwapState(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc, first := newDocument("owner-1")
			require.NoError(t, s.CreateDocument(ctx, doc, first))

			now := time.Now()
			updated, err := s.SwapState(ctx, doc.ID, first.ID, model.StateDraft, model.StateGenerating, now)
			require.NoError(t, err)
			assert.Equal(t, model.StateGenerating, updated.State)

			_, err = s.SwapState(ctx, doc.ID, first.ID, model.StateDraft, model.StateGenerating, now)
			assert.ErrorIs(t, err, ErrHeadMoved)

			deleted, err := s.SwapState(ctx, doc.ID, first.ID, model.StateGenerating, model.StateDeleted, now)
			require.NoError(t, err)
			require.NotNil(t, deleted.SoftDeletedAt)

			// terminal documents reject new versions
			_, err = s.CommitVersion(ctx, first.ID, nextVersion(first))
			assert.ErrorIs(t, err, ErrHeadMoved)
		})
	}
}

func TestStore_EraseDocument(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc, first := newDocument("owner-1")
			require.NoError(t, s.CreateDocument(ctx, doc, first))
			_, err := s.UpsertReference(ctx, &model.Reference{
				DocumentID: doc.ID, EntryID: "e1", RelevanceScore: 0.5, CreatedBy: model.ReferenceByUser,
			})
			require.NoError(t, err)

			require.NoError(t, s.EraseDocument(ctx, doc.ID))

			_, err = s.GetDocument(ctx, doc.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.GetVersion(ctx, first.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			refs, err := s.ListReferencesByEntries(ctx, []string{"e1"})
			require.NoError(t, err)
			assert.Empty(t, refs)

			assert.ErrorIs(t, s.EraseDocument(ctx, doc.ID), ErrNotFound)
		})
	}
}

func TestStore_ListDocuments(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Now().UTC().Truncate(time.Second)
			fixtures := []struct {
				title, field string
				state        model.LifecycleState
			}{
				{"Coral reef acoustics", "Marine Biology", model.StateDraft},
				{"Soil 100% carbon", "Ecology", model.StateReviewing},
				{"Deep learning for reefs", "Computer Science", model.StateDraft},
				{"Protein folding", "Biochemistry", model.StateSubmitted},
			}
			ids := make([]uuid.UUID, len(fixtures))
			for i, f := range fixtures {
				doc, first := newDocument("owner-a")
				doc.Title, doc.ResearchField, doc.State = f.title, f.field, f.state
				doc.CreatedAt = base.Add(time.Duration(i) * time.Second)
				doc.UpdatedAt = base.Add(time.Duration(10-i) * time.Second)
				require.NoError(t, s.CreateDocument(ctx, doc, first))
				ids[i] = doc.ID
			}
			doc, first := newDocument("owner-b")
			require.NoError(t, s.CreateDocument(ctx, doc, first))

			docs, total, err := s.ListDocuments(ctx, DocumentQuery{OwnerID: "owner-a"})
			require.NoError(t, err)
			assert.Equal(t, int64(4), total)
			require.Len(t, docs, 4)
			for i := range docs {
				assert.Equal(t, ids[i], docs[i].ID, "oldest first")
			}

			docs, total, err = s.ListDocuments(ctx, DocumentQuery{OwnerID: "owner-a", Offset: 1, Limit: 2})
			require.NoError(t, err)
			assert.Equal(t, int64(4), total)
			require.Len(t, docs, 2)
			assert.Equal(t, ids[1], docs[0].ID)
			assert.Equal(t, ids[2], docs[1].ID)

			docs, total, err = s.ListDocuments(ctx, DocumentQuery{OwnerID: "owner-a", Offset: 10})
			require.NoError(t, err)
			assert.Equal(t, int64(4), total)
			assert.Empty(t, docs)

			docs, _, err = s.ListDocuments(ctx, DocumentQuery{OwnerID: "owner-a", OrderBy: OrderByUpdatedAt, Desc: true})
			require.NoError(t, err)
			require.Len(t, docs, 4)
			assert.Equal(t, ids[0], docs[0].ID, "most recently updated first")

			docs, _, err = s.ListDocuments(ctx, DocumentQuery{OwnerID: "owner-a", OrderBy: OrderByTitle})
			require.NoError(t, err)
			require.Len(t, docs, 4)
			assert.Equal(t, "Coral reef acoustics", docs[0].Title)
			assert.Equal(t, "Soil 100% carbon", docs[3].Title)

			docs, total, err = s.ListDocuments(ctx, DocumentQuery{OwnerID: "owner-a", State: model.StateDraft})
			require.NoError(t, err)
			assert.Equal(t, int64(2), total)
			assert.Len(t, docs, 2)

			// title or research field, any case
			docs, total, err = s.ListDocuments(ctx, DocumentQuery{OwnerID: "owner-a", Search: "REEF"})
			require.NoError(t, err)
			assert.Equal(t, int64(2), total)
			assert.Len(t, docs, 2)
			docs, _, err = s.ListDocuments(ctx, DocumentQuery{OwnerID: "owner-a", Search: "computer"})
			require.NoError(t, err)
			require.Len(t, docs, 1)
			assert.Equal(t, ids[2], docs[0].ID)

			// wildcards are literal
			docs, _, err = s.ListDocuments(ctx, DocumentQuery{OwnerID: "owner-a", Search: "100%"})
			require.NoError(t, err)
			require.Len(t, docs, 1)
			assert.Equal(t, ids[1], docs[0].ID)
			docs, total, err = s.ListDocuments(ctx, DocumentQuery{OwnerID: "owner-a", Search: "_"})
			require.NoError(t, err)
			assert.Zero(t, total)
			assert.Empty(t, docs)

			counts, err := s.CountDocumentsByState(ctx, "owner-a")
			require.NoError(t, err)
			assert.Equal(t, map[model.LifecycleState]int64{
				model.StateDraft:     2,
				model.StateReviewing: 1,
				model.StateSubmitted: 1,
			}, counts)

			counts, err = s.CountDocumentsByState(ctx, "nobody")
			require.NoError(t, err)
			assert.Empty(t, counts)
		})
	}
}

func TestStore_References(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			docID := uuid.New()
			created := time.Now().Add(-time.Hour).Truncate(time.Second)

			ref, err := s.UpsertReference(ctx, &model.Reference{
				DocumentID: docID, EntryID: "e1", RelevanceScore: 0.2,
				CreatedBy: model.ReferenceBySystem, CreatedAt: created, UpdatedAt: created, DecayedAt: created,
			})
			require.NoError(t, err)
			assert.InDelta(t, 0.2, ref.RelevanceScore, 1e-9)

			later := time.Now().Truncate(time.Second)
			ref, err = s.UpsertReference(ctx, &model.Reference{
				DocumentID: docID, EntryID: "e1", RelevanceScore: 0.9,
				CreatedBy: model.ReferenceByUser, CreatedAt: later, UpdatedAt: later, DecayedAt: later,
			})
			require.NoError(t, err)
			assert.InDelta(t, 0.9, ref.RelevanceScore, 1e-9)
			assert.True(t, created.Equal(ref.CreatedAt), "created_at kept from first link")
			assert.Equal(t, model.ReferenceBySystem, ref.CreatedBy)

			refs, err := s.ListReferences(ctx, docID)
			require.NoError(t, err)
			assert.Len(t, refs, 1)

			system, err := s.ListReferencesByOrigin(ctx, model.ReferenceBySystem)
			require.NoError(t, err)
			assert.Len(t, system, 1)

			decayedAt := later.Add(time.Minute)
			updated, err := s.UpdateReferenceScore(ctx, system[0], 0.45, decayedAt)
			require.NoError(t, err)
			assert.True(t, updated)
			refs, err = s.ListReferences(ctx, docID)
			require.NoError(t, err)
			assert.InDelta(t, 0.45, refs[0].RelevanceScore, 1e-9)

			// a second writer holding the old row loses
			updated, err = s.UpdateReferenceScore(ctx, system[0], 0.1, decayedAt)
			require.NoError(t, err)
			assert.False(t, updated)
			refs, err = s.ListReferences(ctx, docID)
			require.NoError(t, err)
			assert.InDelta(t, 0.45, refs[0].RelevanceScore, 1e-9)

			require.NoError(t, s.DeleteReference(ctx, docID, "e1"))
			require.NoError(t, s.DeleteReference(ctx, docID, "e1"))
			refs, err = s.ListReferences(ctx, docID)
			require.NoError(t, err)
			assert.Empty(t, refs)
		})
	}
}

func TestStore_Corpus(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rng := rand.New(rand.NewSource(1))
			published := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

			for _, id := range []string{"c", "a", "b"} {
				require.NoError(t, s.SaveCorpusEntry(ctx, tester.CorpusEntry(rng, id, 4, published)))
			}

			entry, err := s.GetCorpusEntry(ctx, "a")
			require.NoError(t, err)
			assert.Len(t, entry.Embedding.Slice(), 4)
			assert.Equal(t, "cs.LG", entry.Category)

			require.NoError(t, s.UpdateCitationCount(ctx, "a", 42))
			entry, err = s.GetCorpusEntry(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, int64(42), entry.CitationCount)
			assert.ErrorIs(t, s.UpdateCitationCount(ctx, "missing", 1), ErrNotFound)

			reingest := tester.CorpusEntry(rng, "a", 4, published)
			reingest.Title = "Revised title"
			require.NoError(t, s.SaveCorpusEntry(ctx, reingest))
			entry, err = s.GetCorpusEntry(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, "Revised title", entry.Title)
			assert.Equal(t, int64(42), entry.CitationCount)

			listed, err := s.ListCorpusEntries(ctx, []string{"a", "b", "missing"})
			require.NoError(t, err)
			assert.Len(t, listed, 2)

			var seen []string
			err = s.ScanCorpusEntries(ctx, 2, func(batch []*model.CorpusEntry) error {
				for _, e := range batch {
					seen = append(seen, e.ID)
				}
				return nil
			})
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)

			_, err = s.UpsertReference(ctx, &model.Reference{
				DocumentID: uuid.New(), EntryID: "b", RelevanceScore: 1, CreatedBy: model.ReferenceByUser,
			})
			require.NoError(t, err)
			require.NoError(t, s.EraseCorpusEntry(ctx, "b"))
			_, err = s.GetCorpusEntry(ctx, "b")
			assert.ErrorIs(t, err, ErrNotFound)
			refs, err := s.ListReferencesByEntries(ctx, []string{"b"})
			require.NoError(t, err)
			assert.Empty(t, refs)
		})
	}
}
