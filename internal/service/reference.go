package service

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/grantcore/internal/metrics"
	"github.com/emrgen/grantcore/internal/model"
	"github.com/emrgen/grantcore/internal/store"
)

// NewReferenceService creates a new ReferenceService.
func NewReferenceService(store store.Store) *ReferenceService {
	return &ReferenceService{store: store}
}

// ReferenceService maintains the scored links between proposals and corpus
// entries.
type ReferenceService struct {
	store store.Store
}

// Link creates the reference or overwrites its score. The first link of a
// pair fixes its creation time and origin.
func (r *ReferenceService) Link(ctx context.Context, docID uuid.UUID, entryID string, score float64, origin model.ReferenceOrigin) (*model.Reference, error) {
	if strings.TrimSpace(entryID) == "" {
		return nil, invalidArgument("entry id is required")
	}
	if math.IsNaN(score) || score < 0 || score > 1 {
		return nil, invalidArgument("relevance score %v is outside [0, 1]", score)
	}
	if origin == "" {
		origin = model.ReferenceByUser
	}
	if origin != model.ReferenceByUser && origin != model.ReferenceBySystem {
		return nil, invalidArgument("unknown reference origin %q", origin)
	}

	if _, err := r.store.GetDocument(ctx, docID); err != nil {
		return nil, err
	}
	if _, err := r.store.GetCorpusEntry(ctx, entryID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return r.store.UpsertReference(ctx, &model.Reference{
		DocumentID:     docID,
		EntryID:        entryID,
		RelevanceScore: score,
		CreatedBy:      origin,
		CreatedAt:      now,
		UpdatedAt:      now,
		DecayedAt:      now,
	})
}

// Unlink removes a reference. Removing a missing reference is not an error.
func (r *ReferenceService) Unlink(ctx context.Context, docID uuid.UUID, entryID string) error {
	return r.store.DeleteReference(ctx, docID, entryID)
}

// TopReferences returns the k best scored references of a document. Equal
// scores put the most recently created reference first, then the lower
// entry id.
func (r *ReferenceService) TopReferences(ctx context.Context, docID uuid.UUID, k int) ([]*model.Reference, error) {
	if k <= 0 {
		return []*model.Reference{}, nil
	}

	refs, err := r.store.ListReferences(ctx, docID)
	if err != nil {
		return nil, err
	}

	sort.Slice(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.EntryID < b.EntryID
	})

	if len(refs) > k {
		refs = refs[:k]
	}
	return refs, nil
}

// LinkedDocuments maps each entry to the documents referencing it.
func (r *ReferenceService) LinkedDocuments(ctx context.Context, entryIDs []string) (map[string][]uuid.UUID, error) {
	refs, err := r.store.ListReferencesByEntries(ctx, entryIDs)
	if err != nil {
		return nil, err
	}

	linked := make(map[string][]uuid.UUID, len(entryIDs))
	for _, ref := range refs {
		linked[ref.EntryID] = append(linked[ref.EntryID], ref.DocumentID)
	}
	for _, docs := range linked {
		sort.Slice(docs, func(i, j int) bool {
			return docs[i].String() < docs[j].String()
		})
	}
	return linked, nil
}

// Decay halves the score of every system created reference once per
// halfLife elapsed since it was last decayed. User references keep their
// score. A reference relinked while the pass runs keeps its new score. It
// returns the number of references updated.
func (r *ReferenceService) Decay(ctx context.Context, halfLife time.Duration, now time.Time) (int, error) {
	if halfLife <= 0 {
		return 0, invalidArgument("half life must be positive")
	}

	refs, err := r.store.ListReferencesByOrigin(ctx, model.ReferenceBySystem)
	if err != nil {
		return 0, err
	}

	decayed := 0
	for _, ref := range refs {
		elapsed := now.Sub(ref.DecayedAt)
		if elapsed <= 0 {
			continue
		}
		score := ref.RelevanceScore * math.Pow(0.5, float64(elapsed)/float64(halfLife))
		updated, err := r.store.UpdateReferenceScore(ctx, ref, score, now)
		if err != nil {
			return decayed, err
		}
		if !updated {
			logrus.Debugf("reference %s -> %s changed during decay, skipped", ref.DocumentID, ref.EntryID)
			continue
		}
		decayed++
	}

	metrics.ReferencesDecayed.Add(float64(decayed))
	logrus.Infof("decayed %d system references", decayed)
	return decayed, nil
}
