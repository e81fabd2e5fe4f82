package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emrgen/grantcore/internal/model"
)

var terminalStates = []model.LifecycleState{model.StateSubmitted, model.StateDeleted}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

// GormStore keeps the four persisted shapes in a relational database. The
// head of a document is moved with a conditional UPDATE, so only the row of
// the document being written is ever contended.
type GormStore struct {
	db *gorm.DB
}

func (g *GormStore) CreateDocument(ctx context.Context, doc *model.Document, first *model.Version) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		return tx.Create(first).Error
	})
	return translate(err)
}

func (g *GormStore) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (g *GormStore) ListDocuments(ctx context.Context, query DocumentQuery) ([]*model.Document, int64, error) {
	filter := func(tx *gorm.DB) *gorm.DB {
		tx = tx.Where("owner_id = ?", query.OwnerID)
		if query.State != "" {
			tx = tx.Where("state = ?", query.State)
		}
		if query.Search != "" {
			pattern := "%" + likeEscaper.Replace(strings.ToLower(query.Search)) + "%"
			tx = tx.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(research_field) LIKE ? ESCAPE '\')`, pattern, pattern)
		}
		return tx
	}

	var total int64
	if err := g.db.WithContext(ctx).Model(&model.Document{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	orderBy := query.OrderBy
	if orderBy == "" {
		orderBy = OrderByCreatedAt
	}
	tx := g.db.WithContext(ctx).Scopes(filter).
		Order(clause.OrderByColumn{Column: clause.Column{Name: orderBy}, Desc: query.Desc}).
		Order("id asc").
		Offset(query.Offset)
	if query.Limit > 0 {
		tx = tx.Limit(query.Limit)
	}

	docs := make([]*model.Document, 0)
	if err := tx.Find(&docs).Error; err != nil {
		return nil, 0, translate(err)
	}
	return docs, total, nil
}

func (g *GormStore) CountDocumentsByState(ctx context.Context, ownerID string) (map[model.LifecycleState]int64, error) {
	var rows []struct {
		State model.LifecycleState
		Count int64
	}
	err := g.db.WithContext(ctx).Model(&model.Document{}).
		Select("state, count(*) as count").
		Where("owner_id = ?", ownerID).
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	counts := make(map[model.LifecycleState]int64, len(rows))
	for _, row := range rows {
		counts[row.State] = row.Count
	}
	return counts, nil
}

func (g *GormStore) CommitVersion(ctx context.Context, expected uuid.UUID, next *model.Version) (*model.Document, error) {
	var doc model.Document
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(next).Error; err != nil {
			if isDuplicate(err) {
				// another writer already took this sequence number
				return ErrHeadMoved
			}
			return err
		}

		res := tx.Model(&model.Document{}).
			Where("id = ? AND head_version_id = ? AND state NOT IN ?", next.DocumentID, expected, terminalStates).
			Updates(map[string]interface{}{
				"head_version_id": next.ID,
				"head_sequence":   next.Sequence,
				"updated_at":      next.CreatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrHeadMoved
		}

		return tx.Where("id = ?", next.DocumentID).First(&doc).Error
	})
	if err != nil {
		return nil, translate(err)
	}

	logrus.Debugf("document %s head moved %s -> %s (sequence %d)", next.DocumentID, expected, next.ID, next.Sequence)
	return &doc, nil
}

func (g *GormStore) SwapState(ctx context.Context, id, expectedHead uuid.UUID, from, to model.LifecycleState, at time.Time) (*model.Document, error) {
	updates := map[string]interface{}{
		"state":      to,
		"updated_at": at,
	}
	switch to {
	case model.StateSubmitted:
		updates["submitted_at"] = at
	case model.StateDeleted:
		updates["soft_deleted_at"] = at
	}

	var doc model.Document
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Document{}).
			Where("id = ? AND head_version_id = ? AND state = ?", id, expectedHead, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrHeadMoved
		}

		return tx.Where("id = ?", id).First(&doc).Error
	})
	if err != nil {
		return nil, translate(err)
	}

	return &doc, nil
}

func (g *GormStore) EraseDocument(ctx context.Context, id uuid.UUID) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&model.Document{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("document_id = ?", id).Delete(&model.Version{}).Error; err != nil {
			return err
		}
		return tx.Where("document_id = ?", id).Delete(&model.Reference{}).Error
	})
	return translate(err)
}

func (g *GormStore) GetVersion(ctx context.Context, id uuid.UUID) (*model.Version, error) {
	var version model.Version
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&version).Error
	if err != nil {
		return nil, translate(err)
	}
	return &version, nil
}

func (g *GormStore) ListVersions(ctx context.Context, docID uuid.UUID) ([]*model.Version, error) {
	var versions []*model.Version
	err := g.db.WithContext(ctx).Where("document_id = ?", docID).Order("sequence desc").Find(&versions).Error
	return versions, translate(err)
}

func (g *GormStore) SaveCorpusEntry(ctx context.Context, entry *model.CorpusEntry) error {
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"source", "title", "published_at", "category", "embedding", "updated_at"}),
	}).Create(entry).Error
	return translate(err)
}

func (g *GormStore) GetCorpusEntry(ctx context.Context, id string) (*model.CorpusEntry, error) {
	var entry model.CorpusEntry
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (g *GormStore) ListCorpusEntries(ctx context.Context, ids []string) ([]*model.CorpusEntry, error) {
	entries := make([]*model.CorpusEntry, 0, len(ids))
	if len(ids) == 0 {
		return entries, nil
	}
	err := g.db.WithContext(ctx).Where("id IN ?", ids).Find(&entries).Error
	return entries, translate(err)
}

func (g *GormStore) ScanCorpusEntries(ctx context.Context, batch int, fn func([]*model.CorpusEntry) error) error {
	var entries []*model.CorpusEntry
	err := g.db.WithContext(ctx).Order("id asc").FindInBatches(&entries, batch, func(tx *gorm.DB, n int) error {
		return fn(entries)
	}).Error
	return translate(err)
}

func (g *GormStore) UpdateCitationCount(ctx context.Context, id string, count int64) error {
	res := g.db.WithContext(ctx).Model(&model.CorpusEntry{}).Where("id = ?", id).Update("citation_count", count)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormStore) EraseCorpusEntry(ctx context.Context, id string) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entry_id = ?", id).Delete(&model.Reference{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.CorpusEntry{}).Error
	})
	return translate(err)
}

func (g *GormStore) UpsertReference(ctx context.Context, ref *model.Reference) (*model.Reference, error) {
	var saved model.Reference
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "document_id"}, {Name: "entry_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"relevance_score", "updated_at", "decayed_at"}),
		}).Create(ref).Error
		if err != nil {
			return err
		}
		return tx.Where("document_id = ? AND entry_id = ?", ref.DocumentID, ref.EntryID).First(&saved).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &saved, nil
}

func (g *GormStore) DeleteReference(ctx context.Context, docID uuid.UUID, entryID string) error {
	err := g.db.WithContext(ctx).Where("document_id = ? AND entry_id = ?", docID, entryID).Delete(&model.Reference{}).Error
	return translate(err)
}

func (g *GormStore) ListReferences(ctx context.Context, docID uuid.UUID) ([]*model.Reference, error) {
	var refs []*model.Reference
	err := g.db.WithContext(ctx).Where("document_id = ?", docID).Find(&refs).Error
	return refs, translate(err)
}

func (g *GormStore) ListReferencesByEntries(ctx context.Context, entryIDs []string) ([]*model.Reference, error) {
	refs := make([]*model.Reference, 0)
	if len(entryIDs) == 0 {
		return refs, nil
	}
	err := g.db.WithContext(ctx).Where("entry_id IN ?", entryIDs).Find(&refs).Error
	return refs, translate(err)
}

func (g *GormStore) ListReferencesByOrigin(ctx context.Context, origin model.ReferenceOrigin) ([]*model.Reference, error) {
	var refs []*model.Reference
	err := g.db.WithContext(ctx).Where("created_by = ?", origin).Find(&refs).Error
	return refs, translate(err)
}

func (g *GormStore) UpdateReferenceScore(ctx context.Context, prev *model.Reference, score float64, decayedAt time.Time) (bool, error) {
	res := g.db.WithContext(ctx).Model(&model.Reference{}).
		Where("document_id = ? AND entry_id = ?", prev.DocumentID, prev.EntryID).
		Where("relevance_score = ? AND decayed_at = ?", prev.RelevanceScore, prev.DecayedAt).
		Updates(map[string]interface{}{
			"relevance_score": score,
			"decayed_at":      decayedAt,
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (g *GormStore) Migrate() error {
	return translate(model.Migrate(g.db))
}

// translate maps gorm errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrHeadMoved), errors.Is(err, ErrNotFound), errors.Is(err, ErrUnavailable):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// drivers that do not translate errors
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
