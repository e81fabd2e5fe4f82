package service

import (
	"context"
	"strings"

	"github.com/emrgen/grantcore/internal/model"
	"github.com/emrgen/grantcore/internal/store"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListParams selects a page of the proposals of one owner.
type ListParams struct {
	OwnerID string
	// State filters by lifecycle state when set.
	State model.LifecycleState
	// Query matches a case-insensitive substring of the title or the
	// research field.
	Query string
	// OrderBy is created_at (default), updated_at or title.
	OrderBy string
	Desc    bool
	Offset  int
	// Limit defaults to DefaultPageSize and is capped at MaxPageSize.
	Limit int
}

// Statistics counts the proposals of one owner.
type Statistics struct {
	// Total leaves out soft deleted proposals.
	Total int64
	// ByState has an entry for every lifecycle state.
	ByState map[model.LifecycleState]int64
}

// List returns a page of the documents of an owner and the number of
// documents matching the filters.
func (d *DocumentService) List(ctx context.Context, params ListParams) ([]*model.Document, int64, error) {
	if strings.TrimSpace(params.OwnerID) == "" {
		return nil, 0, invalidArgument("owner id is required")
	}
	if params.State != "" && !params.State.Valid() {
		return nil, 0, invalidArgument("unknown lifecycle state %q", params.State)
	}
	switch params.OrderBy {
	case "", store.OrderByCreatedAt, store.OrderByUpdatedAt, store.OrderByTitle:
	default:
		return nil, 0, invalidArgument("documents can not be ordered by %q", params.OrderBy)
	}
	if params.Offset < 0 || params.Limit < 0 {
		return nil, 0, invalidArgument("offset and limit must not be negative")
	}

	limit := params.Limit
	if limit == 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)

	return d.store.ListDocuments(ctx, store.DocumentQuery{
		OwnerID: params.OwnerID,
		State:   params.State,
		Search:  strings.TrimSpace(params.Query),
		OrderBy: params.OrderBy,
		Desc:    params.Desc,
		Offset:  params.Offset,
		Limit:   limit,
	})
}

// Statistics counts the documents of an owner by lifecycle state.
func (d *DocumentService) Statistics(ctx context.Context, ownerID string) (*Statistics, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, invalidArgument("owner id is required")
	}

	counts, err := d.store.CountDocumentsByState(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{ByState: make(map[model.LifecycleState]int64)}
	for _, state := range model.States() {
		stats.ByState[state] = counts[state]
		if state != model.StateDeleted {
			stats.Total += counts[state]
		}
	}
	return stats, nil
}
