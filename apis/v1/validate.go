package v1

import (
	"errors"
	"fmt"
)

// Requests implement Validate so the validator interceptor rejects
// malformed calls before they reach a handler.

func required(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func positive(field string, value int) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive", field)
	}
	return nil
}

func (r *CreateDocumentRequest) Validate() error {
	return required("owner_id", r.OwnerId)
}

func (r *GetDocumentRequest) Validate() error {
	return required("id", r.Id)
}

func nonNegative(field string, value int) error {
	if value < 0 {
		return fmt.Errorf("%s must not be negative", field)
	}
	return nil
}

func (r *ListDocumentsRequest) Validate() error {
	return errors.Join(
		required("owner_id", r.OwnerId),
		nonNegative("offset", r.Offset),
		nonNegative("limit", r.Limit),
	)
}

func (r *DocumentStatisticsRequest) Validate() error {
	return required("owner_id", r.OwnerId)
}

func (r *DuplicateDocumentRequest) Validate() error {
	return required("id", r.Id)
}

func (r *UpdateDocumentRequest) Validate() error {
	return errors.Join(required("id", r.Id), required("expected_version_id", r.ExpectedVersionId))
}

func (r *TransitionDocumentRequest) Validate() error {
	return errors.Join(
		required("id", r.Id),
		required("expected_version_id", r.ExpectedVersionId),
		required("state", r.State),
	)
}

func (r *DeleteDocumentRequest) Validate() error {
	return required("id", r.Id)
}

func (r *GetVersionRequest) Validate() error {
	return required("id", r.Id)
}

func (r *ListVersionsRequest) Validate() error {
	return required("document_id", r.DocumentId)
}

func (r *IngestEntryRequest) Validate() error {
	if r.Entry == nil {
		return errors.New("entry is required")
	}
	return required("entry.id", r.Entry.Id)
}

func (r *GetEntryRequest) Validate() error {
	return required("id", r.Id)
}

func (r *RefreshCitationsRequest) Validate() error {
	return required("id", r.Id)
}

func (r *RetractEntryRequest) Validate() error {
	return required("id", r.Id)
}

func (r *SearchRequest) Validate() error {
	if len(r.Embedding) == 0 {
		return errors.New("embedding is required")
	}
	return positive("k", r.K)
}

func (r *RecommendRequest) Validate() error {
	return errors.Join(required("document_id", r.DocumentId), positive("k", r.K))
}

func (r *LinkRequest) Validate() error {
	return errors.Join(required("document_id", r.DocumentId), required("entry_id", r.EntryId))
}

func (r *UnlinkRequest) Validate() error {
	return errors.Join(required("document_id", r.DocumentId), required("entry_id", r.EntryId))
}

func (r *TopReferencesRequest) Validate() error {
	return errors.Join(required("document_id", r.DocumentId), positive("k", r.K))
}

func (r *TrendsRequest) Validate() error {
	if r.WindowHours < 0 || r.Top < 0 {
		return errors.New("window_hours and top must not be negative")
	}
	return nil
}
