package model

import (
	"time"

	"github.com/google/uuid"
)

// ReferenceOrigin records who created a relevance link.
type ReferenceOrigin string

const (
	ReferenceByUser   ReferenceOrigin = "user"
	ReferenceBySystem ReferenceOrigin = "system"
)

// Reference links a proposal to a corpus entry with a relevance score in
// [0, 1]. There is at most one reference per (document, entry) pair.
type Reference struct {
	DocumentID     uuid.UUID       `gorm:"primaryKey;type:uuid"`
	EntryID        string          `gorm:"primaryKey;index:idx_document_references_entry_id"`
	RelevanceScore float64         `gorm:"not null"`
	CreatedBy      ReferenceOrigin `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DecayedAt      time.Time
}

func (Reference) TableName() string {
	return "document_references"
}
