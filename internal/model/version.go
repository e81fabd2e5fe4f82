package model

import (
	"time"

	"github.com/google/uuid"
)

// Version is an immutable snapshot of a document's sections. Versions only
// point at their parent, so the chain can be walked from the head back to
// sequence 1 and never forms a cycle.
type Version struct {
	ID              uuid.UUID  `gorm:"primaryKey;type:uuid"`
	DocumentID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_versions_document_sequence,priority:1"`
	Sequence        int64      `gorm:"not null;uniqueIndex:idx_versions_document_sequence,priority:2"`
	ParentVersionID *uuid.UUID `gorm:"type:uuid"`
	Content         []byte     `gorm:"not null"` // compressed canonical blob
	Compression     string     `gorm:"not null;default:none"`
	Fingerprint     string     `gorm:"not null;size:64"`
	CreatedBy       string
	CreatedAt       time.Time
}

func (Version) TableName() string {
	return "versions"
}

// Clone returns a deep copy; versions are shared through caches.
func (v *Version) Clone() *Version {
	clone := *v
	if v.ParentVersionID != nil {
		parent := *v.ParentVersionID
		clone.ParentVersionID = &parent
	}
	clone.Content = append([]byte(nil), v.Content...)
	return &clone
}
