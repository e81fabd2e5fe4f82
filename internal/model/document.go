package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LifecycleState is the editing stage of a proposal.
type LifecycleState string

const (
	StateDraft      LifecycleState = "draft"
	StateGenerating LifecycleState = "generating"
	StateReviewing  LifecycleState = "reviewing"
	StateCompleted  LifecycleState = "completed"
	StateSubmitted  LifecycleState = "submitted"
	StateDeleted    LifecycleState = "deleted"
)

// transitions lists the legal edges of the lifecycle. Submitted and Deleted
// have no outgoing edges.
var transitions = map[LifecycleState][]LifecycleState{
	StateDraft:      {StateGenerating, StateDeleted},
	StateGenerating: {StateReviewing, StateDeleted},
	StateReviewing:  {StateCompleted, StateDraft, StateDeleted},
	StateCompleted:  {StateSubmitted, StateReviewing, StateDeleted},
}

// States lists every lifecycle state in lifecycle order.
func States() []LifecycleState {
	return []LifecycleState{StateDraft, StateGenerating, StateReviewing, StateCompleted, StateSubmitted, StateDeleted}
}

func (s LifecycleState) Valid() bool {
	switch s {
	case StateDraft, StateGenerating, StateReviewing, StateCompleted, StateSubmitted, StateDeleted:
		return true
	}
	return false
}

// Terminal reports whether the state accepts no further transitions.
func (s LifecycleState) Terminal() bool {
	return s == StateSubmitted || s == StateDeleted
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to LifecycleState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Document is a proposal. It never holds section content, only the pointer
// to its current Version.
type Document struct {
	ID            uuid.UUID      `gorm:"primaryKey;type:uuid"`
	HeadVersionID uuid.UUID      `gorm:"type:uuid;not null"`
	HeadSequence  int64          `gorm:"not null"`
	OwnerID       string         `gorm:"not null;index:idx_documents_owner_id"`
	State         LifecycleState `gorm:"not null;default:draft"`
	Title         string
	ResearchField string
	FundingAgency string
	Keywords      string // json encoded list
	SubmittedAt   *time.Time
	SoftDeletedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Document) TableName() string {
	return "documents"
}

// KeywordList decodes Keywords. Malformed values decode to an empty list.
func (d *Document) KeywordList() []string {
	keywords := make([]string, 0)
	if d.Keywords == "" {
		return keywords
	}
	_ = json.Unmarshal([]byte(d.Keywords), &keywords)
	return keywords
}

// SetKeywords encodes keywords into the Keywords column.
func (d *Document) SetKeywords(keywords []string) {
	if len(keywords) == 0 {
		d.Keywords = ""
		return
	}
	data, _ := json.Marshal(keywords)
	d.Keywords = string(data)
}

// Clone returns a copy safe to hand to callers.
func (d *Document) Clone() *Document {
	clone := *d
	if d.SubmittedAt != nil {
		at := *d.SubmittedAt
		clone.SubmittedAt = &at
	}
	if d.SoftDeletedAt != nil {
		at := *d.SoftDeletedAt
		clone.SoftDeletedAt = &at
	}
	return &clone
}

func (d *Document) MarshalBinary() ([]byte, error) {
	return json.Marshal(d)
}

func (d *Document) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, d)
}
