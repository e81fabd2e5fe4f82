package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/emrgen/grantcore/internal/model"
)

type EventKind string

const (
	EventVersionCommitted EventKind = "version_committed"
	EventStateChanged     EventKind = "state_changed"
	EventDocumentErased   EventKind = "document_erased"
)

// Event announces a change to a document. Consumers key on DocumentID, so
// the events of one document stay in order on a partitioned topic.
type Event struct {
	Kind       EventKind            `json:"kind"`
	DocumentID uuid.UUID            `json:"document_id"`
	VersionID  uuid.UUID            `json:"version_id"`
	Sequence   int64                `json:"sequence"`
	State      model.LifecycleState `json:"state"`
	At         time.Time            `json:"at"`
}

// NewDocumentEvent builds an event from the document head after a write.
func NewDocumentEvent(kind EventKind, doc *model.Document) Event {
	return Event{
		Kind:       kind,
		DocumentID: doc.ID,
		VersionID:  doc.HeadVersionID,
		Sequence:   doc.HeadSequence,
		State:      doc.State,
		At:         doc.UpdatedAt,
	}
}

func (e Event) Key() []byte {
	return []byte(e.DocumentID.String())
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
