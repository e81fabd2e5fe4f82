package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/grantcore/internal/model"
)

func TestCorpusMessage_RoundTrip(t *testing.T) {
	entry := &model.CorpusEntry{
		ID:            "arxiv:2501.00001",
		Source:        model.SourceArxiv,
		Title:         "Sparse retrieval",
		PublishedAt:   time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		Category:      "cs.IR",
		Embedding:     pgvector.NewVector([]float32{0.25, -1, 3}),
		CitationCount: 4,
	}

	data, err := EncodeCorpusEntry(entry)
	require.NoError(t, err)

	decoded, err := DecodeCorpusEntry(data)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, decoded.ID)
	assert.Equal(t, entry.Source, decoded.Source)
	assert.True(t, entry.PublishedAt.Equal(decoded.PublishedAt))
	assert.Equal(t, entry.Embedding.Slice(), decoded.Embedding.Slice())
	assert.Equal(t, int64(4), decoded.CitationCount)
}

func TestDecodeCorpusEntry_Malformed(t *testing.T) {
	_, err := DecodeCorpusEntry([]byte("{"))
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = DecodeCorpusEntry([]byte(`{"entry_id":"x"}`))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestMemoryPublisher(t *testing.T) {
	pub := NewMemoryPublisher()
	doc := &model.Document{ID: uuid.New(), HeadVersionID: uuid.New(), HeadSequence: 3, State: model.StateReviewing}

	require.NoError(t, pub.Publish(context.Background(), NewDocumentEvent(EventStateChanged, doc)))
	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, doc.ID, events[0].DocumentID)
	assert.Equal(t, []byte(doc.ID.String()), events[0].Key())

	data, err := events[0].Marshal()
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "state_changed", raw["kind"])
	assert.Equal(t, "reviewing", raw["state"])
	assert.Equal(t, float64(3), raw["sequence"])
}
