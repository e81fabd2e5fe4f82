package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/grantcore/internal/model"
	"github.com/emrgen/grantcore/internal/tester"
)

func TestRedisDocumentCache(t *testing.T) {
	client, server := tester.Redis(t)
	c := NewRedisDocumentCache(client, time.Minute)
	ctx := context.Background()

	doc := &model.Document{
		ID:            uuid.New(),
		HeadVersionID: uuid.New(),
		HeadSequence:  2,
		OwnerID:       "owner",
		State:         model.StateDraft,
		UpdatedAt:     time.Now().UTC(),
	}
	doc.SetKeywords([]string{"genomics"})

	got, err := c.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.SetDocument(ctx, doc))
	got, err = c.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, doc.HeadVersionID, got.HeadVersionID)
	assert.Equal(t, []string{"genomics"}, got.KeywordList())

	// the snapshot is the only key a document owns
	assert.Equal(t, []string{"document:" + doc.ID.String()}, server.Keys())

	// an older snapshot never replaces a newer one
	stale := doc.Clone()
	stale.HeadSequence = 1
	stale.HeadVersionID = uuid.New()
	require.NoError(t, c.SetDocument(ctx, stale))
	got, err = c.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.HeadVersionID, got.HeadVersionID)

	// a state change at the same sequence does
	sealed := doc.Clone()
	sealed.State = model.StateSubmitted
	sealed.UpdatedAt = doc.UpdatedAt.Add(time.Second)
	require.NoError(t, c.SetDocument(ctx, sealed))
	got, err = c.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateSubmitted, got.State)

	server.FastForward(2 * time.Minute)
	got, err = c.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.SetDocument(ctx, doc))
	require.NoError(t, c.DeleteDocument(ctx, doc.ID))
	got, err = c.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, server.Keys())
}

func TestKV(t *testing.T) {
	client, _ := tester.Redis(t)
	kv := NewKV(client)
	ctx := context.Background()

	var out map[string]int
	ok, err := kv.Get(ctx, "missing", &out)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "k", map[string]int{"a": 1}, 0))
	ok, err = kv.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]int{"a": 1}, out)
}
