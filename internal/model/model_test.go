package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to LifecycleState
		want     bool
	}{
		{StateDraft, StateGenerating, true},
		{StateGenerating, StateReviewing, true},
		{StateReviewing, StateCompleted, true},
		{StateCompleted, StateSubmitted, true},
		{StateReviewing, StateDraft, true},
		{StateCompleted, StateReviewing, true},
		{StateDraft, StateDeleted, true},
		{StateCompleted, StateDeleted, true},
		{StateDraft, StateSubmitted, false},
		{StateDraft, StateDraft, false},
		{StateGenerating, StateDraft, false},
		{StateSubmitted, StateDeleted, false},
		{StateSubmitted, StateDraft, false},
		{StateDeleted, StateDraft, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestLifecycleState_Terminal(t *testing.T) {
	assert.True(t, StateSubmitted.Terminal())
	assert.True(t, StateDeleted.Terminal())
	assert.False(t, StateDraft.Terminal())
	assert.False(t, LifecycleState("archived").Valid())
}

func TestDocument_Keywords(t *testing.T) {
	doc := &Document{}
	assert.Equal(t, []string{}, doc.KeywordList())

	doc.SetKeywords([]string{"deep learning", "image recognition"})
	assert.Equal(t, []string{"deep learning", "image recognition"}, doc.KeywordList())

	doc.Keywords = "{broken"
	assert.Equal(t, []string{}, doc.KeywordList())
}
