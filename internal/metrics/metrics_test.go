package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSetIndexSize(t *testing.T) {
	SetIndexSize(120, 11)
	assert.Equal(t, float64(120), testutil.ToFloat64(IndexEntries))
	assert.Equal(t, float64(11), testutil.ToFloat64(IndexLists))
}

func TestObserveSearch(t *testing.T) {
	ObserveSearch(time.Now(), true)
	ObserveSearch(time.Now(), false)
	assert.Equal(t, 2, testutil.CollectAndCount(SearchLatency))
}

func TestDocumentWrites(t *testing.T) {
	before := testutil.ToFloat64(DocumentWrites.WithLabelValues("update", "conflict"))
	DocumentWrites.WithLabelValues("update", "conflict").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(DocumentWrites.WithLabelValues("update", "conflict")))
}
