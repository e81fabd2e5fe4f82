package trend

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/grantcore/internal/cache"
	"github.com/emrgen/grantcore/internal/tester"
	"github.com/emrgen/grantcore/internal/vector"
)

const dim = 8

// week is an epoch aligned bucket start.
var week = time.Unix(2900*7*24*3600, 0).UTC()

func near(rng *rand.Rand, axis int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = (rng.Float32()*2 - 1) * 0.05
	}
	v[axis] += 1
	return v
}

func topic(rng *rand.Rand, prefix string, axis, n int, at time.Time, category string) []vector.Entry {
	entries := make([]vector.Entry, n)
	for i := range entries {
		entries[i] = vector.Entry{
			ID:        fmt.Sprintf("%s-%s-%02d", prefix, at.Format("0102"), i),
			Embedding: near(rng, axis),
			Meta: vector.Meta{
				Category:    category,
				PublishedAt: at.Add(time.Duration(i) * time.Hour),
			},
		}
	}
	return entries
}

func twoTopics(k int) Aggregator {
	return Aggregator{K: func(int) int { return k }, Seed: 7}
}

func TestAggregator_RanksGrowth(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	next := week.Add(DefaultWindow)

	var entries []vector.Entry
	entries = append(entries, topic(rng, "a", 0, 4, week, "cs.LG")...)
	entries = append(entries, topic(rng, "b", 1, 4, week, "q-bio")...)
	entries = append(entries, topic(rng, "a", 0, 12, next, "cs.LG")...)
	entries = append(entries, topic(rng, "b", 1, 4, next, "q-bio")...)
	// undated entries are ignored
	entries = append(entries, vector.Entry{ID: "undated", Embedding: near(rng, 2)})

	report := twoTopics(2).Run(entries)

	assert.Equal(t, 24, report.Entries)
	require.Len(t, report.Buckets, 2)
	assert.Equal(t, week, report.Buckets[0].Start)
	assert.Equal(t, next, report.Buckets[1].Start)
	assert.Equal(t, 16, report.Buckets[1].Size)

	require.Len(t, report.Rising, 2)
	first, second := report.Rising[0], report.Rising[1]
	assert.Equal(t, 12, first.Size)
	assert.Equal(t, 4, first.PreviousSize)
	assert.InDelta(t, 2.0, first.Growth, 1e-9)
	assert.Equal(t, []string{"cs.LG"}, first.Categories)
	assert.Equal(t, next, first.Bucket)

	assert.Equal(t, 4, second.Size)
	assert.Equal(t, 4, second.PreviousSize)
	assert.InDelta(t, 0.0, second.Growth, 1e-9)
	assert.Equal(t, []string{"q-bio"}, second.Categories)

	for _, c := range report.Buckets[1].Clusters {
		assert.GreaterOrEqual(t, c.Previous, 0)
		assert.GreaterOrEqual(t, c.Similarity, DefaultMatchThreshold)
	}
}

func TestAggregator_GapBreaksLinks(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	later := week.Add(2 * DefaultWindow)

	var entries []vector.Entry
	entries = append(entries, topic(rng, "a", 0, 6, week, "cs.LG")...)
	entries = append(entries, topic(rng, "a", 0, 3, later, "cs.LG")...)

	report := twoTopics(1).Run(entries)

	require.Len(t, report.Buckets, 2)
	require.Len(t, report.Rising, 1)
	assert.Equal(t, -1, report.Buckets[1].Clusters[0].Previous)
	assert.Equal(t, 0, report.Rising[0].PreviousSize)
	assert.InDelta(t, 3.0, report.Rising[0].Growth, 1e-9)
}

func TestAggregator_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	entries := make([]vector.Entry, 0, 200)
	for i := 0; i < 200; i++ {
		entries = append(entries, vector.Entry{
			ID:        fmt.Sprintf("e%03d", i),
			Embedding: tester.RandomVector(rng, dim),
			Meta:      vector.Meta{PublishedAt: week.Add(time.Duration(i) * 3 * time.Hour)},
		})
	}

	shuffled := append([]vector.Entry(nil), entries...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	agg := Aggregator{Seed: 11}
	a, b := agg.Run(entries), agg.Run(shuffled)
	assert.Equal(t, a.Buckets, b.Buckets)
	assert.Equal(t, a.Rising, b.Rising)
}

func TestAggregator_Edges(t *testing.T) {
	report := Aggregator{}.Run(nil)
	assert.Empty(t, report.Buckets)
	assert.Empty(t, report.Rising)
	assert.Equal(t, DefaultWindow, report.Window)

	rng := rand.New(rand.NewSource(4))
	entries := topic(rng, "a", 0, 2, week, "cs.LG")
	entries = append(entries, topic(rng, "b", 1, 5, week.Add(DefaultWindow), "cs.LG")...)

	report = Aggregator{MinBucketSize: 3}.Run(entries)
	require.Len(t, report.Buckets, 1)
	assert.Equal(t, week.Add(DefaultWindow), report.Buckets[0].Start)

	// a single entry still forms a cluster
	report = Aggregator{}.Run(entries[:1])
	require.Len(t, report.Rising, 1)
	assert.Equal(t, 1, report.Rising[0].Size)
}

func TestAggregator_MatchThreshold(t *testing.T) {
	next := week.Add(DefaultWindow)
	one := func(id string, at time.Time, v ...float32) vector.Entry {
		return vector.Entry{ID: id, Embedding: v, Meta: vector.Meta{PublishedAt: at}}
	}
	// cosine of the two centroids is about 0.2
	entries := []vector.Entry{
		one("old", week, 1, 0),
		one("new", next, 0.2, 0.98),
	}

	linked := func(agg Aggregator) int {
		report := agg.Run(entries)
		require.Len(t, report.Buckets, 2)
		require.Len(t, report.Buckets[1].Clusters, 1)
		return report.Buckets[1].Clusters[0].Previous
	}

	assert.Equal(t, -1, linked(Aggregator{}))
	assert.Equal(t, 0, linked(Aggregator{MatchThreshold: Threshold(0)}))
	assert.Equal(t, -1, linked(Aggregator{MatchThreshold: Threshold(0.5)}))

	// a negative threshold links even opposed centroids
	entries[1] = one("new", next, -1, 0.1)
	assert.Equal(t, -1, linked(Aggregator{MatchThreshold: Threshold(0)}))
	assert.Equal(t, 0, linked(Aggregator{MatchThreshold: Threshold(-1)}))
}

func TestAggregator_BucketStart(t *testing.T) {
	agg := Aggregator{Window: 24 * time.Hour}.withDefaults()
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, day.Unix(), agg.bucketStart(day))
	assert.Equal(t, day.Unix(), agg.bucketStart(day.Add(23*time.Hour)))
	assert.Equal(t, day.Unix()+86400, agg.bucketStart(day.Add(24*time.Hour)))
	assert.Equal(t, int64(-86400), agg.bucketStart(time.Unix(-1, 0)))
}

func TestLeader(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	var vectors [][]float32
	for i := 0; i < 10; i++ {
		vectors = append(vectors, near(rng, 0), near(rng, 3))
	}

	clustering := Leader{Threshold: 0.9}.Cluster(vectors, 4, 1)
	require.Len(t, clustering.Centroids, 2)
	for i := 0; i < len(vectors); i += 2 {
		assert.Equal(t, clustering.Assign[0], clustering.Assign[i])
		assert.Equal(t, clustering.Assign[1], clustering.Assign[i+1])
	}
	assert.NotEqual(t, clustering.Assign[0], clustering.Assign[1])

	capped := Leader{Threshold: 0.9}.Cluster(vectors, 1, 1)
	assert.Len(t, capped.Centroids, 1)

	report := Aggregator{Clusterer: Leader{Threshold: 0.9}, K: func(int) int { return 5 }}.
		Run(append(topic(rng, "a", 0, 5, week, ""), topic(rng, "b", 3, 5, week, "")...))
	require.Len(t, report.Buckets, 1)
	assert.Len(t, report.Buckets[0].Clusters, 2)
}

type recorder struct {
	key, value []byte
	err        error
}

func (r *recorder) PublishRaw(_ context.Context, key, value []byte) error {
	r.key, r.value = key, value
	return r.err
}

func TestSinks(t *testing.T) {
	tester.Quiet(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(6))
	report := twoTopics(1).Run(topic(rng, "a", 0, 3, week, "cs.LG"))

	client, server := tester.Redis(t)
	redisSink := NewRedisSink(cache.NewKV(client), "", time.Hour)

	latest, err := redisSink.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	kafka := &recorder{}
	tee := Tee{&LogSink{Top: 1}, redisSink, NewKafkaSink(kafka)}
	require.NoError(t, tee.Emit(ctx, report))

	latest, err = redisSink.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, report.Rising[0].Members, latest.Rising[0].Members)
	assert.True(t, server.Exists(DefaultReportKey))
	assert.Equal(t, week.Format(time.DateOnly), string(kafka.key))
	assert.Contains(t, string(kafka.value), `"rising"`)

	server.FastForward(2 * time.Hour)
	latest, err = redisSink.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	kafka.err = errors.New("broker down")
	err = tee.Emit(ctx, report)
	assert.ErrorIs(t, err, kafka.err)
}
