package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/grantcore/internal/vector"
)

// Measures recall@k of the IVF index against an exact scan over the same
// random corpus.
func main() {
	n := envInt("BENCH_ENTRIES", 20000)
	dim := envInt("BENCH_DIM", 128)
	queries := envInt("BENCH_QUERIES", 200)
	k := envInt("BENCH_K", 10)
	lists := envInt("BENCH_SEARCH_LISTS", vector.DefaultSearchLists)

	rng := rand.New(rand.NewSource(1))
	centers := make([][]float32, 64)
	for i := range centers {
		centers[i] = randomVector(rng, dim, 1)
	}
	entries := make([]vector.Entry, n)
	for i := range entries {
		v := randomVector(rng, dim, 0.3)
		center := centers[rng.Intn(len(centers))]
		for j := range v {
			v[j] += center[j]
		}
		entries[i] = vector.Entry{ID: fmt.Sprintf("e%06d", i), Embedding: v}
	}

	ivf, err := vector.New(vector.Options{Dimension: dim, SearchLists: lists, FlatThreshold: -1, Seed: 1})
	if err != nil {
		logrus.Fatal(err)
	}
	exact, err := vector.New(vector.Options{Dimension: dim, FlatThreshold: n + 1, Seed: 1})
	if err != nil {
		logrus.Fatal(err)
	}

	start := time.Now()
	if err := ivf.Rebuild(entries); err != nil {
		logrus.Fatal(err)
	}
	logrus.Infof("built %d lists over %d entries in %v", ivf.Lists(), ivf.Len(), time.Since(start))
	if err := exact.Rebuild(entries); err != nil {
		logrus.Fatal(err)
	}

	ctx := context.Background()
	var found, total int
	var ivfTime, exactTime time.Duration
	for q := 0; q < queries; q++ {
		query := entries[rng.Intn(n)].Embedding

		start = time.Now()
		approx, err := ivf.Search(ctx, query, k, nil)
		if err != nil {
			logrus.Fatal(err)
		}
		ivfTime += time.Since(start)

		start = time.Now()
		truth, err := exact.Search(ctx, query, k, nil)
		if err != nil {
			logrus.Fatal(err)
		}
		exactTime += time.Since(start)

		want := make(map[string]bool, len(truth))
		for _, hit := range truth {
			want[hit.ID] = true
		}
		for _, hit := range approx {
			if want[hit.ID] {
				found++
			}
		}
		total += len(truth)
	}

	logrus.Infof("recall@%d searching %d lists: %.3f", k, lists, float64(found)/float64(total))
	logrus.Infof("ivf %v/query, exact %v/query", ivfTime/time.Duration(queries), exactTime/time.Duration(queries))
}

func randomVector(rng *rand.Rand, dim int, scale float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = (rng.Float32()*2 - 1) * scale
	}
	return v
}

func envInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
