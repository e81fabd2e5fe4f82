package trend

import (
	"math"
	"runtime"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/emrgen/grantcore/internal/vector"
)

const (
	DefaultWindow         = 7 * 24 * time.Hour
	DefaultMatchThreshold = 0.8
)

// Threshold returns a match threshold for Aggregator.MatchThreshold.
func Threshold(sim float64) *float64 {
	return &sim
}

// DefaultK picks ceil(sqrt(n/2)) clusters for a bucket of n entries.
func DefaultK(n int) int {
	return int(math.Ceil(math.Sqrt(float64(n) / 2)))
}

// Aggregator groups corpus entries into fixed time buckets, clusters each
// bucket and ranks the clusters of the latest bucket by how much they grew
// since the bucket before it. It only reads the entries it is given.
type Aggregator struct {
	// Window is the bucket width; buckets are aligned to the Unix epoch.
	Window time.Duration
	// Clusterer defaults to KMeans.
	Clusterer Clusterer
	// K picks the cluster count for a bucket of n entries.
	K    func(n int) int
	Seed uint64
	// MatchThreshold is the least centroid similarity that makes a cluster
	// the continuation of one in the previous bucket. Nil means
	// DefaultMatchThreshold; zero or a negative value is used as given.
	MatchThreshold *float64
	// MinBucketSize skips buckets with fewer entries.
	MinBucketSize int
}

// Report is the result of one aggregation.
type Report struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Window      time.Duration `json:"window"`
	Entries     int           `json:"entries"`
	Buckets     []Bucket      `json:"buckets"`
	Rising      []Trend       `json:"rising"`
}

// Bucket is one time window and its clusters.
type Bucket struct {
	Start    time.Time `json:"start"`
	Size     int       `json:"size"`
	Clusters []Cluster `json:"clusters"`
}

// Cluster is a group of entries within a bucket.
type Cluster struct {
	Index      int       `json:"index"`
	Size       int       `json:"size"`
	Members    []string  `json:"members"`
	Categories []string  `json:"categories"`
	Centroid   []float32 `json:"-"`
	// Previous is the index of the matching cluster in the previous bucket,
	// or -1.
	Previous     int     `json:"previous"`
	PreviousSize int     `json:"previous_size"`
	Similarity   float64 `json:"similarity"`
}

// Trend is a ranked cluster of the latest bucket.
type Trend struct {
	Bucket       time.Time `json:"bucket"`
	Cluster      int       `json:"cluster"`
	Size         int       `json:"size"`
	PreviousSize int       `json:"previous_size"`
	Growth       float64   `json:"growth"`
	Categories   []string  `json:"categories"`
	Members      []string  `json:"members"`
}

func (a Aggregator) withDefaults() Aggregator {
	if a.Window < time.Second {
		a.Window = DefaultWindow
	}
	if a.Clusterer == nil {
		a.Clusterer = KMeans{}
	}
	if a.K == nil {
		a.K = DefaultK
	}
	if a.MatchThreshold == nil {
		a.MatchThreshold = Threshold(DefaultMatchThreshold)
	}
	if a.MinBucketSize <= 0 {
		a.MinBucketSize = 1
	}
	return a
}

// Run aggregates entries. Entries without a publication date are ignored.
func (a Aggregator) Run(entries []vector.Entry) *Report {
	a = a.withDefaults()

	sorted := make([]vector.Entry, 0, len(entries))
	for _, e := range entries {
		if !e.PublishedAt.IsZero() {
			sorted = append(sorted, e)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})

	grouped := make(map[int64][]vector.Entry)
	for _, e := range sorted {
		start := a.bucketStart(e.PublishedAt)
		grouped[start] = append(grouped[start], e)
	}
	starts := make([]int64, 0, len(grouped))
	for start, members := range grouped {
		if len(members) >= a.MinBucketSize {
			starts = append(starts, start)
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	buckets := make([]Bucket, len(starts))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, start := range starts {
		g.Go(func() error {
			buckets[i] = a.clusterBucket(time.Unix(start, 0).UTC(), grouped[start])
			return nil
		})
	}
	_ = g.Wait()

	for i := 1; i < len(buckets); i++ {
		if buckets[i].Start.Sub(buckets[i-1].Start) != a.Window {
			continue
		}
		a.link(&buckets[i], &buckets[i-1])
	}

	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Window:      a.Window,
		Entries:     len(sorted),
		Buckets:     buckets,
		Rising:      []Trend{},
	}
	if len(buckets) > 0 {
		report.Rising = rank(buckets[len(buckets)-1])
	}
	return report
}

func (a Aggregator) bucketStart(t time.Time) int64 {
	width := int64(a.Window / time.Second)
	unix := t.Unix()
	start := unix / width * width
	if unix < 0 && unix%width != 0 {
		start -= width
	}
	return start
}

func (a Aggregator) clusterBucket(start time.Time, entries []vector.Entry) Bucket {
	vectors := make([][]float32, len(entries))
	for i, e := range entries {
		vectors[i] = e.Embedding
	}

	k := a.K(len(entries))
	if k < 1 {
		k = 1
	}
	if k > len(entries) {
		k = len(entries)
	}
	clustering := a.Clusterer.Cluster(vectors, k, a.Seed)

	members := make([][]int, len(clustering.Centroids))
	for i, c := range clustering.Assign {
		members[c] = append(members[c], i)
	}

	clusters := make([]Cluster, 0, len(members))
	for c, idx := range members {
		if len(idx) == 0 {
			continue
		}
		ids := make([]string, len(idx))
		categories := mapset.NewThreadUnsafeSet[string]()
		for j, i := range idx {
			ids[j] = entries[i].ID
			if entries[i].Category != "" {
				categories.Add(entries[i].Category)
			}
		}
		sort.Strings(ids)
		labels := categories.ToSlice()
		sort.Strings(labels)

		clusters = append(clusters, Cluster{
			Index:      len(clusters),
			Size:       len(idx),
			Members:    ids,
			Categories: labels,
			Centroid:   clustering.Centroids[c],
			Previous:   -1,
		})
	}

	return Bucket{Start: start, Size: len(entries), Clusters: clusters}
}

// link matches each cluster of cur with the most similar cluster of prev.
func (a Aggregator) link(cur, prev *Bucket) {
	for i := range cur.Clusters {
		c := &cur.Clusters[i]
		best, bestSim := -1, math.Inf(-1)
		for j, p := range prev.Clusters {
			sim, err := vector.Cosine(c.Centroid, p.Centroid)
			if err != nil {
				continue
			}
			if sim > bestSim {
				best, bestSim = j, sim
			}
		}
		if best >= 0 && bestSim >= *a.MatchThreshold {
			c.Previous = best
			c.PreviousSize = prev.Clusters[best].Size
			c.Similarity = bestSim
		}
	}
}

// rank orders clusters by growth, then size, then index.
func rank(bucket Bucket) []Trend {
	trends := make([]Trend, len(bucket.Clusters))
	for i, c := range bucket.Clusters {
		base := c.PreviousSize
		if base < 1 {
			base = 1
		}
		trends[i] = Trend{
			Bucket:       bucket.Start,
			Cluster:      c.Index,
			Size:         c.Size,
			PreviousSize: c.PreviousSize,
			Growth:       float64(c.Size-c.PreviousSize) / float64(base),
			Categories:   c.Categories,
			Members:      c.Members,
		}
	}

	sort.SliceStable(trends, func(i, j int) bool {
		a, b := trends[i], trends[j]
		if a.Growth != b.Growth {
			return a.Growth > b.Growth
		}
		if a.Size != b.Size {
			return a.Size > b.Size
		}
		return a.Cluster < b.Cluster
	})
	return trends
}
