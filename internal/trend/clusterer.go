package trend

import (
	"math"
	"math/rand"

	"github.com/emrgen/grantcore/internal/vector"
)

// Clustering assigns every input vector to a cluster.
type Clustering struct {
	// Assign holds the cluster index of each input vector.
	Assign []int
	// Centroids holds the center of each cluster.
	Centroids [][]float32
}

// Clusterer partitions the vectors of one bucket. The same vectors in the
// same order with the same seed must produce the same clustering.
type Clusterer interface {
	Cluster(vectors [][]float32, k int, seed uint64) Clustering
}

var _ Clusterer = KMeans{}

// KMeans is cosine k-means with k-means++ seeding, the same routine the
// vector index rebuild uses.
type KMeans struct {
	Iterations int
}

func (m KMeans) Cluster(vectors [][]float32, k int, seed uint64) Clustering {
	centroids, assign := vector.KMeans(vectors, k, m.Iterations, seed)
	return Clustering{Assign: assign, Centroids: centroids}
}

var _ Clusterer = Leader{}

// Leader is single pass leader clustering. Vectors are visited in an order
// shuffled by the seed; each joins the most similar leader when that
// similarity reaches Threshold and becomes a new leader otherwise. Once k
// leaders exist every remaining vector joins its most similar leader.
type Leader struct {
	Threshold float64
}

func (l Leader) Cluster(vectors [][]float32, k int, seed uint64) Clustering {
	if len(vectors) == 0 || k <= 0 {
		return Clustering{}
	}

	order := rand.New(rand.NewSource(int64(seed))).Perm(len(vectors))
	assign := make([]int, len(vectors))
	var leaders [][]float32

	for _, i := range order {
		best, bestSim := -1, math.Inf(-1)
		for c, leader := range leaders {
			sim, err := vector.Cosine(vectors[i], leader)
			if err != nil {
				continue
			}
			if sim > bestSim {
				best, bestSim = c, sim
			}
		}

		switch {
		case len(leaders) < k && (best < 0 || bestSim < l.Threshold):
			leaders = append(leaders, vectors[i])
			assign[i] = len(leaders) - 1
		case best < 0:
			assign[i] = 0
		default:
			assign[i] = best
		}
	}

	members := make([][][]float32, len(leaders))
	for i, c := range assign {
		members[c] = append(members[c], vectors[i])
	}
	centroids := make([][]float32, len(leaders))
	for c := range leaders {
		centroids[c] = vector.Mean(members[c])
	}

	return Clustering{Assign: assign, Centroids: centroids}
}
