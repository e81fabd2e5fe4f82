package vector

import (
	"math"
	"math/rand"
)

// DefaultIterations bounds Lloyd iterations when the caller passes zero.
const DefaultIterations = 20

// KMeans partitions vectors into at most k clusters by cosine similarity.
// Seeding is k-means++ driven by seed, so the same input in the same order
// with the same seed always yields the same centroids and assignment.
// Vectors must be non-degenerate and share one dimension.
func KMeans(vectors [][]float32, k, iterations int, seed uint64) ([][]float32, []int) {
	n := len(vectors)
	if n == 0 || k <= 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	norms := make([]float64, n)
	for i, v := range vectors {
		norms[i], _ = norm(v)
	}

	rng := rand.New(rand.NewSource(int64(seed)))
	centroids := seedPlusPlus(vectors, norms, k, rng)
	centroidNorms := make([]float64, k)
	for c := range centroids {
		centroidNorms[c], _ = norm(centroids[c])
	}

	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}

	for iter := 0; iter < iterations; iter++ {
		changed := false
		for i, v := range vectors {
			best := nearestCentroid(centroids, centroidNorms, v, norms[i])
			if best != assign[i] {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		members := make([][][]float32, k)
		for i, c := range assign {
			members[c] = append(members[c], vectors[i])
		}
		for c := range centroids {
			// an empty cluster keeps its previous centroid
			if len(members[c]) == 0 {
				continue
			}
			mean := Mean(members[c])
			mn, err := norm(mean)
			if err != nil {
				continue
			}
			centroids[c] = mean
			centroidNorms[c] = mn
		}
	}

	return centroids, assign
}

func seedPlusPlus(vectors [][]float32, norms []float64, k int, rng *rand.Rand) [][]float32 {
	n := len(vectors)
	centroids := make([][]float32, 0, k)
	chosen := make([]bool, n)

	last := rng.Intn(n)
	centroids = append(centroids, clone(vectors[last]))
	chosen[last] = true

	// distance of each vector to its closest chosen centroid
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}

	for len(centroids) < k {
		var total float64
		for i, v := range vectors {
			if chosen[i] {
				dist[i] = 0
				continue
			}
			d := 1 - cosine(v, norms[i], vectors[last], norms[last])
			if d < 0 {
				d = 0
			}
			if d*d < dist[i] {
				dist[i] = d * d
			}
			total += dist[i]
		}

		next := -1
		if total > 0 {
			target := rng.Float64() * total
			for i := range vectors {
				if chosen[i] {
					continue
				}
				target -= dist[i]
				if target <= 0 {
					next = i
					break
				}
			}
		}
		if next < 0 {
			// every remaining vector coincides with a centroid
			for i := range vectors {
				if !chosen[i] {
					next = i
					break
				}
			}
		}

		centroids = append(centroids, clone(vectors[next]))
		chosen[next] = true
		last = next
	}

	return centroids
}

func nearestCentroid(centroids [][]float32, centroidNorms []float64, v []float32, vn float64) int {
	best, bestSim := 0, math.Inf(-1)
	for c, centroid := range centroids {
		sim := cosine(v, vn, centroid, centroidNorms[c])
		if sim > bestSim {
			best, bestSim = c, sim
		}
	}
	return best
}

func clone(v []float32) []float32 {
	return append([]float32(nil), v...)
}
