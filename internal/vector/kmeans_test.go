package vector

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blobs(rng *rand.Rand, centers [][]float32, per int, spread float32) [][]float32 {
	out := make([][]float32, 0, len(centers)*per)
	for _, c := range centers {
		for i := 0; i < per; i++ {
			v := make([]float32, len(c))
			for d := range c {
				v[d] = c[d] + (rng.Float32()*2-1)*spread
			}
			out = append(out, v)
		}
	}
	return out
}

func TestKMeans_SeparatesDirections(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	centers := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	vectors := blobs(rng, centers, 30, 0.05)

	centroids, assign := KMeans(vectors, 3, 0, 9)
	require.Len(t, centroids, 3)
	require.Len(t, assign, len(vectors))

	for blob := 0; blob < 3; blob++ {
		first := assign[blob*30]
		for i := blob * 30; i < (blob+1)*30; i++ {
			assert.Equal(t, first, assign[i], "vector %d left its blob", i)
		}
	}
	assert.NotEqual(t, assign[0], assign[30])
	assert.NotEqual(t, assign[30], assign[60])
	assert.NotEqual(t, assign[0], assign[60])
}

func TestKMeans_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	vectors := make([][]float32, 200)
	for i := range vectors {
		vectors[i] = randomVector(rng, 12)
	}

	c1, a1 := KMeans(vectors, 8, 10, 77)
	c2, a2 := KMeans(vectors, 8, 10, 77)
	assert.Equal(t, c1, c2)
	assert.Equal(t, a1, a2)
}

func TestKMeans_Edges(t *testing.T) {
	c, a := KMeans(nil, 3, 0, 1)
	assert.Nil(t, c)
	assert.Nil(t, a)

	vectors := [][]float32{{1, 0}, {1, 0}}
	c, a = KMeans(vectors, 5, 0, 1)
	assert.Len(t, c, 2)
	assert.Len(t, a, 2)
}

func TestCosine(t *testing.T) {
	sim, err := Cosine([]float32{1, 0}, []float32{2, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-12)

	_, err = Cosine([]float32{1}, []float32{1, 0})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = Cosine([]float32{0, 0}, []float32{1, 0})
	assert.ErrorIs(t, err, ErrDegenerateVector)

	assert.Equal(t, []float32{2, 1}, Mean([][]float32{{1, 0}, {3, 2}}))
}
