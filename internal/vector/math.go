package vector

import (
	"fmt"
	"math"
)

// norm returns the euclidean magnitude of v, or an error when v cannot take
// part in a cosine similarity.
func norm(v []float32) (float64, error) {
	var sum float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, ErrDegenerateVector
		}
		sum += f * f
	}
	if sum == 0 {
		return 0, ErrDegenerateVector
	}
	return math.Sqrt(sum), nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// cosine is the dot product divided by the product of magnitudes.
func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	return dot(a, b) / (an * bn)
}

// Cosine returns the cosine similarity of two raw vectors.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	an, err := norm(a)
	if err != nil {
		return 0, err
	}
	bn, err := norm(b)
	if err != nil {
		return 0, err
	}
	return cosine(a, an, b, bn), nil
}

// Mean returns the component-wise mean of vectors, all of which must share
// the first vector's dimension.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	sum := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		for i := range sum {
			sum[i] += float64(v[i])
		}
	}
	mean := make([]float32, len(sum))
	for i := range sum {
		mean[i] = float32(sum[i] / float64(len(vectors)))
	}
	return mean
}
