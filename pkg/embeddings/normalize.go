// Package embeddings provides vector math for embeddings (normalization, cosine similarity, L2 distance).
package embeddings

import "math"

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	return math.Sqrt(sum)
}

// NormalizeL2 scales v in place to unit length and reports whether it did so.
// A zero vector is left untouched and reported as false.
func NormalizeL2(v []float32) bool {
	n := Norm(v)
	if n == 0 {
		return false
	}

	for i, x := range v {
		v[i] = float32(float64(x) / n)
	}

	return true
}
