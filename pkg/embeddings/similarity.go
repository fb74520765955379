package embeddings

import "math"

// CosineSimilarity returns the cosine of the angle between a and b in [-1, 1].
// Returns 0 when the lengths differ or either vector has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64

	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SquaredL2Distance returns the squared Euclidean distance between a and b.
// Vectors of different length are treated as infinitely far apart.
func SquaredL2Distance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}

	var sum float64

	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}

	return sum
}

// Clamp01 bounds v to [0, 1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
