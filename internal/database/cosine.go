package database

import "math"

// CosineDistance returns 1 minus the cosine similarity of a and b, the
// same metric pgvector's <=> operator uses. The result falls in [0, 2]:
// 0 for parallel embeddings, 2 for opposite ones. Degenerate input, a
// length mismatch or a zero vector, reports the maximum distance so it
// can never win a nearest-face lookup.
func CosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 2.0
	}

	var dot, sqA, sqB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		sqA += float64(a[i]) * float64(a[i])
		sqB += float64(b[i]) * float64(b[i])
	}
	if sqA == 0 || sqB == 0 {
		return 2.0
	}

	sim := dot / (math.Sqrt(sqA) * math.Sqrt(sqB))
	// Accumulated rounding can push the ratio just past unit range.
	sim = math.Max(-1, math.Min(1, sim))

	return 1 - sim
}
