package embedding

import "math"

// CosineSimilarity returns dot(a, b) / (|a| |b|). It returns 0 when the
// vectors differ in length or either has zero magnitude.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dot, na2, nb2 float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0
	}

	s := dot / (math.Sqrt(na2) * math.Sqrt(nb2))
	// Rounding can push identical vectors just past 1.
	return float32(max(-1, min(1, s)))
}

// Norm returns the Euclidean norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
