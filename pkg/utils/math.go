package utils

// Clamp01 clamps v to the closed interval [0, 1]. Similarity and confidence
// values leaving the scoring pipeline are always reported in this range.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// MeanFloat64 returns the arithmetic mean of xs, or 0 for an empty slice.
func MeanFloat64(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}
