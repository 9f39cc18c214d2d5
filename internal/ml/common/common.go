package common

import "math"

// ModelKeyEnsemble identifies the blended send-now classifier in the
// model registry. Bump the suffix when the artifact layout changes.
const ModelKeyEnsemble = "timing_ensemble_v2"

func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
