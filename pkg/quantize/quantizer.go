package quantize

import "math"

// Classify returns the index of the first segment with From <= ratio < To.
// Ratios outside the distribution clamp to the nearest boundary segment:
// below the observed range -> 0, above it -> the last index. Unseen extremes
// at inference time degrade to the nearest known bin instead of failing.
func Classify(dist []Segment, ratio float64) int {
	if len(dist) == 0 {
		return 0
	}
	for i, s := range dist {
		if s.From <= ratio && ratio < s.To {
			return i
		}
	}
	if ratio < dist[0].From {
		return 0
	}
	return len(dist) - 1
}

// Normalize maps a segment index onto the [0, 1] scalar exchanged with the
// predictor.
func Normalize(index, segments int) float64 {
	if segments <= 0 {
		return 0
	}
	return float64(index) / float64(segments)
}

// Denormalize maps a predictor output back onto a segment index, clamped into
// the valid range. Together with Normalize it is not an exact inverse for all
// inputs: the predictor emits a continuous approximation of a discrete label.
func Denormalize(value float64, segments int) int {
	if segments <= 0 {
		return 0
	}
	idx := int(math.Round(value * float64(segments)))
	if idx < 0 {
		return 0
	}
	if idx > segments-1 {
		return segments - 1
	}
	return idx
}
