package quantize

import (
	"fmt"
	"math"
	"sort"
)

// Segment is one contiguous slice of the observed ratio range. Segments are
// ordered ascending and adjacent: To of segment i equals From of segment i+1.
type Segment struct {
	From  float64 `json:"from" msgpack:"from"`
	To    float64 `json:"to" msgpack:"to"`
	Count int     `json:"count" msgpack:"count"`
}

// Build partitions the observed ratios into at most segments equal-population
// slices. Ratios are first rounded to precision decimal digits and tallied
// into a frequency table, so the result is a pure function of the rounded
// input multiset.
//
// When the data carries fewer distinct rounded values than requested segments
// the output simply has fewer (possibly zero-width) segments; the final
// segment always absorbs the remainder.
func Build(obs []Observation, segments, precision int) ([]Segment, error) {
	if segments < 2 {
		return nil, fmt.Errorf("quantize: segments count must be >= 2, got %d", segments)
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("quantize: no observations to build a distribution from")
	}

	counts := make(map[float64]int, len(obs))
	for _, o := range obs {
		counts[roundTo(o.Ratio, precision)]++
	}
	values := make([]float64, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Float64s(values)

	limit := int(math.Ceil(float64(len(obs)) / float64(segments)))
	out := make([]Segment, 0, segments)
	start := values[0]
	acc := 0
	for i, v := range values {
		c := counts[v]
		last := i == len(values)-1
		if !last && i > 0 && acc+c > limit && len(out) < segments-1 {
			out = append(out, Segment{From: start, To: v, Count: acc})
			start = v
			acc = c
			continue
		}
		acc += c
		if last {
			out = append(out, Segment{From: start, To: v, Count: acc})
		}
	}
	return out, nil
}

func roundTo(v float64, digits int) float64 {
	if digits <= 0 {
		return math.Round(v)
	}
	pow := math.Pow(10, float64(digits))
	return math.Round(v*pow) / pow
}
