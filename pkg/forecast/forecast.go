// Package forecast reconstructs concrete price ranges from quantized
// predictor output.
package forecast

import (
	"github.com/voqse/debut-plugin-cortex/pkg/quantize"
)

// Forecast is a price range derived from one predicted bin and a reference
// price.
type Forecast struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
	Avg  float64 `json:"avg"`
}

// Reconstruct maps one predicted quantized value back onto a price range
// relative to refPrice. segments is the configured bin count the value was
// normalized against. ok is false when the denormalized index resolves
// outside the built distribution, which happens with degenerate or untrained
// distributions; no price is fabricated in that case.
func Reconstruct(value float64, dist []quantize.Segment, segments int, refPrice float64) (Forecast, bool) {
	idx := quantize.Denormalize(value, segments)
	if idx >= len(dist) {
		return Forecast{}, false
	}
	s := dist[idx]
	low := refPrice * s.From
	high := refPrice * s.To
	return Forecast{
		Low:  low,
		High: high,
		Avg:  (low + high) / 2,
	}, true
}
