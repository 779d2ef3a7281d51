package forecast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voqse/debut-plugin-cortex/pkg/quantize"
)

func TestReconstruct(t *testing.T) {
	dist := []quantize.Segment{
		{From: 0.97, To: 0.99, Count: 4},
		{From: 0.99, To: 1.01, Count: 4},
		{From: 1.01, To: 1.03, Count: 4},
	}

	f, ok := Reconstruct(quantize.Normalize(1, 3), dist, 3, 100)
	require.True(t, ok)
	require.InDelta(t, 99.0, f.Low, 1e-9)
	require.InDelta(t, 101.0, f.High, 1e-9)
	require.InDelta(t, 100.0, f.Avg, 1e-9)
}

func TestReconstructAbsentForDegenerateDistribution(t *testing.T) {
	// distribution collapsed to a single segment while the predictor was
	// trained against 11 bins
	dist := []quantize.Segment{{From: 1.0, To: 1.0, Count: 5}}

	_, ok := Reconstruct(0.95, dist, 11, 100)
	require.False(t, ok)

	f, ok := Reconstruct(0.0, dist, 11, 100)
	require.True(t, ok)
	require.Equal(t, 100.0, f.Avg)
}

func TestReconstructClampsPredictorNoise(t *testing.T) {
	dist := []quantize.Segment{
		{From: 0.99, To: 1.0, Count: 2},
		{From: 1.0, To: 1.01, Count: 2},
	}

	// values slightly outside [0, 1] still resolve to boundary segments
	f, ok := Reconstruct(-0.2, dist, 2, 200)
	require.True(t, ok)
	require.InDelta(t, 198.0, f.Low, 1e-9)

	f, ok = Reconstruct(1.3, dist, 2, 200)
	require.True(t, ok)
	require.InDelta(t, 202.0, f.High, 1e-9)
}
