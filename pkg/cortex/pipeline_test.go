package cortex

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voqse/debut-plugin-cortex/pkg/candle"
	"github.com/voqse/debut-plugin-cortex/pkg/predictor/sim"
	"github.com/voqse/debut-plugin-cortex/pkg/quantize"
	"github.com/voqse/debut-plugin-cortex/pkg/window"
)

// makeCandles builds a deterministic random-walk candle series.
func makeCandles(seed int64, n int) []candle.Candle {
	rng := rand.New(rand.NewSource(seed))
	out := make([]candle.Candle, n)
	price := 100.0
	for i := range out {
		move := price * rng.NormFloat64() * 0.008
		open := price
		price += move
		high := open
		low := price
		if price > open {
			high, low = price, open
		}
		out[i] = candle.Candle{
			Time:   int64(i) * 60_000,
			Open:   open,
			High:   high * 1.001,
			Low:    low * 0.999,
			Close:  price,
			Volume: 1 + rng.Float64(),
		}
	}
	return out
}

func threeStreamConfig() *Config {
	return &Config{
		Streams:       []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"},
		SegmentsCount: 11,
		InputSize:     20,
		OutputSize:    3,
		Precision:     6,
	}
}

func trainPipeline(t *testing.T, cfg *Config, candlesPerStream int) *Pipeline {
	t.Helper()
	p, err := New(cfg)
	require.NoError(t, err)
	p.PrepareTraining()
	for i, name := range cfg.Streams {
		for _, c := range makeCandles(int64(i)+1, candlesPerStream) {
			require.NoError(t, p.OnCandle(name, c))
		}
	}
	require.NoError(t, p.FinalizeTraining())
	return p
}

func TestServeTrainingDataEndToEnd(t *testing.T) {
	// 101 candles produce 100 quantized points per stream
	p := trainPipeline(t, threeStreamConfig(), 101)

	examples, err := p.Examples()
	require.NoError(t, err)
	require.Len(t, examples, 77)
	for _, ex := range examples {
		require.Len(t, ex.Input, 60)
		require.Len(t, ex.Output, 3)
		for _, v := range ex.Input {
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestSequencesEndToEnd(t *testing.T) {
	cfg := threeStreamConfig()
	cfg.Mode = window.ModeSequence
	p := trainPipeline(t, cfg, 101)

	seqs, err := p.Sequences()
	require.NoError(t, err)
	require.Len(t, seqs, 77)
	require.Len(t, seqs[0].Steps, 20)
	require.Len(t, seqs[0].Steps[0], 3)
	require.Len(t, seqs[0].Flatten(), 60)
}

func TestExamplesBeforeFinalize(t *testing.T) {
	p, err := New(threeStreamConfig())
	require.NoError(t, err)
	_, err = p.Examples()
	require.ErrorIs(t, err, ErrNotTrained)
	_, err = p.Sequences()
	require.ErrorIs(t, err, ErrNotTrained)
	_, ok := p.Input()
	require.False(t, ok)
}

func TestFinalizeWithoutObservations(t *testing.T) {
	p, err := New(threeStreamConfig())
	require.NoError(t, err)
	require.ErrorIs(t, p.FinalizeTraining(), ErrInsufficientHistory)

	// a single candle yields no ratio observation
	p2, err := New(threeStreamConfig())
	require.NoError(t, err)
	require.NoError(t, p2.OnCandle("BTCUSDT", candle.Candle{Close: 100}))
	require.ErrorIs(t, p2.FinalizeTraining(), ErrInsufficientHistory)
}

func TestLiveInputAfterFinalize(t *testing.T) {
	p := trainPipeline(t, threeStreamConfig(), 101)

	// training history seeds the live window
	input, ok := p.Input()
	require.True(t, ok)
	require.Len(t, input, 60)

	// new candles keep rolling it
	require.NoError(t, p.OnCandle("BTCUSDT", candle.Candle{Time: 1, Close: 102}))
	input, ok = p.Input()
	require.True(t, ok)
	require.Len(t, input, 60)
}

func TestOnCandleUnknownStream(t *testing.T) {
	p, err := New(threeStreamConfig())
	require.NoError(t, err)
	require.Error(t, p.OnCandle("DOGEUSDT", candle.Candle{Close: 1}))
}

func TestForecastRoundTrip(t *testing.T) {
	p := trainPipeline(t, threeStreamConfig(), 101)

	dist, ok := p.Distribution("BTCUSDT")
	require.True(t, ok)
	require.NotEmpty(t, dist)

	forecasts, err := p.Forecast([]float64{0.5, 0.5, 0.5})
	require.NoError(t, err)
	require.Len(t, forecasts, 3)
	ref := p.streams["BTCUSDT"].lastClose
	for _, f := range forecasts {
		require.LessOrEqual(t, f.Low, f.High)
		require.InDelta(t, (f.Low+f.High)/2, f.Avg, 1e-9)
		require.InDelta(t, ref, f.Avg, ref*0.1)
	}
}

func TestForecastBeforeTraining(t *testing.T) {
	p, err := New(threeStreamConfig())
	require.NoError(t, err)
	_, err = p.Forecast([]float64{0.5})
	require.ErrorIs(t, err, ErrNotTrained)
}

func TestPipelineWithSimPredictor(t *testing.T) {
	p := trainPipeline(t, threeStreamConfig(), 101)

	examples, err := p.Examples()
	require.NoError(t, err)

	ctx := context.Background()
	model := sim.New(3)
	require.NoError(t, model.Train(ctx, examples))

	input, ok := p.Input()
	require.True(t, ok)
	pred, err := model.Predict(ctx, input)
	require.NoError(t, err)
	require.Len(t, pred, 3)

	forecasts, err := p.Forecast(pred)
	require.NoError(t, err)
	require.NotEmpty(t, forecasts)
}

func TestPrepareTrainingResets(t *testing.T) {
	p := trainPipeline(t, threeStreamConfig(), 101)
	p.PrepareTraining()

	_, err := p.Examples()
	require.ErrorIs(t, err, ErrNotTrained)
	_, ok := p.Distribution("BTCUSDT")
	require.False(t, ok)
}

func TestQuantizedHistoryClampsUnseenExtremes(t *testing.T) {
	cfg := &Config{
		Streams:       []string{"BTCUSDT"},
		SegmentsCount: 5,
		InputSize:     3,
		OutputSize:    1,
		Precision:     6,
	}
	p := trainPipeline(t, cfg, 30)

	// an extreme move outside the trained range must still quantize
	require.NoError(t, p.OnCandle("BTCUSDT", candle.Candle{Time: 99, Close: 500}))
	input, ok := p.Input()
	require.True(t, ok)
	last := input[len(input)-1]
	require.Equal(t, quantize.Normalize(4, 5), last)
}
