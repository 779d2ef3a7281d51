// Package sim provides a random-walk-with-drift baseline predictor. It is
// the backend backtests and tests run against when no trained model is
// available.
package sim

import (
	"context"
	"fmt"

	"github.com/voqse/debut-plugin-cortex/pkg/predictor"
	"github.com/voqse/debut-plugin-cortex/pkg/window"
)

func init() {
	predictor.RegisterBackend("sim", func(cfg *predictor.Config) (predictor.Predictor, error) {
		return New(cfg.OutputSize), nil
	})
}

// Predictor repeats the most recent input value, shifted by the mean
// per-step drift estimated during Train.
type Predictor struct {
	outputSize int
	drift      float64
	trained    bool
}

// New constructs a sim predictor with the given forecast horizon.
func New(outputSize int) *Predictor {
	return &Predictor{outputSize: outputSize}
}

// Train estimates the mean per-step drift across the example outputs.
func (p *Predictor) Train(ctx context.Context, examples []window.Example) error {
	var sum float64
	var steps int
	for _, ex := range examples {
		if len(ex.Input) == 0 {
			continue
		}
		prev := ex.Input[len(ex.Input)-1]
		for _, out := range ex.Output {
			sum += out - prev
			prev = out
			steps++
		}
	}
	if steps > 0 {
		p.drift = sum / float64(steps)
	}
	p.trained = true
	return nil
}

// Predict extrapolates the last input value by the estimated drift.
func (p *Predictor) Predict(ctx context.Context, input []float64) ([]float64, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("sim: input vector is empty")
	}
	out := make([]float64, p.outputSize)
	value := input[len(input)-1]
	for i := range out {
		value += p.drift
		out[i] = value
	}
	return out, nil
}

// Close is a no-op.
func (p *Predictor) Close() error { return nil }
