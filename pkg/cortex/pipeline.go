// Package cortex wires the ratio-quantization pipeline together: candles in,
// quantized windows out, predictor output back to price forecasts. One
// Pipeline instance serves one instrument and is driven synchronously by the
// host; it is not safe for concurrent use.
package cortex

import (
	"context"
	"errors"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/voqse/debut-plugin-cortex/pkg/candle"
	"github.com/voqse/debut-plugin-cortex/pkg/forecast"
	"github.com/voqse/debut-plugin-cortex/pkg/quantize"
	"github.com/voqse/debut-plugin-cortex/pkg/window"
)

var (
	// ErrInsufficientHistory marks a training phase that ended before any
	// ratio observation was collected.
	ErrInsufficientHistory = errors.New("cortex: insufficient history")
	// ErrNotTrained marks operations that need a built distribution.
	ErrNotTrained = errors.New("cortex: distribution not built")
)

type phase int

const (
	phaseTraining phase = iota
	phaseInference
)

type stream struct {
	name      string
	prev      candle.Candle
	hasPrev   bool
	obs       []quantize.Observation
	dist      []quantize.Segment
	lastClose float64
}

// Pipeline converts candle streams into quantized windows and reconstructs
// forecasts from predictor output.
type Pipeline struct {
	cfg     *Config
	win     *window.Builder
	streams map[string]*stream
	phase   phase
	logger  logx.Logger
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithLogger replaces the default logx logger.
func WithLogger(logger logx.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New constructs a pipeline in training phase.
func New(cfg *Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("cortex: config cannot be nil")
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	win, err := window.NewBuilder(cfg.Streams, cfg.Primary, cfg.InputSize, cfg.OutputSize)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:     cfg,
		win:     win,
		streams: make(map[string]*stream, len(cfg.Streams)),
		phase:   phaseTraining,
		logger:  logx.WithContext(context.Background()),
	}
	for _, name := range cfg.Streams {
		p.streams[name] = &stream{name: name}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// PrepareTraining resets accumulated state and re-enters training phase.
// Hosts call it at the start of a data-collection session.
func (p *Pipeline) PrepareTraining() {
	for _, s := range p.streams {
		s.obs = nil
		s.dist = nil
		s.hasPrev = false
		s.lastClose = 0
	}
	p.win.Reset()
	p.phase = phaseTraining
}

// OnCandle advances one stream by one candle. During the training phase the
// resulting ratio observation is accumulated; during inference it is
// quantized and rolled into the live window. The first candle of a stream
// produces no observation.
func (p *Pipeline) OnCandle(name string, c candle.Candle) error {
	s, ok := p.streams[name]
	if !ok {
		return fmt.Errorf("cortex: unknown stream %q", name)
	}

	obs, ok := quantize.Ratio(p.cfg.Ratio, s.prev, c, s.hasPrev)
	s.prev = c
	s.hasPrev = true
	s.lastClose = c.Close
	if !ok {
		return nil
	}

	switch p.phase {
	case phaseTraining:
		s.obs = append(s.obs, obs)
	case phaseInference:
		if len(s.dist) == 0 {
			return fmt.Errorf("%w: stream %q", ErrNotTrained, name)
		}
		value := quantize.Normalize(quantize.Classify(s.dist, obs.Ratio), p.cfg.SegmentsCount)
		if err := p.win.Roll(name, value); err != nil {
			return err
		}
	}
	return nil
}

// FinalizeTraining builds one distribution per stream from the accumulated
// observations, quantizes the retained history into the window builder,
// seeds the live windows, and switches to inference phase.
func (p *Pipeline) FinalizeTraining() error {
	for _, name := range p.cfg.Streams {
		s := p.streams[name]
		if len(s.obs) == 0 {
			return fmt.Errorf("%w: stream %q collected no observations", ErrInsufficientHistory, name)
		}
		dist, err := quantize.Build(s.obs, p.cfg.SegmentsCount, p.cfg.Precision)
		if err != nil {
			return fmt.Errorf("cortex: stream %q: %w", name, err)
		}
		s.dist = dist

		for _, o := range s.obs {
			value := quantize.Normalize(quantize.Classify(dist, o.Ratio), p.cfg.SegmentsCount)
			if err := p.win.Push(name, value); err != nil {
				return err
			}
			if err := p.win.Roll(name, value); err != nil {
				return err
			}
		}
		p.logger.Infof("cortex: stream %s distribution built | observations=%d segments=%d",
			name, len(s.obs), len(dist))
		s.obs = nil
	}
	p.phase = phaseInference
	return nil
}

// Examples returns the flat training set. It fails before FinalizeTraining.
func (p *Pipeline) Examples() ([]window.Example, error) {
	if p.phase != phaseInference {
		return nil, ErrNotTrained
	}
	return p.win.Examples(), nil
}

// Sequences returns the per-time-step training set for recurrent predictors.
func (p *Pipeline) Sequences() ([]window.Sequence, error) {
	if p.phase != phaseInference {
		return nil, ErrNotTrained
	}
	return p.win.Sequences(), nil
}

// Input returns the current live input vector in the configured assembly
// layout, or ok=false while any stream's history is still short.
func (p *Pipeline) Input() ([]float64, bool) {
	if p.phase != phaseInference {
		return nil, false
	}
	if p.cfg.Mode == window.ModeSequence {
		steps, ok := p.win.InputSteps()
		if !ok {
			return nil, false
		}
		return window.Sequence{Steps: steps}.Flatten(), true
	}
	return p.win.Input()
}

// Forecast reconstructs price ranges from the predictor output against the
// primary stream's distribution and its most recent close. Steps that
// resolve outside the distribution are dropped rather than fabricated.
func (p *Pipeline) Forecast(pred []float64) ([]forecast.Forecast, error) {
	s := p.streams[p.cfg.Primary]
	if len(s.dist) == 0 {
		return nil, ErrNotTrained
	}
	out := make([]forecast.Forecast, 0, len(pred))
	for i, v := range pred {
		f, ok := forecast.Reconstruct(v, s.dist, p.cfg.SegmentsCount, s.lastClose)
		if !ok {
			p.logger.Debugf("cortex: forecast step %d resolves outside distribution, dropped", i)
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// Distribution exposes a stream's built segments, for persistence hooks and
// reporting.
func (p *Pipeline) Distribution(name string) ([]quantize.Segment, bool) {
	s, ok := p.streams[name]
	if !ok || len(s.dist) == 0 {
		return nil, false
	}
	return s.dist, true
}

// LastClose returns the most recent close price seen on a stream.
func (p *Pipeline) LastClose(name string) (float64, bool) {
	s, ok := p.streams[name]
	if !ok || !s.hasPrev {
		return 0, false
	}
	return s.lastClose, true
}

// Teardown drops all accumulated state. The host calls it on disposal.
func (p *Pipeline) Teardown() {
	p.win.Reset()
	for _, s := range p.streams {
		s.obs = nil
		s.dist = nil
		s.hasPrev = false
	}
}
