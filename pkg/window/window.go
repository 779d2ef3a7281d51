// Package window assembles quantized feature histories into fixed-size
// training examples and rolling inference inputs.
package window

import (
	"fmt"
	"strings"
)

// Mode selects how multi-stream windows are flattened for the predictor.
type Mode string

const (
	// ModeFlat concatenates each stream's window stream-major, the layout a
	// feed-forward predictor consumes.
	ModeFlat Mode = "flat"
	// ModeSequence groups all streams' values per time step, the layout a
	// recurrent predictor consumes.
	ModeSequence Mode = "sequence"
)

// ParseMode maps a configuration string onto a Mode. Empty defaults to flat.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(ModeFlat):
		return ModeFlat, nil
	case string(ModeSequence):
		return ModeSequence, nil
	default:
		return "", fmt.Errorf("window: unsupported mode %q", raw)
	}
}

// Example is one supervised pair of flat numeric vectors.
type Example struct {
	Input  []float64
	Output []float64
}

// Sequence is one supervised pair with per-time-step input vectors.
type Sequence struct {
	Steps  [][]float64
	Output []float64
}

// Flatten concatenates the step vectors time-major.
func (s Sequence) Flatten() []float64 {
	if len(s.Steps) == 0 {
		return nil
	}
	out := make([]float64, 0, len(s.Steps)*len(s.Steps[0]))
	for _, step := range s.Steps {
		out = append(out, step...)
	}
	return out
}

// Builder accumulates quantized values per stream and slices them into
// training examples or a live input window. It is owned by a single pipeline
// instance and is not safe for concurrent use.
type Builder struct {
	streams    []string
	primary    int
	inputSize  int
	outputSize int

	history map[string][]float64
	live    map[string][]float64
}

// NewBuilder constructs a window builder. streams fixes the layout order;
// primary names the stream whose future values become example outputs.
func NewBuilder(streams []string, primary string, inputSize, outputSize int) (*Builder, error) {
	if len(streams) == 0 {
		return nil, fmt.Errorf("window: at least one stream is required")
	}
	if inputSize <= 0 || outputSize <= 0 {
		return nil, fmt.Errorf("window: input and output sizes must be positive")
	}
	primaryIdx := -1
	seen := make(map[string]struct{}, len(streams))
	for i, name := range streams {
		if name == "" {
			return nil, fmt.Errorf("window: stream name cannot be empty")
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("window: duplicate stream %q", name)
		}
		seen[name] = struct{}{}
		if name == primary {
			primaryIdx = i
		}
	}
	if primaryIdx == -1 {
		return nil, fmt.Errorf("window: primary stream %q is not tracked", primary)
	}
	b := &Builder{
		streams:    streams,
		primary:    primaryIdx,
		inputSize:  inputSize,
		outputSize: outputSize,
		history:    make(map[string][]float64, len(streams)),
		live:       make(map[string][]float64, len(streams)),
	}
	return b, nil
}

// Push appends a quantized value to a stream's training history.
func (b *Builder) Push(stream string, value float64) error {
	if !b.tracked(stream) {
		return fmt.Errorf("window: unknown stream %q", stream)
	}
	b.history[stream] = append(b.history[stream], value)
	return nil
}

// Roll appends a quantized value to a stream's live buffer, evicting the
// oldest value once the buffer exceeds the input size.
func (b *Builder) Roll(stream string, value float64) error {
	if !b.tracked(stream) {
		return fmt.Errorf("window: unknown stream %q", stream)
	}
	buf := append(b.live[stream], value)
	if len(buf) > b.inputSize {
		buf = buf[len(buf)-b.inputSize:]
	}
	b.live[stream] = buf
	return nil
}

// Examples slides a window across the training history one step at a time and
// returns flat feed-forward examples: each input is the streams' windows
// concatenated stream-major, each output the primary stream's next values.
// The shortest stream governs; short histories produce no examples.
func (b *Builder) Examples() []Example {
	n := b.usable()
	if n == 0 {
		return nil
	}
	primary := b.history[b.streams[b.primary]]
	out := make([]Example, 0, n)
	for i := 0; i < n; i++ {
		input := make([]float64, 0, b.inputSize*len(b.streams))
		for _, name := range b.streams {
			input = append(input, b.history[name][i:i+b.inputSize]...)
		}
		output := make([]float64, b.outputSize)
		copy(output, primary[i+b.inputSize:i+b.inputSize+b.outputSize])
		out = append(out, Example{Input: input, Output: output})
	}
	return out
}

// Sequences returns the same sliding windows shaped for recurrent predictors:
// one vector of all streams' values per time step.
func (b *Builder) Sequences() []Sequence {
	n := b.usable()
	if n == 0 {
		return nil
	}
	primary := b.history[b.streams[b.primary]]
	out := make([]Sequence, 0, n)
	for i := 0; i < n; i++ {
		steps := make([][]float64, b.inputSize)
		for t := 0; t < b.inputSize; t++ {
			step := make([]float64, len(b.streams))
			for j, name := range b.streams {
				step[j] = b.history[name][i+t]
			}
			steps[t] = step
		}
		output := make([]float64, b.outputSize)
		copy(output, primary[i+b.inputSize:i+b.inputSize+b.outputSize])
		out = append(out, Sequence{Steps: steps, Output: output})
	}
	return out
}

// Input returns the current live window flattened stream-major, or ok=false
// until every stream has accumulated a full window.
func (b *Builder) Input() ([]float64, bool) {
	if !b.ready() {
		return nil, false
	}
	out := make([]float64, 0, b.inputSize*len(b.streams))
	for _, name := range b.streams {
		out = append(out, b.live[name]...)
	}
	return out, true
}

// InputSteps returns the current live window as per-time-step vectors, or
// ok=false until every stream has accumulated a full window.
func (b *Builder) InputSteps() ([][]float64, bool) {
	if !b.ready() {
		return nil, false
	}
	steps := make([][]float64, b.inputSize)
	for t := 0; t < b.inputSize; t++ {
		step := make([]float64, len(b.streams))
		for j, name := range b.streams {
			step[j] = b.live[name][t]
		}
		steps[t] = step
	}
	return steps, true
}

// Reset drops all accumulated history and live state.
func (b *Builder) Reset() {
	b.history = make(map[string][]float64, len(b.streams))
	b.live = make(map[string][]float64, len(b.streams))
}

// usable returns the number of complete (input, output) windows the shortest
// stream history supports.
func (b *Builder) usable() int {
	shortest := -1
	for _, name := range b.streams {
		if l := len(b.history[name]); shortest == -1 || l < shortest {
			shortest = l
		}
	}
	if shortest <= b.inputSize+b.outputSize {
		return 0
	}
	return shortest - b.inputSize - b.outputSize
}

func (b *Builder) ready() bool {
	for _, name := range b.streams {
		if len(b.live[name]) < b.inputSize {
			return false
		}
	}
	return true
}

func (b *Builder) tracked(stream string) bool {
	for _, name := range b.streams {
		if name == stream {
			return true
		}
	}
	return false
}
