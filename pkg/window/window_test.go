package window

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fill(t *testing.T, b *Builder, stream string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, b.Push(stream, float64(i)))
	}
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	require.Equal(t, ModeFlat, mode)

	mode, err = ParseMode("SEQUENCE")
	require.NoError(t, err)
	require.Equal(t, ModeSequence, mode)

	_, err = ParseMode("ragged")
	require.Error(t, err)
}

func TestNewBuilderValidation(t *testing.T) {
	_, err := NewBuilder(nil, "", 10, 3)
	require.Error(t, err)

	_, err = NewBuilder([]string{"a", "a"}, "a", 10, 3)
	require.Error(t, err)

	_, err = NewBuilder([]string{"a"}, "b", 10, 3)
	require.Error(t, err)

	_, err = NewBuilder([]string{"a"}, "a", 0, 3)
	require.Error(t, err)
}

func TestExamplesCountSingleStream(t *testing.T) {
	b, err := NewBuilder([]string{"btc"}, "btc", 20, 3)
	require.NoError(t, err)
	fill(t, b, "btc", 100)

	examples := b.Examples()
	require.Len(t, examples, 77)
	require.Len(t, examples[0].Input, 20)
	require.Len(t, examples[0].Output, 3)

	// first window is history[0:20), output the next three values
	require.Equal(t, 0.0, examples[0].Input[0])
	require.Equal(t, 19.0, examples[0].Input[19])
	require.Equal(t, []float64{20, 21, 22}, examples[0].Output)

	last := examples[76]
	require.Equal(t, 76.0, last.Input[0])
	require.Equal(t, []float64{96, 97, 98}, last.Output)
}

func TestExamplesShortHistory(t *testing.T) {
	b, err := NewBuilder([]string{"btc"}, "btc", 20, 3)
	require.NoError(t, err)
	fill(t, b, "btc", 23)
	require.Empty(t, b.Examples())

	require.NoError(t, b.Push("btc", 23))
	require.Len(t, b.Examples(), 1)
}

func TestExamplesMultiStreamLayout(t *testing.T) {
	b, err := NewBuilder([]string{"btc", "eth"}, "eth", 2, 1)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Push("btc", float64(i)))
		require.NoError(t, b.Push("eth", float64(i)+0.5))
	}

	examples := b.Examples()
	require.Len(t, examples, 2)
	// stream-major: btc window then eth window
	require.Equal(t, []float64{0, 1, 0.5, 1.5}, examples[0].Input)
	require.Equal(t, []float64{2.5}, examples[0].Output)
}

func TestSequencesLayout(t *testing.T) {
	b, err := NewBuilder([]string{"btc", "eth"}, "btc", 2, 1)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.NoError(t, b.Push("btc", float64(i)))
		require.NoError(t, b.Push("eth", float64(i)+0.5))
	}

	seqs := b.Sequences()
	require.Len(t, seqs, 1)
	require.Equal(t, [][]float64{{0, 0.5}, {1, 1.5}}, seqs[0].Steps)
	require.Equal(t, []float64{2}, seqs[0].Output)
	require.Equal(t, []float64{0, 0.5, 1, 1.5}, seqs[0].Flatten())
}

func TestShortestStreamGoverns(t *testing.T) {
	b, err := NewBuilder([]string{"btc", "eth"}, "btc", 2, 1)
	require.NoError(t, err)
	fill(t, b, "btc", 10)
	fill(t, b, "eth", 3)
	require.Empty(t, b.Examples())

	require.NoError(t, b.Push("eth", 3))
	require.Len(t, b.Examples(), 1)
}

func TestLiveWindowRolls(t *testing.T) {
	b, err := NewBuilder([]string{"btc"}, "btc", 3, 1)
	require.NoError(t, err)

	_, ok := b.Input()
	require.False(t, ok)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Roll("btc", float64(i)))
	}
	input, ok := b.Input()
	require.True(t, ok)
	require.Equal(t, []float64{0, 1, 2}, input)

	require.NoError(t, b.Roll("btc", 3))
	input, ok = b.Input()
	require.True(t, ok)
	require.Equal(t, []float64{1, 2, 3}, input)
}

func TestInputStepsLayout(t *testing.T) {
	b, err := NewBuilder([]string{"btc", "eth"}, "btc", 2, 1)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		require.NoError(t, b.Roll("btc", float64(i)))
		require.NoError(t, b.Roll("eth", float64(i)+0.5))
	}

	steps, ok := b.InputSteps()
	require.True(t, ok)
	require.Equal(t, [][]float64{{0, 0.5}, {1, 1.5}}, steps)
}

func TestUnknownStream(t *testing.T) {
	b, err := NewBuilder([]string{"btc"}, "btc", 3, 1)
	require.NoError(t, err)
	require.Error(t, b.Push("doge", 1))
	require.Error(t, b.Roll("doge", 1))
}

func TestReset(t *testing.T) {
	b, err := NewBuilder([]string{"btc"}, "btc", 2, 1)
	require.NoError(t, err)
	fill(t, b, "btc", 10)
	b.Reset()
	require.Empty(t, b.Examples())
}
