package cortex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voqse/debut-plugin-cortex/pkg/quantize"
	"github.com/voqse/debut-plugin-cortex/pkg/window"
)

func TestLoadConfigFromReader(t *testing.T) {
	input := `
streams: [BTCUSDT, ETHUSDT, SOLUSDT]
primary: ETHUSDT
segments_count: 15
precision: 4
input_size: 30
output_size: 5
ratio: ohlc4
mode: sequence
`
	cfg, err := LoadConfigFromReader(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}, cfg.Streams)
	require.Equal(t, "ETHUSDT", cfg.Primary)
	require.Equal(t, 15, cfg.SegmentsCount)
	require.Equal(t, 4, cfg.Precision)
	require.Equal(t, 30, cfg.InputSize)
	require.Equal(t, 5, cfg.OutputSize)
	require.Equal(t, quantize.RatioOHLC4, cfg.Ratio)
	require.Equal(t, window.ModeSequence, cfg.Mode)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader("streams: [BTCUSDT]\n"))
	require.NoError(t, err)
	require.Equal(t, "BTCUSDT", cfg.Primary)
	require.Equal(t, defaultSegmentsCount, cfg.SegmentsCount)
	require.Equal(t, defaultPrecision, cfg.Precision)
	require.Equal(t, defaultInputSize, cfg.InputSize)
	require.Equal(t, defaultOutputSize, cfg.OutputSize)
	require.Equal(t, quantize.RatioClose, cfg.Ratio)
	require.Equal(t, window.ModeFlat, cfg.Mode)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"no streams":       "segments_count: 11\n",
		"unknown primary":  "streams: [BTCUSDT]\nprimary: DOGE\n",
		"bad ratio":        "streams: [BTCUSDT]\nratio: median\n",
		"bad mode":         "streams: [BTCUSDT]\nmode: ragged\n",
		"single segment":   "streams: [BTCUSDT]\nsegments_count: 1\n",
		"negative input":   "streams: [BTCUSDT]\ninput_size: -2\n",
		"negative output":  "streams: [BTCUSDT]\noutput_size: -1\n",
		"bad precision":    "streams: [BTCUSDT]\nprecision: -3\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfigFromReader(strings.NewReader(input))
			require.Error(t, err)
		})
	}
}
