package quantize

import (
	"fmt"
	"strings"

	"github.com/voqse/debut-plugin-cortex/pkg/candle"
)

// RatioKind selects the price reference used when forming ratio observations.
type RatioKind string

const (
	// RatioClose compares consecutive closing prices.
	RatioClose RatioKind = "close"
	// RatioOHLC4 compares consecutive OHLC means.
	RatioOHLC4 RatioKind = "ohlc4"
)

// ParseRatioKind maps a configuration string onto a RatioKind.
// An empty string defaults to RatioClose.
func ParseRatioKind(raw string) (RatioKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(RatioClose):
		return RatioClose, nil
	case string(RatioOHLC4):
		return RatioOHLC4, nil
	default:
		return "", fmt.Errorf("quantize: unsupported ratio kind %q", raw)
	}
}

func (k RatioKind) price(c candle.Candle) float64 {
	if k == RatioOHLC4 {
		return c.OHLC4()
	}
	return c.Close
}

// Observation is a single relative-change sample of one feature stream.
type Observation struct {
	Time   int64
	Volume float64
	Ratio  float64
}

// Ratio forms an observation from two consecutive candles of the same stream.
// ok is false when there is no usable reference price, which is the case for
// the first candle of a stream.
func Ratio(kind RatioKind, prev, cur candle.Candle, hasPrev bool) (Observation, bool) {
	if !hasPrev {
		return Observation{}, false
	}
	ref := kind.price(prev)
	if ref == 0 {
		return Observation{}, false
	}
	return Observation{
		Time:   cur.Time,
		Volume: cur.Volume,
		Ratio:  kind.price(cur) / ref,
	}, true
}
