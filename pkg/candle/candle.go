package candle

// Candle is one OHLCV bar of a single feature stream.
type Candle struct {
	Time   int64   `json:"time"` // unix milliseconds, bar open
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// OHLC4 returns the mean of the four price points.
func (c Candle) OHLC4() float64 {
	return (c.Open + c.High + c.Low + c.Close) / 4
}
