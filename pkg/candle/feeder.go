package candle

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Feeder yields sequential candles for one feature stream.
type Feeder interface {
	Next(ctx context.Context) (Candle, bool, error)
}

// SliceFeeder replays an in-memory candle series.
type SliceFeeder struct {
	candles []Candle
	idx     int
}

// NewSliceFeeder constructs a feeder over a static series.
func NewSliceFeeder(candles []Candle) *SliceFeeder {
	return &SliceFeeder{candles: candles}
}

// Next returns the next candle in the series.
func (f *SliceFeeder) Next(ctx context.Context) (Candle, bool, error) {
	if f.idx >= len(f.candles) {
		return Candle{}, false, nil
	}
	c := f.candles[f.idx]
	f.idx++
	return c, true, nil
}

// CSVFeeder reads a time,open,high,low,close,volume CSV and emits candles.
// A header row is detected and skipped; rows with non-numeric or missing
// columns are dropped.
type CSVFeeder struct {
	candles []Candle
	idx     int
}

// NewCSVFeederFromFile constructs a CSV feeder from a file path.
func NewCSVFeederFromFile(path string) (*CSVFeeder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candle csv: %w", err)
	}
	defer f.Close()
	return NewCSVFeeder(f)
}

// NewCSVFeeder constructs a CSV feeder from an io.Reader.
func NewCSVFeeder(r io.Reader) (*CSVFeeder, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read candle csv: %w", err)
	}
	var candles []Candle
	for _, rec := range records {
		if len(rec) < 6 {
			continue
		}
		c, ok := parseRow(rec)
		if !ok {
			// header or malformed row
			continue
		}
		candles = append(candles, c)
	}
	return &CSVFeeder{candles: candles}, nil
}

// Next returns the next candle parsed from the CSV.
func (f *CSVFeeder) Next(ctx context.Context) (Candle, bool, error) {
	if f.idx >= len(f.candles) {
		return Candle{}, false, nil
	}
	c := f.candles[f.idx]
	f.idx++
	return c, true, nil
}

func parseRow(rec []string) (Candle, bool) {
	ts, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil {
		return Candle{}, false
	}
	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(rec[i+1], 64)
		if err != nil {
			return Candle{}, false
		}
		vals[i] = v
	}
	return Candle{
		Time:   ts,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, true
}
