// Package journal persists forecast cycles as JSON files for offline
// analysis. Each inference pass that produced a prediction gets one file,
// whether or not the reconstruction succeeded.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/voqse/debut-plugin-cortex/pkg/forecast"
)

// Record captures one forecast cycle: the quantized input handed to the
// predictor, its raw output, and the reconstructed price ranges.
type Record struct {
	Timestamp    time.Time           `json:"timestamp"`
	Stream       string              `json:"stream"`
	Cycle        int                 `json:"cycle"`
	RefPrice     float64             `json:"ref_price"`
	Input        []float64           `json:"input,omitempty"`
	Prediction   []float64           `json:"prediction,omitempty"`
	Forecasts    []forecast.Forecast `json:"forecasts,omitempty"`
	Success      bool                `json:"success"`
	ErrorMessage string              `json:"error_message,omitempty"`
}

// Writer appends forecast records to a directory, one JSON file per cycle.
type Writer struct {
	dir   string
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a journal writer rooted at dir.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "journal"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, nowFn: time.Now}
}

// Write persists one record and returns the file path it was written to.
func (w *Writer) Write(rec *Record) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("journal: nil record")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = w.nowFn()
	}
	w.seq++
	rec.Cycle = w.seq
	name := fmt.Sprintf("forecast_%s_%05d.json", rec.Timestamp.UTC().Format("20060102_150405"), w.seq)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
