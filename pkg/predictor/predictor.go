// Package predictor defines the boundary to the external forecasting model.
// The pipeline exchanges flat numeric vectors with it and assumes nothing
// about its internal representation.
package predictor

import (
	"context"
	"strings"
	"sync"

	"github.com/voqse/debut-plugin-cortex/pkg/window"
)

// Predictor consumes flat numeric feature vectors and produces a numeric
// prediction of the configured horizon.
type Predictor interface {
	Train(ctx context.Context, examples []window.Example) error
	Predict(ctx context.Context, input []float64) ([]float64, error)
	Close() error
}

// Builder constructs a Predictor backend from configuration.
type Builder func(cfg *Config) (Predictor, error)

var (
	backendRegistry   = make(map[string]Builder)
	backendRegistryMu sync.RWMutex
)

// RegisterBackend registers a predictor backend constructor.
func RegisterBackend(typeName string, builder Builder) {
	backendRegistryMu.Lock()
	defer backendRegistryMu.Unlock()
	backendRegistry[strings.ToLower(strings.TrimSpace(typeName))] = builder
}

func lookupBackend(typeName string) (Builder, bool) {
	backendRegistryMu.RLock()
	defer backendRegistryMu.RUnlock()
	builder, ok := backendRegistry[strings.ToLower(strings.TrimSpace(typeName))]
	return builder, ok
}
