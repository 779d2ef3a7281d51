// Package store persists training runs and forecast cycles to Postgres.
// The store is optional; without a DSN the application records nothing.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"github.com/voqse/debut-plugin-cortex/internal/config"
	"github.com/voqse/debut-plugin-cortex/pkg/forecast"
)

// TrainingRun summarises one completed training phase.
type TrainingRun struct {
	StartedAt     time.Time
	FinishedAt    time.Time
	Streams       []string
	Observations  int
	SegmentsCount int
	SnapshotPath  string
}

// ForecastRecord is one inference cycle as persisted.
type ForecastRecord struct {
	CreatedAt    time.Time
	Stream       string
	RefPrice     float64
	Prediction   []float64
	Forecasts    []forecast.Forecast
	Success      bool
	ErrorMessage string
}

// Service records pipeline activity. Implementations must tolerate being
// called from a single goroutine only.
type Service interface {
	RecordTrainingRun(ctx context.Context, run TrainingRun) error
	RecordForecast(ctx context.Context, rec ForecastRecord) error
	Close() error
}

// New returns a Postgres-backed service, or a no-op one when no DSN is
// configured.
func New(cfg config.PostgresConf) Service {
	if cfg.DSN == "" {
		return noopService{}
	}
	return &pgService{conn: sqlx.NewSqlConn("pgx", cfg.DSN)}
}

type noopService struct{}

func (noopService) RecordTrainingRun(context.Context, TrainingRun) error { return nil }
func (noopService) RecordForecast(context.Context, ForecastRecord) error { return nil }
func (noopService) Close() error                                         { return nil }

type pgService struct {
	conn sqlx.SqlConn
}

func (s *pgService) RecordTrainingRun(ctx context.Context, run TrainingRun) error {
	streams, err := json.Marshal(run.Streams)
	if err != nil {
		return fmt.Errorf("store: encode streams: %w", err)
	}
	const q = `INSERT INTO training_runs
		(started_at, finished_at, streams, observations, segments_count, snapshot_path)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.conn.ExecCtx(ctx, q,
		run.StartedAt, run.FinishedAt, string(streams),
		run.Observations, run.SegmentsCount, run.SnapshotPath); err != nil {
		logx.WithContext(ctx).Errorf("store: record training run: %v", err)
		return fmt.Errorf("store: record training run: %w", err)
	}
	return nil
}

func (s *pgService) RecordForecast(ctx context.Context, rec ForecastRecord) error {
	prediction, err := json.Marshal(rec.Prediction)
	if err != nil {
		return fmt.Errorf("store: encode prediction: %w", err)
	}
	forecasts, err := json.Marshal(rec.Forecasts)
	if err != nil {
		return fmt.Errorf("store: encode forecasts: %w", err)
	}
	const q = `INSERT INTO forecasts
		(created_at, stream, ref_price, prediction, forecasts, success, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.conn.ExecCtx(ctx, q,
		rec.CreatedAt, rec.Stream, rec.RefPrice,
		string(prediction), string(forecasts), rec.Success, rec.ErrorMessage); err != nil {
		logx.WithContext(ctx).Errorf("store: record forecast: %v", err)
		return fmt.Errorf("store: record forecast: %w", err)
	}
	return nil
}

func (s *pgService) Close() error { return nil }
