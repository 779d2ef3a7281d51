package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/voqse/debut-plugin-cortex/internal/cli"
	"github.com/voqse/debut-plugin-cortex/internal/config"
	"github.com/voqse/debut-plugin-cortex/internal/store"
	"github.com/voqse/debut-plugin-cortex/pkg/candle"
	"github.com/voqse/debut-plugin-cortex/pkg/cortex"
	"github.com/voqse/debut-plugin-cortex/pkg/journal"

	// Import for side-effects: registers predictor backends
	_ "github.com/voqse/debut-plugin-cortex/pkg/predictor/llm"
	_ "github.com/voqse/debut-plugin-cortex/pkg/predictor/sim"
)

var configFile = flag.String("config", "etc/cortex.yaml", "path to the main config file")

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-config path] <train|predict>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	cfg := config.MustLoad(*configFile)
	cli.LogConfigSummary(cfg)

	if cfg.Pipeline.Value == nil {
		logx.Must(errors.New("main: pipeline section is not configured"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch flag.Arg(0) {
	case "train":
		err = runTrain(ctx, cfg)
	case "predict":
		err = runPredict(ctx, cfg)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logx.Must(err)
	}
}

// feedHistory replays each stream's CSV history into the pipeline.
func feedHistory(ctx context.Context, cfg *config.Config, p *cortex.Pipeline) (int, error) {
	total := 0
	for _, name := range cfg.Pipeline.Value.Streams {
		path := cfg.ResolveDataPath(filepath.Join(cfg.DataDir, name+".csv"))
		feeder, err := candle.NewCSVFeederFromFile(path)
		if err != nil {
			return 0, fmt.Errorf("main: open history for %s: %w", name, err)
		}
		for {
			c, ok, err := feeder.Next(ctx)
			if err != nil {
				return 0, fmt.Errorf("main: read history for %s: %w", name, err)
			}
			if !ok {
				break
			}
			if err := p.OnCandle(name, c); err != nil {
				return 0, err
			}
			total++
		}
	}
	return total, nil
}

func runTrain(ctx context.Context, cfg *config.Config) error {
	startedAt := time.Now()

	p, err := cortex.New(cfg.Pipeline.Value)
	if err != nil {
		return err
	}
	defer p.Teardown()

	p.PrepareTraining()
	candles, err := feedHistory(ctx, cfg, p)
	if err != nil {
		return err
	}
	if err := p.FinalizeTraining(); err != nil {
		return err
	}

	// Fit the configured predictor once against the fresh training set so a
	// broken backend config fails here, not on the first predict run.
	if cfg.Predictor.Value != nil {
		examples, err := p.Examples()
		if err != nil {
			return err
		}
		model, err := cfg.Predictor.Value.Build()
		if err != nil {
			return err
		}
		if err := model.Train(ctx, examples); err != nil {
			model.Close()
			return err
		}
		model.Close()
		logx.Infof("main: predictor fitted | type=%s examples=%d",
			cfg.Predictor.Value.Type, len(examples))
	}

	snapshotPath := cfg.ResolveDataPath(cfg.SnapshotPath)
	if err := os.MkdirAll(filepath.Dir(snapshotPath), 0o755); err != nil {
		return fmt.Errorf("main: create snapshot dir: %w", err)
	}
	if err := p.SaveSnapshot(snapshotPath); err != nil {
		return err
	}
	logx.Infof("main: training complete | candles=%d snapshot=%s", candles, snapshotPath)

	db := store.New(cfg.Postgres)
	defer db.Close()
	return db.RecordTrainingRun(ctx, store.TrainingRun{
		StartedAt:     startedAt,
		FinishedAt:    time.Now(),
		Streams:       cfg.Pipeline.Value.Streams,
		Observations:  candles,
		SegmentsCount: cfg.Pipeline.Value.SegmentsCount,
		SnapshotPath:  snapshotPath,
	})
}

func runPredict(ctx context.Context, cfg *config.Config) error {
	if cfg.Predictor.Value == nil {
		return errors.New("main: predictor section is not configured")
	}

	p, err := cortex.New(cfg.Pipeline.Value)
	if err != nil {
		return err
	}
	defer p.Teardown()

	// Rebuild quantized history in memory so the predictor gets training
	// examples, then switch to the persisted snapshot for inference.
	p.PrepareTraining()
	if _, err := feedHistory(ctx, cfg, p); err != nil {
		return err
	}
	if err := p.FinalizeTraining(); err != nil {
		return err
	}
	examples, err := p.Examples()
	if err != nil {
		return err
	}

	snapshotPath := cfg.ResolveDataPath(cfg.SnapshotPath)
	if err := p.LoadSnapshot(snapshotPath); err != nil {
		return err
	}
	if _, err := feedHistory(ctx, cfg, p); err != nil {
		return err
	}

	model, err := cfg.Predictor.Value.Build()
	if err != nil {
		return err
	}
	defer model.Close()

	if err := model.Train(ctx, examples); err != nil {
		return err
	}

	input, ok := p.Input()
	if !ok {
		return errors.New("main: live window is not full, provide more history")
	}

	primary := cfg.Pipeline.Value.Primary
	rec := journal.Record{Stream: primary, Input: input, Success: true}
	if ref, ok := p.LastClose(primary); ok {
		rec.RefPrice = ref
	}

	prediction, err := model.Predict(ctx, input)
	if err == nil {
		rec.Prediction = prediction
		rec.Forecasts, err = p.Forecast(prediction)
	}
	if err != nil {
		rec.Success = false
		rec.ErrorMessage = err.Error()
	}
	for _, f := range rec.Forecasts {
		logx.Infof("main: forecast | stream=%s low=%.4f high=%.4f avg=%.4f",
			primary, f.Low, f.High, f.Avg)
	}

	if cfg.JournalDir != "" {
		w := journal.NewWriter(cfg.ResolveDataPath(cfg.JournalDir))
		if path, werr := w.Write(&rec); werr != nil {
			logx.Errorf("main: write journal: %v", werr)
		} else {
			logx.Infof("main: journal written | path=%s", path)
		}
	}

	db := store.New(cfg.Postgres)
	defer db.Close()
	if derr := db.RecordForecast(ctx, store.ForecastRecord{
		CreatedAt:    time.Now(),
		Stream:       primary,
		RefPrice:     rec.RefPrice,
		Prediction:   rec.Prediction,
		Forecasts:    rec.Forecasts,
		Success:      rec.Success,
		ErrorMessage: rec.ErrorMessage,
	}); derr != nil {
		logx.Errorf("main: record forecast: %v", derr)
	}

	return err
}
