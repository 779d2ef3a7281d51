package llm

import (
	"context"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"
)

// Logger wraps the logging behaviour used by the predictor client.
type Logger interface {
	Infof(ctx context.Context, format string, args ...any)
	Errorf(ctx context.Context, format string, args ...any)
}

type logxLogger struct{}

// NewLogger returns a Logger backed by go-zero's logx.
func NewLogger(level string) Logger {
	logx.SetLevel(parseLevel(level))
	return logxLogger{}
}

func (logxLogger) Infof(ctx context.Context, format string, args ...any) {
	logx.WithContext(ctx).Infof(format, args...)
}

func (logxLogger) Errorf(ctx context.Context, format string, args ...any) {
	logx.WithContext(ctx).Errorf(format, args...)
}

func parseLevel(level string) uint32 {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logx.DebugLevel
	case "error":
		return logx.ErrorLevel
	case "severe", "fatal":
		return logx.SevereLevel
	default:
		return logx.InfoLevel
	}
}
