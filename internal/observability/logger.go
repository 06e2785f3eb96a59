package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Log *zap.Logger

	fallbackOnce sync.Once
)

type requestIDKey struct{}

// InitLogger builds the process-wide JSON logger. An unknown level falls back
// to info. Call it once from main before any goroutine logs.
func InitLogger(serviceName, level string) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if lvl, err := zapcore.ParseLevel(level); err == nil {
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := config.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	Log = logger.With(zap.String("service", serviceName))
}

// WithRequestID stores the request id GetLogger attaches to every entry.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// GetLogger returns Log enriched with the request id and the active span.
func GetLogger(ctx context.Context) *zap.Logger {
	fallbackOnce.Do(func() {
		if Log == nil {
			InitLogger("unknown", "info")
		}
	})

	logger := Log
	if id := RequestID(ctx); id != "" {
		logger = logger.With(zap.String("request_id", id))
	}

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		logger = logger.With(
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	return logger
}
