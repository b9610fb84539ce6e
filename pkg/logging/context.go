package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type loggerKeyType struct{}

var loggerKey = loggerKeyType{}

func WithContext(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the request scoped logger, falling back to the default
// one. Lines are tagged with the trace and span ids when ctx carries a valid
// span context.
func FromContext(ctx context.Context) *slog.Logger {
	log, ok := ctx.Value(loggerKey).(*slog.Logger)
	if !ok || log == nil {
		log = slog.Default()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		log = log.With(TraceID(sc.TraceID().String()), SpanID(sc.SpanID().String()))
	}
	return log
}
