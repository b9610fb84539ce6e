package logging

import (
	"log/slog"

	"chatrelay/internal/core/domain"
)

// Domain identifiers

func Identity(id domain.Identity) slog.Attr {
	return slog.String("user_id", id.String())
}

func Target(id domain.Identity) slog.Attr {
	return slog.String("target_id", id.String())
}

func Connection(id domain.ConnectionID) slog.Attr {
	return slog.String("conn_id", id.String())
}

// Request / tracing

func TraceID(id string) slog.Attr {
	return slog.String("trace_id", id)
}

func SpanID(id string) slog.Attr {
	return slog.String("span_id", id)
}

// Error handling

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
