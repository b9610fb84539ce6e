package logger

import (
	"log/slog"
	"os"

	"chatrelay/internal/config"
	"chatrelay/pkg/logging"
)

func NewLogger(cfg config.Config) *slog.Logger {
	level := logging.ParseLevel(cfg.Logger.Level)
	handler := logging.NewHandler(os.Stdout, level, cfg.Logger.Format)
	logger := slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("env", cfg.Service.Env),
		slog.String("address", cfg.Service.Addr),
		slog.Int("pid", os.Getpid()),
	)
	slog.SetDefault(logger)
	return logger
}
