package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatrelay/internal/app/hub"
	"chatrelay/internal/app/registry"
	"chatrelay/internal/app/server"
	"chatrelay/internal/app/server/ws"
	"chatrelay/internal/app/worker"
	"chatrelay/internal/config"
	"chatrelay/internal/core/services"
	"chatrelay/internal/platform/logger"
	"chatrelay/internal/platform/telemetry"
	redisPlugin "chatrelay/internal/plugins/redis"
)

func main() {
	if err := run(); err != nil {
		slog.Error("relay exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg, err := config.Load("relay")
	if err != nil {
		return err
	}

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
		otelShutdown = func(context.Context) error { return nil }
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Core
	presence := registry.NewRegistry()
	conns := hub.NewHub()
	relaySvc := services.NewRelayService(log, presence, conns)
	sessionSvc := services.NewSessionService(log, presence, conns, relaySvc)
	managerSvc := services.NewManagerService(log, sessionSvc, relaySvc)

	// Presence mirror (optional)
	rdb, err := redisPlugin.NewRedisClient(ctx, *cfg.Redis)
	switch {
	case errors.Is(err, redisPlugin.ErrDisabled):
		log.Info("redis not configured, presence mirror disabled")
	case err != nil:
		log.Error("redis connection failed", "url", cfg.Redis.URL, "err", err)
		return err
	default:
		defer rdb.Close()
		log.Info("redis connected")
		mirror := redisPlugin.NewRedisPresenceStore(rdb, cfg.Redis.PresenceKey)
		wrkr := worker.NewPresenceWorker(log, presence, mirror, cfg.Presence.SyncInterval, cfg.Presence.TTL)
		workerDone := make(chan struct{})
		go func() {
			defer close(workerDone)
			if err := wrkr.Run(ctx); err != nil {
				log.Error("presence worker stopped", "err", err)
			}
		}()
		// let the worker clear the mirror before redis is closed
		defer func() {
			stop()
			<-workerDone
		}()
	}

	// Server
	srv := server.NewServer(log, server.Options{
		Name:            cfg.Service.Name,
		Addr:            cfg.Service.Addr,
		ShutdownTimeout: cfg.Service.ShutdownTimeout,
		AllowedOrigins:  cfg.Transport.AllowedOrigins,
		Transport: ws.Options{
			ReadLimit:    cfg.Transport.ReadLimit,
			WriteTimeout: cfg.Transport.WriteTimeout,
			PongWait:     cfg.Transport.PongWait,
			PingInterval: cfg.Transport.PingInterval,
			SendBuffer:   cfg.Transport.SendBuffer,
		},
	}, presence, conns, sessionSvc, managerSvc)
	return srv.Start(ctx)
}
