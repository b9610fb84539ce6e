package worker

import (
	"context"
	"log/slog"
	"time"

	"chatrelay/internal/core/contracts"
	"chatrelay/pkg/logging"
)

// PresenceWorker periodically copies the registry into the presence mirror.
// It never touches the registry beyond Snapshot, so the relay path stays free
// of network I/O.
type PresenceWorker struct {
	log      *slog.Logger
	registry contracts.PresenceRegistry
	mirror   contracts.PresenceMirror
	interval time.Duration
	ttl      time.Duration
}

var _ contracts.AsyncWorker = (*PresenceWorker)(nil)

func NewPresenceWorker(
	log *slog.Logger,
	registry contracts.PresenceRegistry,
	mirror contracts.PresenceMirror,
	interval, ttl time.Duration,
) *PresenceWorker {
	return &PresenceWorker{
		log:      log,
		registry: registry,
		mirror:   mirror,
		interval: interval,
		ttl:      ttl,
	}
}

func (w *PresenceWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.SyncOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			// ctx is already cancelled, clean up on a fresh one
			clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			if err := w.mirror.Clear(clearCtx); err != nil {
				w.log.Error("worker - presence - clear failed", logging.Err(err))
			}
			cancel()
			w.log.Info("worker - presence - stopped")
			return nil
		case <-ticker.C:
			w.SyncOnce(ctx)
		}
	}
}

// SyncOnce pushes the current snapshot. Failures are logged; the next tick retries.
func (w *PresenceWorker) SyncOnce(ctx context.Context) {
	entries := w.registry.Snapshot()
	if err := w.mirror.Sync(ctx, entries, w.ttl); err != nil {
		w.log.ErrorContext(ctx, "worker - presence - sync failed", slog.Int("online", len(entries)), logging.Err(err))
		return
	}
	w.log.DebugContext(ctx, "worker - presence - sync success", slog.Int("online", len(entries)))
}
