// Package workers holds the background loops: retention, dedup and
// presence pruning all run on one janitor ticker.
package workers

import (
	"context"
	"time"

	"commhub/internal/logger"
	"commhub/internal/presence"
	"commhub/internal/services"
)

// JanitorWorker ages notification records out and prunes stale presence
// entries on a fixed interval. Every pass is idempotent, so an aborted
// run is finished by the next one.
type JanitorWorker struct {
	cleanup  *services.CleanupService
	dedup    *services.DedupService
	memory   *presence.MemoryStore // nil when presence is Redis-backed (TTL handles it)
	interval time.Duration

	dedupWindow     time.Duration
	conversationTTL time.Duration
	globalTTL       time.Duration
}

func NewJanitorWorker(
	cleanup *services.CleanupService,
	dedup *services.DedupService,
	memory *presence.MemoryStore,
	interval time.Duration,
	dedupWindow time.Duration,
	conversationTTL, globalTTL time.Duration,
) *JanitorWorker {
	return &JanitorWorker{
		cleanup:         cleanup,
		dedup:           dedup,
		memory:          memory,
		interval:        interval,
		dedupWindow:     dedupWindow,
		conversationTTL: conversationTTL,
		globalTTL:       globalTTL,
	}
}

// Start runs the loop until ctx is cancelled. One pass runs immediately.
func (w *JanitorWorker) Start(ctx context.Context) {
	logger.Info("janitor worker started", "interval", w.interval.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce()
	for {
		select {
		case <-ctx.Done():
			logger.Info("janitor worker stopped")
			return
		case <-ticker.C:
			w.runOnce()
		}
	}
}

func (w *JanitorWorker) runOnce() {
	result, err := w.cleanup.Run(services.CleanupOptions{IncludeAdvanced: true})
	logger.WorkerLog("janitor", "cleanup", err)
	if err == nil {
		total := result.Simple.Expired + result.Simple.DeletedRead + result.Simple.DeletedArchived +
			result.Advanced.Expired + result.Advanced.DeletedRead + result.Advanced.DeletedArchived
		if total > 0 {
			logger.Info("janitor cleanup touched records",
				"simple_expired", result.Simple.Expired,
				"simple_deleted_read", result.Simple.DeletedRead,
				"simple_deleted_archived", result.Simple.DeletedArchived,
				"advanced_expired", result.Advanced.Expired,
				"advanced_deleted_read", result.Advanced.DeletedRead,
				"advanced_deleted_archived", result.Advanced.DeletedArchived)
		}
	}

	_, err = w.dedup.Run(services.DedupOptions{
		Window:          w.dedupWindow,
		IncludeAdvanced: true,
	})
	logger.WorkerLog("janitor", "dedup", err)

	if w.memory != nil {
		w.memory.Prune(w.conversationTTL, w.globalTTL)
	}
}
