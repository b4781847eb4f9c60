package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xdoubleu/essentia/v2/pkg/logging"
	"calsync.casaflow.app/internal/models"
	"calsync.casaflow.app/internal/services"
)

// SyncJob periodically syncs every registered feed. Feeds are processed
// one at a time and a failing feed never stops the others.
type SyncJob struct {
	feedService *services.FeedService
	syncService *services.SyncService
	stateStore  services.StateStore
	interval    time.Duration
	staleGrace  time.Duration
}

func NewSyncJob(
	feedService *services.FeedService,
	syncService *services.SyncService,
	stateStore services.StateStore,
	interval time.Duration,
	staleGrace time.Duration,
) SyncJob {
	return SyncJob{
		feedService: feedService,
		syncService: syncService,
		stateStore:  stateStore,
		interval:    interval,
		staleGrace:  staleGrace,
	}
}

func (j SyncJob) ID() string {
	return "calsync"
}

func (j SyncJob) RunEvery() time.Duration {
	return j.interval
}

func (j SyncJob) Run(ctx context.Context, logger *slog.Logger) error {
	regs, err := j.feedService.GetAllRegistrations(ctx)
	if err != nil {
		return err
	}

	logger.Debug(fmt.Sprintf("syncing %d feeds", len(regs)))

	for _, reg := range regs {
		if j.skipOverlappingRun(ctx, logger, reg.ID) {
			continue
		}

		report, syncErr := j.syncService.SyncFeed(ctx, reg)
		if syncErr != nil {
			// Terminal state is already recorded; move on to the next feed.
			logger.Error("feed sync failed",
				slog.String("icalUrlId", reg.ID),
				logging.ErrAttr(syncErr),
			)
			continue
		}

		logger.Debug(fmt.Sprintf(
			"synced feed %s: %d processed, %d created, %d updated, %d skipped",
			reg.ID,
			report.Processed,
			report.Created,
			report.Updated,
			report.Skipped,
		))
	}

	return nil
}

// skipOverlappingRun backs off while a manual "sync now" is still in
// flight. A "running" state older than the grace period is treated as a
// crashed run and re-synced anyway.
func (j SyncJob) skipOverlappingRun(
	ctx context.Context,
	logger *slog.Logger,
	icalURLID string,
) bool {
	state, err := j.stateStore.Get(ctx, icalURLID)
	if err != nil {
		// No state yet or unreadable: just sync.
		return false
	}

	if state.LastSyncStatus != models.SyncStatusRunning {
		return false
	}

	if state.IsStaleRunning(time.Now(), j.staleGrace) {
		logger.Warn("re-syncing feed stuck in running state",
			slog.String("icalUrlId", icalURLID))
		return false
	}

	return true
}
