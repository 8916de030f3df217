package schedulerengine

import (
	"context"
	"sync"
	"time"

	"gitlab.com/steer-2025.net/internal/config"
	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/core/services/worker"
	"gitlab.com/steer-2025.net/internal/domain"
)

// SnapshotSource is read periodically for progress logging
type SnapshotSource interface {
	Snapshot() domain.SchedulerSnapshot
}

// SchedulerEngine runs the master's background chores while the
// scheduler loop is busy: refreshing worker presence records and logging
// scheduler progress.
type SchedulerEngine struct {
	SchedulerCfg  *config.ScheduleSvcCfg
	workerService worker.IWorkerRegistrationService
	scheduler     SnapshotSource
	logger        primary.Logger
	wg            sync.WaitGroup
}

func NewSchedulerEngine(
	SchedulerCfg *config.ScheduleSvcCfg,
	workerService worker.IWorkerRegistrationService,
	scheduler SnapshotSource,
	logger primary.Logger,
) *SchedulerEngine {
	return &SchedulerEngine{
		SchedulerCfg:  SchedulerCfg,
		workerService: workerService,
		scheduler:     scheduler,
		logger:        logger,
	}
}

// Start launches the background loops; they end with ctx
func (s *SchedulerEngine) Start(ctx context.Context) {
	s.wg.Add(2)

	ticker := time.NewTicker(s.SchedulerCfg.PresenceInterval)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RefreshPresence(ctx)
			}
		}
	}()

	tickerSnapshot := time.NewTicker(s.SchedulerCfg.SnapshotInterval)
	go func() {
		defer s.wg.Done()
		defer tickerSnapshot.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tickerSnapshot.C:
				s.LogSnapshot()
			}
		}
	}()
}

// Wait blocks until the loops started by Start have returned
func (s *SchedulerEngine) Wait() {
	s.wg.Wait()
}

func (s *SchedulerEngine) RefreshPresence(ctx context.Context) {
	if err := s.workerService.RefreshPresence(ctx); err != nil {
		s.logger.Error("Failed to refresh worker presence", "error", err)
	}
}

func (s *SchedulerEngine) LogSnapshot() {
	snap := s.scheduler.Snapshot()
	s.logger.Info("Scheduler progress",
		"runId", snap.RunID,
		"slot", snap.Slot,
		"parked", snap.Parked,
		"shutdowns", snap.Shutdowns,
		"workers", snap.Workers,
		"steps", snap.Steps,
		"commandsSent", snap.CommandsSent,
	)
}
