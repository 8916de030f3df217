package worker

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/core/ports/secondary"
	"gitlab.com/steer-2025.net/internal/domain"
)

var _ IWorkerRegistrationService = &WorkerRegistrationService{}

// heartbeatThreshold is how long a worker may stay silent and still count as active
const heartbeatThreshold = 2 * time.Minute

// WorkerRegistrationService implements the WorkerRegistrationService interface
type WorkerRegistrationService struct {
	runID      string
	workerRepo secondary.WorkerRepository
	logger     primary.Logger
}

// NewWorkerRegistrationService creates a new worker registration service
func NewWorkerRegistrationService(runID string, workerRepo secondary.WorkerRepository, logger primary.Logger) *WorkerRegistrationService {
	return &WorkerRegistrationService{
		runID:      runID,
		workerRepo: workerRepo,
		logger:     logger,
	}
}

func (s *WorkerRegistrationService) GetAllWorkers(ctx context.Context) ([]*domain.WorkerInfo, error) {
	s.logger.Debug("Getting all workers")

	// Get all workers from the repository
	workers, err := s.workerRepo.GetAllWorkers(ctx, s.runID)
	if err != nil {
		s.logger.Error("Failed to get all workers", "error", err)
		return nil, fmt.Errorf("failed to get all workers: %w", err)
	}

	// Add status information
	threshold := time.Now().Add(-heartbeatThreshold)
	for _, worker := range workers {
		worker.IsActive = !worker.Stopped && worker.LastHeartbeat.After(threshold)
	}

	return workers, nil
}

// RegisterWorker records a worker connected to the master
func (s *WorkerRegistrationService) RegisterWorker(ctx context.Context, workerInfo *domain.WorkerInfo) error {
	s.logger.Info("Registering worker", "workerId", workerInfo.ID, "ip", workerInfo.IpAddress)

	now := time.Now()
	workerInfo.RunID = s.runID
	workerInfo.ConnectedAt = now
	workerInfo.LastHeartbeat = now

	// Save worker information
	if err := s.workerRepo.SaveWorker(ctx, workerInfo); err != nil {
		s.logger.Error("Failed to save worker", "error", err)
		return fmt.Errorf("failed to register worker: %w", err)
	}

	return nil
}

// Heartbeat updates the worker's last report time
func (s *WorkerRegistrationService) Heartbeat(ctx context.Context, workerID int) error {
	return s.update(ctx, workerID, func(w *domain.WorkerInfo) {
		w.LastHeartbeat = time.Now()
	})
}

// MarkStopped flags the worker as shut down
func (s *WorkerRegistrationService) MarkStopped(ctx context.Context, workerID int) error {
	return s.update(ctx, workerID, func(w *domain.WorkerInfo) {
		w.Stopped = true
	})
}

// Disconnect removes the worker from the presence index
func (s *WorkerRegistrationService) Disconnect(ctx context.Context, workerID int) error {
	s.logger.Info("Worker disconnected", "workerId", workerID)
	if err := s.workerRepo.RemoveWorker(ctx, s.runID, workerID); err != nil {
		s.logger.Error("Failed to remove worker", "workerId", workerID, "error", err)
		return fmt.Errorf("failed to remove worker: %w", err)
	}
	return nil
}

// RefreshPresence extends the expiration of every known worker
func (s *WorkerRegistrationService) RefreshPresence(ctx context.Context) error {
	workers, err := s.workerRepo.GetAllWorkers(ctx, s.runID)
	if err != nil {
		return fmt.Errorf("failed to list workers: %w", err)
	}
	for _, w := range workers {
		if err := s.workerRepo.Touch(ctx, s.runID, w.ID); err != nil {
			s.logger.Error("Failed to refresh worker presence", "workerId", w.ID, "error", err)
		}
	}
	return nil
}

func (s *WorkerRegistrationService) update(ctx context.Context, workerID int, apply func(*domain.WorkerInfo)) error {
	// Retrieve the worker to ensure it exists
	worker, err := s.workerRepo.GetWorker(ctx, s.runID, workerID)
	if err != nil {
		s.logger.Error("Failed to get worker", "workerId", workerID, "error", err)
		return fmt.Errorf("failed to get worker: %w", err)
	}

	if worker == nil {
		return fmt.Errorf("worker not found: %d", workerID)
	}

	apply(worker)

	if err := s.workerRepo.SaveWorker(ctx, worker); err != nil {
		s.logger.Error("Failed to update worker", "workerId", workerID, "error", err)
		return fmt.Errorf("failed to update worker: %w", err)
	}

	return nil
}
