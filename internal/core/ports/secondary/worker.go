package secondary

import (
	"context"

	"gitlab.com/steer-2025.net/internal/domain"
)

type WorkerRepository interface {
	// SaveWorker saves worker presence information
	SaveWorker(ctx context.Context, worker *domain.WorkerInfo) error

	// GetWorker retrieves worker information by ID
	GetWorker(ctx context.Context, runID string, workerID int) (*domain.WorkerInfo, error)

	// GetAllWorkers retrieves every worker known for a run
	GetAllWorkers(ctx context.Context, runID string) ([]*domain.WorkerInfo, error)

	// RemoveWorker drops a worker from the presence index
	RemoveWorker(ctx context.Context, runID string, workerID int) error

	// Touch extends the expiration of a worker's presence record
	Touch(ctx context.Context, runID string, workerID int) error
}

// ParticipantRegistry hands out participant indices and publishes the
// master address so that processes of one run can find each other.
type ParticipantRegistry interface {
	// ClaimMaster takes participant index 0 of the run. It reports false
	// when another process already holds it.
	ClaimMaster(ctx context.Context, runID string) (bool, error)

	// ClaimIndex returns the next unused worker participant index of the
	// run. Worker indices start at 1; index 0 is only taken by ClaimMaster.
	ClaimIndex(ctx context.Context, runID string) (int, error)

	// PublishMaster records the address workers should dial
	PublishMaster(ctx context.Context, runID string, addr string) error

	// LookupMaster waits until the master address is published or ctx ends
	LookupMaster(ctx context.Context, runID string) (string, error)
}
