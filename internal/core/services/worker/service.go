package worker

import (
	"context"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/domain"
)

// ILoop is the worker side of the coordination protocol
type ILoop interface {
	// Hello builds the report that opens the exchange with the master
	Hello() *domain.Message

	// Handle executes a command and returns its report and the stop flag
	Handle(ctx context.Context, command *domain.Message) (*domain.Message, bool, error)

	// Run drives the loop over a transport until the job strategy stops it
	Run(ctx context.Context, transport primary.WorkerTransport) error

	State() State
}

// IWorkerRegistrationService defines the interface for worker presence on the master
type IWorkerRegistrationService interface {
	// RegisterWorker records a worker that connected to the master
	RegisterWorker(ctx context.Context, workerInfo *domain.WorkerInfo) error

	// Heartbeat refreshes the worker's presence after a report
	Heartbeat(ctx context.Context, workerID int) error

	// MarkStopped records that the worker was shut down
	MarkStopped(ctx context.Context, workerID int) error

	// Disconnect removes a worker whose connection closed
	Disconnect(ctx context.Context, workerID int) error

	// GetAllWorkers gets all registered workers of the run
	GetAllWorkers(ctx context.Context) ([]*domain.WorkerInfo, error)

	// RefreshPresence extends the expiration of every registered worker
	RefreshPresence(ctx context.Context) error
}
