package primary

import (
	"context"

	"gitlab.com/steer-2025.net/internal/domain"
)

// WorkerTransport is the worker side of a master/worker channel. Both
// calls block until the master performs the matching operation. A
// successful send hands the message over: the caller clears it before
// reuse.
type WorkerTransport interface {
	SendToMaster(ctx context.Context, msg *domain.Message) error
	RecvFromMaster(ctx context.Context) (*domain.Message, error)
	Close() error
}

// MasterTransport is the master side of the channel. RecvReport blocks
// until any worker sends and returns the sender's id with its report.
type MasterTransport interface {
	SendCommand(ctx context.Context, workerID int, msg *domain.Message) error
	RecvReport(ctx context.Context) (int, *domain.Message, error)
	Close() error
}
