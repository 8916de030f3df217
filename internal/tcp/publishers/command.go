package publishers

import (
	"context"
	"fmt"
	"net"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/core/services/worker"
	"gitlab.com/steer-2025.net/internal/domain"
	"gitlab.com/steer-2025.net/internal/static/errs"
	"gitlab.com/steer-2025.net/internal/tcp/connectionmanager"
	"gitlab.com/steer-2025.net/internal/tcp/defs"
)

var _ primary.MessagePublisher = (*CommandPublisher)(nil)

// CommandPublisher writes command frames to registered workers
type CommandPublisher struct {
	WorkerSvc     worker.IWorkerRegistrationService
	ConnectionMgr *connectionmanager.ConnectionManager
	Logger        primary.Logger
}

func NewCommandPublisher(
	workerSvc worker.IWorkerRegistrationService,
	connectionMgr *connectionmanager.ConnectionManager, logger primary.Logger,
) *CommandPublisher {
	return &CommandPublisher{
		WorkerSvc:     workerSvc,
		ConnectionMgr: connectionMgr,
		Logger:        logger,
	}
}

// PublishMessage sends an encoded command. A worker flagged Stopped is
// receiving its shutdown; its connection is marked before the write so
// the disconnect that follows counts as orderly.
func (p *CommandPublisher) PublishMessage(ctx context.Context, conn net.Conn, payload []byte, w domain.WorkerInfo) error {
	if w.Stopped {
		p.ConnectionMgr.MarkShutdown(w.ID)
	}

	if err := connectionmanager.SendMessage(conn, defs.MsgCommand, payload); err != nil {
		p.Logger.Error("Failed to send command", "workerID", w.ID, "error", err)
		return fmt.Errorf("%w: send command to worker %d: %w", errs.ErrTransport, w.ID, err)
	}

	if w.Stopped {
		if err := p.WorkerSvc.MarkStopped(ctx, w.ID); err != nil {
			p.Logger.Warn("Failed to mark worker stopped", "workerID", w.ID, "error", err)
		}
	}
	return nil
}
