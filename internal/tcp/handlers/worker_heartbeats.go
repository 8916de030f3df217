package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/core/services/worker"
	"gitlab.com/steer-2025.net/internal/static/errs"
	"gitlab.com/steer-2025.net/internal/tcp/connectionmanager"
	"gitlab.com/steer-2025.net/internal/tcp/defs"
)

var _ primary.MessageHandler = (*WorkerHeartbeatHandler)(nil)

// WorkerHeartbeatHandler handles worker heartbeat messages
type WorkerHeartbeatHandler struct {
	WorkerService worker.IWorkerRegistrationService
	Logger        primary.Logger
}

// HandleMessage implements the MessageHandler interface
func (h *WorkerHeartbeatHandler) HandleMessage(ctx context.Context, conn net.Conn, payload []byte, workerID *int) error {
	if *workerID == 0 {
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeNotRegistered, "Worker not registered")
		return fmt.Errorf("%w: heartbeat before registration", errs.ErrProtocol)
	}

	var heartbeatData defs.WorkerHeartbeatData
	if err := json.Unmarshal(payload, &heartbeatData); err != nil {
		h.Logger.Error("Failed to parse worker heartbeat", "error", err)
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeInvalidHeartbeat, "Invalid heartbeat data")
		return err
	}

	// Validate worker ID
	if heartbeatData.WorkerID != *workerID {
		h.Logger.Error("Worker ID mismatch in heartbeat", "expected", *workerID, "actual", heartbeatData.WorkerID)
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeInvalidHeartbeat, "Worker ID mismatch")
		return fmt.Errorf("%w: heartbeat for worker %d on connection of worker %d", errs.ErrProtocol, heartbeatData.WorkerID, *workerID)
	}

	if err := h.WorkerService.Heartbeat(ctx, *workerID); err != nil {
		h.Logger.Warn("Failed to update worker heartbeat", "workerID", *workerID, "error", err)
		return nil
	}

	h.Logger.Debug("Worker heartbeat received", "workerID", *workerID)
	return nil
}
