package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/core/services/worker"
	"gitlab.com/steer-2025.net/internal/domain"
	"gitlab.com/steer-2025.net/internal/static/errs"
	"gitlab.com/steer-2025.net/internal/tcp/connectionmanager"
	"gitlab.com/steer-2025.net/internal/tcp/defs"
)

// Implementation of message handlers
// Each handler deals with one specific message type

var _ primary.MessageHandler = (*WorkerRegistrationHandler)(nil)

// WorkerRegistrationHandler handles worker registration messages
type WorkerRegistrationHandler struct {
	NWorkers      int
	RunID         string
	WorkerService worker.IWorkerRegistrationService
	Handshake     primary.HandshakeService
	ConnectionMgr *connectionmanager.ConnectionManager
	Logger        primary.Logger
}

// HandleMessage implements the MessageHandler interface
func (h *WorkerRegistrationHandler) HandleMessage(ctx context.Context, conn net.Conn, payload []byte, workerID *int) error {
	if *workerID != 0 {
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeInvalidRegistration, "Worker already registered")
		return fmt.Errorf("%w: worker %d registered twice", errs.ErrProtocol, *workerID)
	}

	var registerData defs.WorkerRegistrationData
	if err := json.Unmarshal(payload, &registerData); err != nil {
		h.Logger.Error("Failed to parse worker registration", "error", err)
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeInvalidRegistration, "Invalid registration data")
		return err
	}

	id := registerData.WorkerID
	h.Logger.Info("Worker registration received", "workerID", id, "hostname", registerData.Hostname)

	if id < 1 || id > h.NWorkers {
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeUnknownWorker, fmt.Sprintf("Worker id %d outside [1,%d]", id, h.NWorkers))
		return fmt.Errorf("%w: registration for unknown worker %d", errs.ErrProtocol, id)
	}

	if h.Handshake != nil && h.Handshake.Enabled() {
		tokenID, err := h.Handshake.VerifyWorkerToken(registerData.Token)
		if err != nil || tokenID != id {
			h.Logger.Warn("Rejected worker token", "workerID", id, "error", err)
			connectionmanager.SendErrorMessage(conn, defs.ErrCodeInvalidToken, "Invalid worker token")
			if err == nil {
				err = fmt.Errorf("%w: token issued for worker %d", errs.ErrInvalidToken, tokenID)
			}
			return err
		}
	}

	// Store worker ID and connection
	if err := h.ConnectionMgr.RegisterWorker(id, conn); err != nil {
		if errors.Is(err, connectionmanager.ErrDuplicateWorker) {
			connectionmanager.SendErrorMessage(conn, defs.ErrCodeDuplicateWorker, "Worker already connected")
		}
		return err
	}
	*workerID = id

	workerInfo := &domain.WorkerInfo{
		ID:        id,
		Hostname:  registerData.Hostname,
		IpAddress: remoteIP(conn),
	}
	if err := h.WorkerService.RegisterWorker(ctx, workerInfo); err != nil {
		// presence is informational; the connection stays usable
		h.Logger.Error("Failed to register worker", "workerID", id, "error", err)
	}

	ack, err := json.Marshal(defs.RegisterAckData{WorkerID: id, RunID: h.RunID})
	if err != nil {
		return err
	}
	if err := connectionmanager.SendMessage(conn, defs.MsgRegisterAck, ack); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrTransport, err)
	}

	h.Logger.Info(
		"Worker registered",
		"workerID", id,
		"hostname", registerData.Hostname,
		"ip address", workerInfo.IpAddress,
	)
	return nil
}

func remoteIP(conn net.Conn) string {
	addr := conn.RemoteAddr()
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
