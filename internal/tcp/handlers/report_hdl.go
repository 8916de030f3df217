package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/core/services/worker"
	"gitlab.com/steer-2025.net/internal/domain"
	"gitlab.com/steer-2025.net/internal/static/errs"
	"gitlab.com/steer-2025.net/internal/tcp/connectionmanager"
	"gitlab.com/steer-2025.net/internal/tcp/defs"
)

// ReportSink receives decoded worker reports, in arrival order
type ReportSink interface {
	DeliverReport(ctx context.Context, workerID int, report *domain.Message) error
}

var _ primary.MessageHandler = (*ReportHandler)(nil)

// ReportHandler handles report messages
type ReportHandler struct {
	Sink          ReportSink
	WorkerService worker.IWorkerRegistrationService
	Logger        primary.Logger
}

// HandleMessage implements the MessageHandler interface
func (h *ReportHandler) HandleMessage(ctx context.Context, conn net.Conn, payload []byte, workerID *int) error {
	if *workerID == 0 {
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeNotRegistered, "Worker not registered")
		return fmt.Errorf("%w: report before registration", errs.ErrProtocol)
	}

	report := domain.NewMessage()
	if err := json.Unmarshal(payload, report); err != nil {
		h.Logger.Error("Failed to parse report", "workerID", *workerID, "error", err)
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeInvalidReport, "Invalid report data")
		return err
	}

	if err := h.WorkerService.Heartbeat(ctx, *workerID); err != nil {
		h.Logger.Warn("Failed to refresh worker presence", "workerID", *workerID, "error", err)
	}

	status, _ := report.GetString(domain.FieldStatus)
	h.Logger.Debug("Report received", "workerID", *workerID, "status", status, "fields", report.Len())
	return h.Sink.DeliverReport(ctx, *workerID, report)
}
