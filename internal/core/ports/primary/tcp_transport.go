package primary

import (
	"context"
	"net"

	"gitlab.com/steer-2025.net/internal/domain"
)

// MessageHandler defines an interface for handling different frame types
type MessageHandler interface {
	HandleMessage(ctx context.Context, conn net.Conn, payload []byte, workerID *int) error
}

// MessagePublisher writes an outgoing frame to a registered worker
type MessagePublisher interface {
	PublishMessage(ctx context.Context, conn net.Conn, payload []byte, w domain.WorkerInfo) error
}
