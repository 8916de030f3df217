package secondary

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/steer-2025.net/internal/domain"
)

// ExchangeRecorder journals steering decisions taken by the master.
type ExchangeRecorder interface {
	RecordExchange(ctx context.Context, exchange *domain.Exchange) error
}

type ExchangeRepository interface {
	ExchangeRecorder

	// EnsureSchema creates the journal table if it is missing
	EnsureSchema(ctx context.Context) error

	// ListExchanges returns the journal of a run ordered by sequence number
	ListExchanges(ctx context.Context, runID uuid.UUID, limit int) ([]*domain.Exchange, error)

	// CountByCommand aggregates the journal of a run per command name
	CountByCommand(ctx context.Context, runID uuid.UUID) (map[string]int, error)
}
