// Package exchangerepository journals steering decisions in PostgreSQL
package exchangerepository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/core/ports/secondary"
	"gitlab.com/steer-2025.net/internal/domain"
)

var _ secondary.ExchangeRepository = (*ExchangeRepository)(nil)

const schema = `
	CREATE TABLE IF NOT EXISTS exchanges (
		run_id        UUID        NOT NULL,
		incarnation   UUID        NOT NULL,
		seq           BIGINT      NOT NULL,
		worker_id     INTEGER     NOT NULL,
		report_status TEXT        NOT NULL DEFAULT '',
		command       TEXT        NOT NULL DEFAULT '',
		synthetic     BOOLEAN     NOT NULL DEFAULT FALSE,
		report        JSONB,
		reply         JSONB,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (run_id, incarnation, seq)
	)
`

// ExchangeRepository implements the ExchangeRepository interface with PostgreSQL
type ExchangeRepository struct {
	db     *sqlx.DB
	logger primary.Logger
}

// exchangeRow is the scan target of a journal row
type exchangeRow struct {
	RunID        uuid.UUID `db:"run_id"`
	Incarnation  uuid.UUID `db:"incarnation"`
	Seq          int64     `db:"seq"`
	WorkerID     int       `db:"worker_id"`
	ReportStatus string    `db:"report_status"`
	Command      string    `db:"command"`
	Synthetic    bool      `db:"synthetic"`
	Report       []byte    `db:"report"`
	Reply        []byte    `db:"reply"`
	CreatedAt    time.Time `db:"created_at"`
}

// NewExchangeRepository creates a new PostgreSQL exchange repository
func NewExchangeRepository(db *sqlx.DB, logger primary.Logger) *ExchangeRepository {
	return &ExchangeRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the exchanges table when it does not exist
func (r *ExchangeRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		r.logger.Error("Failed to create exchanges table", "error", err)
		return fmt.Errorf("failed to create exchanges table: %w", err)
	}
	return nil
}

// RecordExchange saves one steering decision
func (r *ExchangeRepository) RecordExchange(ctx context.Context, exchange *domain.Exchange) error {
	reportJSON, err := marshalMessage(exchange.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	replyJSON, err := marshalMessage(exchange.Reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}

	query := `
		INSERT INTO exchanges (
			run_id, incarnation, seq, worker_id, report_status, command, synthetic, report, reply, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id, incarnation, seq) DO NOTHING
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		exchange.RunID,
		exchange.Incarnation,
		exchange.Seq,
		exchange.WorkerID,
		exchange.ReportStatus,
		exchange.Command,
		exchange.Synthetic,
		reportJSON,
		replyJSON,
		exchange.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save exchange", "seq", exchange.Seq, "error", err)
		return fmt.Errorf("failed to save exchange: %w", err)
	}
	if inserted, err := result.RowsAffected(); err == nil && inserted == 0 {
		r.logger.Warn("Exchange already journaled, row kept",
			"runId", exchange.RunID, "incarnation", exchange.Incarnation, "seq", exchange.Seq)
	}

	return nil
}

// ListExchanges retrieves the journal of a run
func (r *ExchangeRepository) ListExchanges(ctx context.Context, runID uuid.UUID, limit int) ([]*domain.Exchange, error) {
	query := `
		SELECT run_id, incarnation, seq, worker_id, report_status, command, synthetic, report, reply, created_at
		FROM exchanges
		WHERE run_id = $1
		ORDER BY created_at ASC, seq ASC
		LIMIT $2
	`

	var rows []exchangeRow
	if err := r.db.SelectContext(ctx, &rows, query, runID, limit); err != nil {
		r.logger.Error("Failed to list exchanges", "runId", runID, "error", err)
		return nil, fmt.Errorf("failed to list exchanges: %w", err)
	}

	exchanges := make([]*domain.Exchange, 0, len(rows))
	for _, row := range rows {
		exchange, err := row.toDomain()
		if err != nil {
			r.logger.Error("Failed to decode exchange", "seq", row.Seq, "error", err)
			return nil, err
		}
		exchanges = append(exchanges, exchange)
	}
	return exchanges, nil
}

// CountByCommand returns how many decisions of each command a run took
func (r *ExchangeRepository) CountByCommand(ctx context.Context, runID uuid.UUID) (map[string]int, error) {
	query := `
		SELECT command, COUNT(*) AS total
		FROM exchanges
		WHERE run_id = $1
		GROUP BY command
	`

	rows, err := r.db.QueryxContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count exchanges: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var command string
		var total int
		if err := rows.Scan(&command, &total); err != nil {
			return nil, fmt.Errorf("failed to scan exchange count: %w", err)
		}
		counts[command] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exchange counts: %w", err)
	}
	return counts, nil
}

func (row exchangeRow) toDomain() (*domain.Exchange, error) {
	exchange := &domain.Exchange{
		RunID:        row.RunID,
		Incarnation:  row.Incarnation,
		Seq:          row.Seq,
		WorkerID:     row.WorkerID,
		ReportStatus: row.ReportStatus,
		Command:      row.Command,
		Synthetic:    row.Synthetic,
		CreatedAt:    row.CreatedAt,
	}
	var err error
	if exchange.Report, err = unmarshalMessage(row.Report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	if exchange.Reply, err = unmarshalMessage(row.Reply); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reply: %w", err)
	}
	return exchange, nil
}

// marshalMessage encodes msg as a JSON string, lib/pq would send []byte
// as bytea. A nil message leaves the column NULL.
func marshalMessage(msg *domain.Message) (interface{}, error) {
	if msg == nil {
		return nil, nil
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func unmarshalMessage(raw []byte) (*domain.Message, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	msg := domain.NewMessage()
	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
