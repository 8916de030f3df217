package exchangerepository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/steer-2025.net/internal/domain"
)

func TestMarshalMessage(t *testing.T) {
	raw, err := marshalMessage(nil)
	require.NoError(t, err)
	assert.Nil(t, raw, "nil message stays NULL")

	raw, err = marshalMessage(domain.NewCommand("evaluate").SetFloats("x", []float64{1, 2}))
	require.NoError(t, err)
	text, ok := raw.(string)
	require.True(t, ok, "jsonb columns are sent as text")
	assert.JSONEq(t, `[
		{"key":"command","kind":"string","value":"evaluate"},
		{"key":"x","kind":"float[]","value":[1,2]}
	]`, text)
}

func TestExchangeRow_ToDomain(t *testing.T) {
	report, err := marshalMessage(domain.NewHello(2))
	require.NoError(t, err)
	runID := uuid.New()
	now := time.Now()

	row := exchangeRow{
		RunID:        runID,
		Seq:          3,
		WorkerID:     2,
		ReportStatus: domain.StatusInitialHello,
		Synthetic:    true,
		Report:       []byte(report.(string)),
		CreatedAt:    now,
	}

	exchange, err := row.toDomain()
	require.NoError(t, err)
	assert.Equal(t, runID, exchange.RunID)
	assert.Equal(t, int64(3), exchange.Seq)
	assert.True(t, exchange.Synthetic)
	assert.Nil(t, exchange.Reply)
	id, err := exchange.Report.GetInt(domain.FieldWorkerID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	row.Reply = []byte(`{"not":"a message"}`)
	_, err = row.toDomain()
	assert.Error(t, err)
}

// warnLogger keeps the warning messages
type warnLogger struct {
	warnings []string
}

func (l *warnLogger) Info(string, ...interface{})  {}
func (l *warnLogger) Error(string, ...interface{}) {}
func (l *warnLogger) Debug(string, ...interface{}) {}
func (l *warnLogger) Warn(msg string, _ ...interface{}) {
	l.warnings = append(l.warnings, msg)
}

func newMockRepository(t *testing.T) (*ExchangeRepository, sqlmock.Sqlmock, *warnLogger) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	logger := &warnLogger{}
	return NewExchangeRepository(sqlx.NewDb(db, "postgres"), logger), mock, logger
}

var journalColumns = []string{
	"run_id", "incarnation", "seq", "worker_id", "report_status", "command", "synthetic", "report", "reply", "created_at",
}

func TestExchangeRepository_EnsureSchema(t *testing.T) {
	repo, mock, _ := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta("PRIMARY KEY (run_id, incarnation, seq)")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
}

func TestExchangeRepository_RecordExchange(t *testing.T) {
	repo, mock, logger := newMockRepository(t)
	exchange := &domain.Exchange{
		RunID:        uuid.New(),
		Incarnation:  uuid.New(),
		Seq:          4,
		WorkerID:     2,
		ReportStatus: "done",
		Command:      domain.CommandShutdown,
		Report:       domain.NewMessage().SetString(domain.FieldStatus, "done"),
		Reply:        domain.NewCommand(domain.CommandShutdown),
		CreatedAt:    time.Now(),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO exchanges")).
		WithArgs(exchange.RunID.String(), exchange.Incarnation.String(), int64(4), int64(2), "done",
			domain.CommandShutdown, false, sqlmock.AnyArg(), sqlmock.AnyArg(), exchange.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.RecordExchange(context.Background(), exchange))
	assert.Empty(t, logger.warnings)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (run_id, incarnation, seq) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.RecordExchange(context.Background(), exchange))
	assert.Equal(t, []string{"Exchange already journaled, row kept"}, logger.warnings)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO exchanges")).
		WillReturnError(errors.New("connection reset"))
	assert.Error(t, repo.RecordExchange(context.Background(), exchange))
}

func TestExchangeRepository_ListExchanges(t *testing.T) {
	repo, mock, _ := newMockRepository(t)
	runID, incarnation := uuid.New(), uuid.New()
	now := time.Now()
	hello, err := marshalMessage(domain.NewHello(1))
	require.NoError(t, err)
	reply, err := marshalMessage(domain.NewCommand(domain.CommandWait))
	require.NoError(t, err)

	rows := sqlmock.NewRows(journalColumns).
		AddRow(runID.String(), incarnation.String(), int64(1), int64(1), domain.StatusInitialHello, domain.CommandWait, false,
			[]byte(hello.(string)), []byte(reply.(string)), now).
		AddRow(runID.String(), incarnation.String(), int64(2), int64(1), domain.StatusWaitDone, "", true,
			[]byte(hello.(string)), nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM exchanges")).
		WithArgs(runID.String(), 10).
		WillReturnRows(rows)

	exchanges, err := repo.ListExchanges(context.Background(), runID, 10)
	require.NoError(t, err)
	require.Len(t, exchanges, 2)
	assert.Equal(t, incarnation, exchanges[0].Incarnation)
	assert.Equal(t, domain.CommandWait, exchanges[0].Command)
	name, err := domain.CommandName(exchanges[0].Reply)
	require.NoError(t, err)
	assert.Equal(t, domain.CommandWait, name)
	assert.True(t, exchanges[1].Synthetic)
	assert.Nil(t, exchanges[1].Reply)

	mock.ExpectQuery(regexp.QuoteMeta("FROM exchanges")).
		WillReturnError(errors.New("relation does not exist"))
	_, err = repo.ListExchanges(context.Background(), runID, 10)
	assert.Error(t, err)
}

func TestExchangeRepository_CountByCommand(t *testing.T) {
	repo, mock, _ := newMockRepository(t)
	runID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY command")).
		WithArgs(runID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"command", "total"}).
			AddRow("evaluate", int64(12)).
			AddRow(domain.CommandWait, int64(3)).
			AddRow(domain.CommandShutdown, int64(2)))

	counts, err := repo.CountByCommand(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"evaluate": 12, domain.CommandWait: 3, domain.CommandShutdown: 2}, counts)
}
