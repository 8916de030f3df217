package schedule

import (
	"context"
	"errors"
	"sync"

	"gitlab.com/steer-2025.net/internal/config"
	"gitlab.com/steer-2025.net/internal/domain"
)

var errNothingToReceive = errors.New("no report queued")

type queuedReport struct {
	workerID int
	report   *domain.Message
}

type sentCommand struct {
	workerID int
	name     string
}

// scriptedTransport queues reports up front and lets onSend react to
// every transmitted command, typically by queuing the worker's next report.
type scriptedTransport struct {
	queue  []queuedReport
	sent   []sentCommand
	recvs  int
	onSend func(t *scriptedTransport, workerID int, command *domain.Message)
}

func (t *scriptedTransport) push(workerID int, report *domain.Message) {
	t.queue = append(t.queue, queuedReport{workerID: workerID, report: report})
}

func (t *scriptedTransport) SendCommand(_ context.Context, workerID int, msg *domain.Message) error {
	name, _ := msg.GetString(domain.FieldCommand)
	t.sent = append(t.sent, sentCommand{workerID: workerID, name: name})
	if t.onSend != nil {
		t.onSend(t, workerID, msg.Clone())
	}
	return nil
}

func (t *scriptedTransport) RecvReport(context.Context) (int, *domain.Message, error) {
	t.recvs++
	if len(t.queue) == 0 {
		return 0, nil, errNothingToReceive
	}
	next := t.queue[0]
	t.queue = t.queue[1:]
	return next.workerID, next.report, nil
}

func (t *scriptedTransport) Close() error { return nil }

// finalReport is what a worker sends after executing its shutdown command
func finalReport(workerID int) *domain.Message {
	return domain.NewMessage().
		SetInt(domain.FieldWorkerID, int64(workerID)).
		SetString(domain.FieldStatus, "stopped")
}

// replyOnSend answers every command like a cooperative worker would
func replyOnSend(t *scriptedTransport, workerID int, command *domain.Message) {
	name, _ := command.GetString(domain.FieldCommand)
	if name == domain.CommandShutdown {
		t.push(workerID, finalReport(workerID))
		return
	}
	t.push(workerID, domain.NewMessage().
		SetInt(domain.FieldWorkerID, int64(workerID)).
		SetString(domain.FieldStatus, "done"))
}

// funcDecision steers with a plain function and remembers what it saw
type funcDecision struct {
	steer   func(report *domain.Message) (*domain.Message, error)
	steered []string
}

func (d *funcDecision) Init(context.Context, *config.StrategyConfig, int) error { return nil }

func (d *funcDecision) Steer(_ context.Context, report *domain.Message) (*domain.Message, error) {
	status, _ := report.GetString(domain.FieldStatus)
	d.steered = append(d.steered, status)
	return d.steer(report)
}

func (d *funcDecision) Finalize(context.Context) error { return nil }

type memoryRecorder struct {
	mu        sync.Mutex
	exchanges []*domain.Exchange
	err       error
}

func (r *memoryRecorder) RecordExchange(_ context.Context, exchange *domain.Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exchanges = append(r.exchanges, exchange)
	return r.err
}

// stallingRecorder holds every write until release is closed or the
// write's context ends
type stallingRecorder struct {
	mu      sync.Mutex
	release chan struct{}
	written int
	expired int
}

func (r *stallingRecorder) RecordExchange(ctx context.Context, _ *domain.Exchange) error {
	select {
	case <-r.release:
		r.mu.Lock()
		r.written++
		r.mu.Unlock()
		return nil
	case <-ctx.Done():
		r.mu.Lock()
		r.expired++
		r.mu.Unlock()
		return ctx.Err()
	}
}

func (r *stallingRecorder) counts() (written, expired int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written, r.expired
}

func workerOf(report *domain.Message) int {
	id, _ := report.GetInt(domain.FieldWorkerID)
	return int(id)
}

func statusOf(report *domain.Message) string {
	status, _ := report.GetString(domain.FieldStatus)
	return status
}
