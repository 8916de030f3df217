package schedule

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/core/ports/secondary"
	"gitlab.com/steer-2025.net/internal/domain"
)

const (
	defaultJournalBuffer  = 1024
	defaultJournalTimeout = 5 * time.Second
)

// journal writes exchanges to the recorder from its own goroutine. push
// never blocks: a full buffer drops the exchange, and every write is
// bounded by timeout.
type journal struct {
	recorder secondary.ExchangeRecorder
	logger   primary.Logger
	timeout  time.Duration

	queue   chan *domain.Exchange
	done    chan struct{}
	closed  bool
	dropped int64
}

func newJournal(recorder secondary.ExchangeRecorder, logger primary.Logger, buffer int, timeout time.Duration) *journal {
	if buffer <= 0 {
		buffer = defaultJournalBuffer
	}
	if timeout <= 0 {
		timeout = defaultJournalTimeout
	}
	j := &journal{
		recorder: recorder,
		logger:   logger,
		timeout:  timeout,
		queue:    make(chan *domain.Exchange, buffer),
		done:     make(chan struct{}),
	}
	go j.run()
	return j
}

func (j *journal) run() {
	defer close(j.done)
	for exchange := range j.queue {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		err := j.recorder.RecordExchange(ctx, exchange)
		cancel()
		if err != nil {
			j.logger.Warn("Failed to record exchange", "workerID", exchange.WorkerID, "seq", exchange.Seq, "error", err)
		}
	}
}

func (j *journal) push(exchange *domain.Exchange) {
	if j.closed {
		return
	}
	select {
	case j.queue <- exchange:
	default:
		j.dropped++
		j.logger.Warn("Exchange journal full, dropping exchange",
			"workerID", exchange.WorkerID, "seq", exchange.Seq, "dropped", j.dropped)
	}
}

// close stops accepting exchanges and waits until the queued ones are
// written or ctx ends.
func (j *journal) close(ctx context.Context) error {
	if !j.closed {
		j.closed = true
		close(j.queue)
	}
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("exchange journal not drained: %w", ctx.Err())
	}
}
