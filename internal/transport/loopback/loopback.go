// Package loopback connects the master scheduler to worker loops living in
// the same goroutine. Sending a command runs the worker state machine
// synchronously and queues its report for the next receive.
package loopback

import (
	"context"
	"fmt"
	"sort"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/core/services/worker"
	"gitlab.com/steer-2025.net/internal/domain"
	"gitlab.com/steer-2025.net/internal/static/errs"
)

var _ primary.MasterTransport = (*Link)(nil)

type pending struct {
	workerID int
	report   *domain.Message
}

// Link is a MasterTransport over in-process worker loops
type Link struct {
	loops  map[int]*worker.Loop
	queue  []pending
	closed bool
}

// NewLink queues the hello report of every loop, in ascending worker id
func NewLink(loops ...*worker.Loop) *Link {
	l := &Link{loops: make(map[int]*worker.Loop, len(loops))}
	sort.Slice(loops, func(i, j int) bool { return loops[i].ID < loops[j].ID })
	for _, loop := range loops {
		l.loops[loop.ID] = loop
		l.queue = append(l.queue, pending{workerID: loop.ID, report: loop.Hello()})
	}
	return l
}

// Pending returns the number of queued reports
func (l *Link) Pending() int {
	return len(l.queue)
}

// SendCommand hands a copy of msg to the worker and runs it to completion
func (l *Link) SendCommand(ctx context.Context, workerID int, msg *domain.Message) error {
	if l.closed {
		return fmt.Errorf("%w: link closed", errs.ErrTransport)
	}
	loop, ok := l.loops[workerID]
	if !ok {
		return fmt.Errorf("%w: no worker %d on this link", errs.ErrTransport, workerID)
	}
	report, _, err := loop.Handle(ctx, msg.Clone())
	if err != nil {
		return err
	}
	l.queue = append(l.queue, pending{workerID: workerID, report: report})
	return nil
}

// RecvReport pops the oldest queued report. An empty queue means every
// worker waits for a command and nothing could ever arrive.
func (l *Link) RecvReport(ctx context.Context) (int, *domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, fmt.Errorf("%w: %w", errs.ErrTransport, err)
	}
	if l.closed {
		return 0, nil, fmt.Errorf("%w: link closed", errs.ErrTransport)
	}
	if len(l.queue) == 0 {
		return 0, nil, fmt.Errorf("%w: no report pending, every worker is parked or idle", errs.ErrProtocol)
	}
	next := l.queue[0]
	l.queue[0] = pending{}
	l.queue = l.queue[1:]
	return next.workerID, next.report, nil
}

func (l *Link) Close() error {
	l.closed = true
	l.queue = nil
	return nil
}
