// Package chanbus connects a master and its workers running as goroutines
// of one process. Reports share a single unbuffered channel and arrive in
// the order workers manage to send them; each worker has its own command
// channel.
package chanbus

import (
	"context"
	"fmt"
	"sync"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/domain"
	"gitlab.com/steer-2025.net/internal/static/errs"
)

type envelope struct {
	workerID int
	msg      *domain.Message
}

// Bus carries messages between one master and nWorkers workers
type Bus struct {
	nWorkers  int
	reports   chan envelope
	commands  []chan *domain.Message
	done      chan struct{}
	closeOnce sync.Once
}

func NewBus(nWorkers int) *Bus {
	b := &Bus{
		nWorkers: nWorkers,
		reports:  make(chan envelope),
		commands: make([]chan *domain.Message, nWorkers+1),
		done:     make(chan struct{}),
	}
	for id := 1; id <= nWorkers; id++ {
		b.commands[id] = make(chan *domain.Message)
	}
	return b
}

// Master returns the master endpoint
func (b *Bus) Master() primary.MasterTransport {
	return &masterEnd{bus: b}
}

// Worker returns the endpoint of worker id
func (b *Bus) Worker(id int) (primary.WorkerTransport, error) {
	if id < 1 || id > b.nWorkers {
		return nil, fmt.Errorf("%w: no worker %d on a bus of %d", errs.ErrConfiguration, id, b.nWorkers)
	}
	return &workerEnd{bus: b, id: id}, nil
}

// Close unblocks every pending send and receive
func (b *Bus) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	return nil
}

func (b *Bus) closedErr() error {
	return fmt.Errorf("%w: bus closed", errs.ErrTransport)
}

type masterEnd struct {
	bus *Bus
}

func (m *masterEnd) SendCommand(ctx context.Context, workerID int, msg *domain.Message) error {
	if workerID < 1 || workerID > m.bus.nWorkers {
		return fmt.Errorf("%w: no worker %d on the bus", errs.ErrTransport, workerID)
	}
	select {
	case m.bus.commands[workerID] <- msg.Clone():
		return nil
	case <-m.bus.done:
		return m.bus.closedErr()
	case <-ctx.Done():
		return fmt.Errorf("%w: send command: %w", errs.ErrTransport, ctx.Err())
	}
}

func (m *masterEnd) RecvReport(ctx context.Context) (int, *domain.Message, error) {
	select {
	case env := <-m.bus.reports:
		return env.workerID, env.msg, nil
	case <-m.bus.done:
		return 0, nil, m.bus.closedErr()
	case <-ctx.Done():
		return 0, nil, fmt.Errorf("%w: receive report: %w", errs.ErrTransport, ctx.Err())
	}
}

func (m *masterEnd) Close() error {
	return m.bus.Close()
}

type workerEnd struct {
	bus *Bus
	id  int
}

func (w *workerEnd) SendToMaster(ctx context.Context, msg *domain.Message) error {
	select {
	case w.bus.reports <- envelope{workerID: w.id, msg: msg.Clone()}:
		return nil
	case <-w.bus.done:
		return w.bus.closedErr()
	case <-ctx.Done():
		return fmt.Errorf("%w: send report: %w", errs.ErrTransport, ctx.Err())
	}
}

func (w *workerEnd) RecvFromMaster(ctx context.Context) (*domain.Message, error) {
	select {
	case msg := <-w.bus.commands[w.id]:
		return msg, nil
	case <-w.bus.done:
		return nil, w.bus.closedErr()
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: receive command: %w", errs.ErrTransport, ctx.Err())
	}
}

// Close is a no-op; the bus is closed by its owner
func (w *workerEnd) Close() error {
	return nil
}
