package loopback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/steer-2025.net/internal/adapter/logging"
	"gitlab.com/steer-2025.net/internal/config"
	"gitlab.com/steer-2025.net/internal/core/services/schedule"
	"gitlab.com/steer-2025.net/internal/core/services/worker"
	"gitlab.com/steer-2025.net/internal/domain"
	"gitlab.com/steer-2025.net/internal/static/errs"
)

type stopJob struct{}

func (stopJob) Init(context.Context, *config.StrategyConfig, int) error { return nil }

func (stopJob) Execute(_ context.Context, command *domain.Message) (*domain.Message, bool, error) {
	name, _ := command.GetString(domain.FieldCommand)
	return domain.NewMessage().SetString(domain.FieldStatus, name), name == domain.CommandShutdown, nil
}

func (stopJob) Finalize(context.Context) error { return nil }

func newLoop(id int) *worker.Loop {
	return worker.NewLoop(id, stopJob{}, logging.NewNopLogger())
}

func TestLink_QueuesHellosInWorkerOrder(t *testing.T) {
	link := NewLink(newLoop(2), newLoop(1))
	require.Equal(t, 2, link.Pending())

	for _, want := range []int{1, 2} {
		id, report, err := link.RecvReport(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, id)
		status, _ := report.GetString(domain.FieldStatus)
		assert.Equal(t, domain.StatusInitialHello, status)
	}
}

func TestLink_CommandRunsWorkerSynchronously(t *testing.T) {
	ctx := context.Background()
	loop := newLoop(1)
	link := NewLink(loop)
	_, _, err := link.RecvReport(ctx)
	require.NoError(t, err)

	command := domain.NewCommand(domain.CommandShutdown)
	require.NoError(t, link.SendCommand(ctx, 1, command))
	assert.Equal(t, 1, command.Len(), "caller keeps its own command")
	assert.Equal(t, worker.StateStopped, loop.State())

	id, report, err := link.RecvReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	status, _ := report.GetString(domain.FieldStatus)
	assert.Equal(t, domain.CommandShutdown, status)
}

func TestLink_Errors(t *testing.T) {
	ctx := context.Background()
	link := NewLink(newLoop(1))
	_, _, _ = link.RecvReport(ctx)

	_, _, err := link.RecvReport(ctx)
	assert.ErrorIs(t, err, errs.ErrProtocol, "nothing queued")

	err = link.SendCommand(ctx, 5, domain.NewCommand("work"))
	assert.ErrorIs(t, err, errs.ErrTransport)

	require.NoError(t, link.SendCommand(ctx, 1, domain.NewCommand(domain.CommandShutdown)))
	err = link.SendCommand(ctx, 1, domain.NewCommand("work"))
	assert.ErrorIs(t, err, errs.ErrWorkerStopped)

	require.NoError(t, link.Close())
	_, _, err = link.RecvReport(ctx)
	assert.ErrorIs(t, err, errs.ErrTransport)
	assert.ErrorIs(t, link.SendCommand(ctx, 1, domain.NewCommand("work")), errs.ErrTransport)
}

func TestLink_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewLink(newLoop(1)).RecvReport(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// waitingDecision answers wait a fixed number of times, then shutdown
type waitingDecision struct {
	waits   int
	steered []string
}

func (d *waitingDecision) Init(context.Context, *config.StrategyConfig, int) error { return nil }

func (d *waitingDecision) Steer(_ context.Context, report *domain.Message) (*domain.Message, error) {
	status, _ := report.GetString(domain.FieldStatus)
	d.steered = append(d.steered, status)
	if d.waits > 0 {
		d.waits--
		return domain.NewCommand(domain.CommandWait), nil
	}
	return domain.NewCommand(domain.CommandShutdown), nil
}

func (d *waitingDecision) Finalize(context.Context) error { return nil }

// With its only worker parked a single-process run has nothing left to
// receive: waiting on a wait_done report fails instead of blocking.
func TestLink_WaitingOnWaitDoneFails(t *testing.T) {
	loop := newLoop(1)
	link := NewLink(loop)
	decision := &waitingDecision{waits: 2}
	sched := schedule.NewScheduler(1, decision, link, logging.NewNopLogger())

	err := sched.Run(context.Background())
	require.ErrorIs(t, err, errs.ErrProtocol)
	assert.Contains(t, err.Error(), "no report pending")
	assert.Equal(t, []string{domain.StatusInitialHello, domain.StatusWaitDone}, decision.steered)
	assert.True(t, sched.IsParked(1))
	assert.Equal(t, worker.StateRunning, loop.State(), "a wait command never reaches the worker")
}

func TestLink_SingleWaitThenShutdown(t *testing.T) {
	loop := newLoop(1)
	link := NewLink(loop)
	decision := &waitingDecision{waits: 1}
	sched := schedule.NewScheduler(1, decision, link, logging.NewNopLogger())

	require.NoError(t, sched.Run(context.Background()))
	assert.Equal(t, []string{domain.StatusInitialHello, domain.StatusWaitDone}, decision.steered)
	assert.Equal(t, worker.StateStopped, loop.State())
	assert.Zero(t, link.Pending())
}
