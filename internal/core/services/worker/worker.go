package worker

import (
	"context"
	"fmt"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/core/ports/secondary"
	"gitlab.com/steer-2025.net/internal/domain"
	"gitlab.com/steer-2025.net/internal/static/errs"
)

// State of a worker loop
type State int

const (
	StateRunning State = iota
	StateStopped
)

func (s State) String() string {
	if s == StateStopped {
		return "stopped"
	}
	return "running"
}

var _ ILoop = &Loop{}

// Loop executes commands from the master through a JobStrategy until the
// strategy asks it to stop. Hello and Handle are the two halves of the
// state machine; Run drives them over a WorkerTransport.
type Loop struct {
	ID     int
	job    secondary.JobStrategy
	logger primary.Logger

	state   State
	handled int64
}

func NewLoop(workerID int, job secondary.JobStrategy, logger primary.Logger) *Loop {
	return &Loop{
		ID:     workerID,
		job:    job,
		logger: logger,
		state:  StateRunning,
	}
}

func (l *Loop) State() State {
	return l.state
}

// Handled returns the number of commands executed so far
func (l *Loop) Handled() int64 {
	return l.handled
}

// Hello builds the opening report of the worker
func (l *Loop) Hello() *domain.Message {
	return domain.NewHello(l.ID)
}

// Handle executes one command and returns the report for it. The command
// is released once the strategy is done with it. After a stop the loop is
// stopped and refuses further commands.
func (l *Loop) Handle(ctx context.Context, command *domain.Message) (*domain.Message, bool, error) {
	if l.state == StateStopped {
		return nil, true, fmt.Errorf("worker %d: %w", l.ID, errs.ErrWorkerStopped)
	}
	if command == nil {
		return nil, false, fmt.Errorf("%w: worker %d received an empty command", errs.ErrProtocol, l.ID)
	}

	name, _ := command.GetString(domain.FieldCommand)
	l.logger.Debug("Executing command", "workerID", l.ID, "command", name)

	report, stop, err := l.job.Execute(ctx, command)
	command.Clear()
	if err != nil {
		return nil, false, fmt.Errorf("%w: worker %d executing %q: %w", errs.ErrStrategy, l.ID, name, err)
	}
	l.handled++

	if report == nil {
		report = domain.NewMessage()
	}
	if !report.Has(domain.FieldWorkerID) {
		report.SetInt(domain.FieldWorkerID, int64(l.ID))
	}

	if stop {
		l.state = StateStopped
		l.logger.Info("Worker stopping", "workerID", l.ID, "commands", l.handled)
	}
	return report, stop, nil
}

// Run sends the hello report and then alternates receive/execute/send
// until the job strategy asks to stop. The report produced by the last
// command is sent before Run returns.
func (l *Loop) Run(ctx context.Context, transport primary.WorkerTransport) error {
	l.logger.Info("Worker started", "workerID", l.ID)

	report := l.Hello()
	for {
		if err := transport.SendToMaster(ctx, report); err != nil {
			return fmt.Errorf("worker %d failed to send report: %w", l.ID, err)
		}
		report.Clear()

		command, err := transport.RecvFromMaster(ctx)
		if err != nil {
			return fmt.Errorf("worker %d failed to receive command: %w", l.ID, err)
		}

		next, stop, err := l.Handle(ctx, command)
		if err != nil {
			l.logger.Error("Command failed", "workerID", l.ID, "error", err)
			return err
		}
		if stop {
			if err := transport.SendToMaster(ctx, next); err != nil {
				return fmt.Errorf("worker %d failed to send final report: %w", l.ID, err)
			}
			next.Clear()
			return nil
		}
		report = next
	}
}
