package secondary

import (
	"context"

	"gitlab.com/steer-2025.net/internal/config"
	"gitlab.com/steer-2025.net/internal/domain"
)

// DecisionStrategy turns worker reports into commands on the master.
// Steer both updates the strategy state and returns the next command for
// the worker that produced report. Commands named domain.CommandWait are
// never transmitted: the worker is parked until a synthesized
// domain.StatusWaitDone report is steered on its behalf.
type DecisionStrategy interface {
	Init(ctx context.Context, cfg *config.StrategyConfig, nWorkers int) error
	Steer(ctx context.Context, report *domain.Message) (*domain.Message, error)
	Finalize(ctx context.Context) error
}

// JobStrategy executes commands on a worker. Execute returns the report
// for the command and whether the worker must stop.
type JobStrategy interface {
	Init(ctx context.Context, cfg *config.StrategyConfig, workerID int) error
	Execute(ctx context.Context, command *domain.Message) (*domain.Message, bool, error)
	Finalize(ctx context.Context) error
}

// ResultReporter is implemented by decision strategies that expose a
// summary of the run once every worker has been shut down.
type ResultReporter interface {
	Result() *domain.Message
}
