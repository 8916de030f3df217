package sweep

import (
	"context"
	"fmt"

	"gitlab.com/steer-2025.net/internal/config"
	"gitlab.com/steer-2025.net/internal/core/ports/secondary"
	"gitlab.com/steer-2025.net/internal/domain"
)

var _ secondary.JobStrategy = (*Job)(nil)

// Job is the worker side of the sweep
type Job struct {
	workerID    int
	objective   Objective
	evaluations int64
}

func NewJob() *Job {
	return &Job{}
}

func (j *Job) Init(_ context.Context, cfg *config.StrategyConfig, workerID int) error {
	objective, err := LookupObjective(cfg.String("objective", "rosenbrock"))
	if err != nil {
		return err
	}
	j.workerID = workerID
	j.objective = objective
	return nil
}

// Execute evaluates the objective at the commanded point
func (j *Job) Execute(_ context.Context, command *domain.Message) (*domain.Message, bool, error) {
	name, err := domain.CommandName(command)
	if err != nil {
		return nil, false, err
	}

	switch name {
	case CommandEvaluate:
		pointID, err := command.GetInt(FieldPointID)
		if err != nil {
			return nil, false, err
		}
		x, err := command.GetFloats(FieldX)
		if err != nil {
			return nil, false, err
		}
		j.evaluations++
		report := domain.NewMessage().
			SetInt(domain.FieldWorkerID, int64(j.workerID)).
			SetString(domain.FieldStatus, StatusEvaluated).
			SetInt(FieldPointID, pointID).
			SetFloats(FieldX, x).
			SetFloat(FieldF, j.objective(x))
		return report, false, nil
	case domain.CommandShutdown:
		report := domain.NewMessage().
			SetInt(domain.FieldWorkerID, int64(j.workerID)).
			SetString(domain.FieldStatus, StatusStopped).
			SetInt(FieldEvaluations, j.evaluations)
		return report, true, nil
	default:
		return nil, false, fmt.Errorf("unknown command %q", name)
	}
}

// Evaluations returns the number of points evaluated by this worker
func (j *Job) Evaluations() int64 {
	return j.evaluations
}

func (j *Job) Finalize(context.Context) error {
	return nil
}
