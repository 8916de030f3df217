package schedule

import (
	"context"

	"gitlab.com/steer-2025.net/internal/domain"
)

// StepKind classifies what one scheduler slot visit did.
type StepKind int

const (
	// StepIdle is a wake slot whose worker was not parked.
	StepIdle StepKind = iota
	// StepReport is slot 0 receiving a report and steering it.
	StepReport
	// StepWake is a wake slot synthesizing a wait_done report.
	StepWake
	// StepFinal is slot 0 receiving the last report of a stopped worker.
	StepFinal
)

func (k StepKind) String() string {
	switch k {
	case StepReport:
		return "report"
	case StepWake:
		return "wake"
	case StepFinal:
		return "final"
	}
	return "idle"
}

// StepResult describes a single slot visit.
type StepResult struct {
	Slot     int
	Kind     StepKind
	WorkerID int
	// Command is the name returned by the decision strategy, empty for
	// idle and final steps.
	Command string
	// Sent is false for idle steps, final steps and wait commands.
	Sent bool
}

// IScheduler defines the master side of the coordination protocol
type IScheduler interface {
	// Step visits the current slot and advances to the next one
	Step(ctx context.Context) (StepResult, error)

	// Done reports whether every worker has been sent its shutdown command
	Done() bool

	// Run steps until Done and then collects the workers' final reports
	Run(ctx context.Context) error

	// Snapshot returns a copy of the scheduler state, safe to call from any goroutine
	Snapshot() domain.SchedulerSnapshot
}
