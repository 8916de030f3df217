// Package sweep is a reference strategy pair: the master samples a box
// with a low-discrepancy point set, workers evaluate an objective at each
// point, and every completed generation shrinks the box around the best
// point found so far.
package sweep

import (
	"context"
	"fmt"
	"math"

	"gitlab.com/steer-2025.net/internal/config"
	"gitlab.com/steer-2025.net/internal/core/ports/secondary"
	"gitlab.com/steer-2025.net/internal/domain"
	"gitlab.com/steer-2025.net/internal/static/errs"
)

const (
	CommandEvaluate = "evaluate"
	StatusEvaluated = "evaluated"
	StatusStopped   = "stopped"

	FieldPointID     = "point_id"
	FieldX           = "x"
	FieldF           = "f"
	FieldEvaluations = "evaluations"
)

var (
	_ secondary.DecisionStrategy = (*Decision)(nil)
	_ secondary.ResultReporter   = (*Decision)(nil)
)

var primes = []int{2, 3, 5, 7, 11, 13, 17, 19}

type point struct {
	id int64
	x  []float64
}

// Decision is the master side of the sweep
type Decision struct {
	nWorkers    int
	points      int
	generations int
	dims        int

	center []float64
	span   float64

	generation  int
	nextID      int64
	queue       []point
	outstanding map[int]int64
	finished    bool

	evaluations int
	bestX       []float64
	bestF       float64
}

func NewDecision() *Decision {
	return &Decision{}
}

// Init reads points, generations, dims, lower and upper from cfg
func (d *Decision) Init(_ context.Context, cfg *config.StrategyConfig, nWorkers int) error {
	d.nWorkers = nWorkers
	d.points = cfg.Int("points", 8)
	d.generations = cfg.Int("generations", 3)
	d.dims = cfg.Int("dims", 2)
	lower := cfg.Float("lower", -2)
	upper := cfg.Float("upper", 2)

	switch {
	case d.points < 1:
		return fmt.Errorf("%w: sweep needs at least one point per generation", errs.ErrConfiguration)
	case d.generations < 1:
		return fmt.Errorf("%w: sweep needs at least one generation", errs.ErrConfiguration)
	case d.dims < 1 || d.dims > len(primes):
		return fmt.Errorf("%w: sweep supports 1 to %d dimensions, got %d", errs.ErrConfiguration, len(primes), d.dims)
	case upper <= lower:
		return fmt.Errorf("%w: empty sweep interval [%g, %g]", errs.ErrConfiguration, lower, upper)
	}

	d.center = make([]float64, d.dims)
	for i := range d.center {
		d.center[i] = (lower + upper) / 2
	}
	d.span = (upper - lower) / 2
	d.outstanding = make(map[int]int64, nWorkers)
	d.bestF = math.Inf(1)
	d.fill()
	return nil
}

// Steer hands out queued points, parks workers while a generation drains
// and shuts everyone down after the last generation.
func (d *Decision) Steer(_ context.Context, report *domain.Message) (*domain.Message, error) {
	workerID, err := report.GetInt(domain.FieldWorkerID)
	if err != nil {
		return nil, err
	}
	status, err := report.GetString(domain.FieldStatus)
	if err != nil {
		return nil, err
	}

	if status == StatusEvaluated {
		if err := d.accept(int(workerID), report); err != nil {
			return nil, err
		}
	}

	if d.finished {
		return domain.NewCommand(domain.CommandShutdown), nil
	}

	if len(d.queue) == 0 {
		if len(d.outstanding) > 0 {
			return domain.NewCommand(domain.CommandWait), nil
		}
		d.generation++
		if d.generation >= d.generations {
			d.finished = true
			return domain.NewCommand(domain.CommandShutdown), nil
		}
		d.refine()
		d.fill()
	}

	next := d.queue[0]
	d.queue = d.queue[1:]
	d.outstanding[int(workerID)] = next.id
	return domain.NewCommand(CommandEvaluate).
		SetInt(FieldPointID, next.id).
		SetFloats(FieldX, next.x), nil
}

func (d *Decision) accept(workerID int, report *domain.Message) error {
	pointID, err := report.GetInt(FieldPointID)
	if err != nil {
		return err
	}
	if want, ok := d.outstanding[workerID]; !ok || want != pointID {
		return fmt.Errorf("worker %d reported point %d it was not evaluating", workerID, pointID)
	}
	f, err := report.GetFloat(FieldF)
	if err != nil {
		return err
	}
	x, err := report.GetFloats(FieldX)
	if err != nil {
		return err
	}
	delete(d.outstanding, workerID)
	d.evaluations++
	if f < d.bestF {
		d.bestF = f
		d.bestX = x
	}
	return nil
}

// refine shrinks the box around the best point
func (d *Decision) refine() {
	if d.bestX != nil {
		copy(d.center, d.bestX)
	}
	d.span /= 2
}

// fill queues one generation of Halton points inside the current box
func (d *Decision) fill() {
	for i := 0; i < d.points; i++ {
		x := make([]float64, d.dims)
		for dim := range x {
			t := 2*radicalInverse(i+1, primes[dim]) - 1
			x[dim] = d.center[dim] + d.span*t
		}
		d.queue = append(d.queue, point{id: d.nextID, x: x})
		d.nextID++
	}
}

func radicalInverse(n, base int) float64 {
	var inv float64
	f := 1 / float64(base)
	for n > 0 {
		inv += float64(n%base) * f
		n /= base
		f /= float64(base)
	}
	return inv
}

// Generation returns the index of the generation being evaluated
func (d *Decision) Generation() int {
	return d.generation
}

// Result summarizes the best point found
func (d *Decision) Result() *domain.Message {
	out := domain.NewMessage().
		SetInt(FieldEvaluations, int64(d.evaluations)).
		SetInt("generations", int64(d.generation))
	if d.bestX != nil {
		out.SetFloats(FieldX, d.bestX).SetFloat(FieldF, d.bestF)
	}
	return out
}

func (d *Decision) Finalize(context.Context) error {
	d.queue = nil
	return nil
}
