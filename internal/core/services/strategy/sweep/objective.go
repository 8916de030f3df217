package sweep

import (
	"fmt"
	"math"
	"sort"

	"gitlab.com/steer-2025.net/internal/static/errs"
)

// Objective is a function minimized by the sweep
type Objective func(x []float64) float64

var objectives = map[string]Objective{
	"sphere":     sphere,
	"rosenbrock": rosenbrock,
	"rastrigin":  rastrigin,
}

// LookupObjective returns the objective registered under name
func LookupObjective(name string) (Objective, error) {
	f, ok := objectives[name]
	if !ok {
		return nil, fmt.Errorf("%w: objective %q, have %v", errs.ErrConfiguration, name, Objectives())
	}
	return f, nil
}

// Objectives lists the objective names in lexical order
func Objectives() []string {
	names := make([]string, 0, len(objectives))
	for name := range objectives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sphere(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

func rosenbrock(x []float64) float64 {
	if len(x) < 2 {
		return sphere(x)
	}
	var sum float64
	for i := 0; i < len(x)-1; i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]
		sum += 100*a*a + b*b
	}
	return sum
}

func rastrigin(x []float64) float64 {
	sum := 10 * float64(len(x))
	for _, v := range x {
		sum += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return sum
}
