// Package strategy maps strategy names to decision/job constructors.
package strategy

import (
	"fmt"
	"sort"

	"gitlab.com/steer-2025.net/internal/core/ports/secondary"
	"gitlab.com/steer-2025.net/internal/core/services/strategy/sweep"
	"gitlab.com/steer-2025.net/internal/static/errs"
)

// Pair builds the two halves of a strategy
type Pair struct {
	NewDecision func() secondary.DecisionStrategy
	NewJob      func() secondary.JobStrategy
}

var registry = map[string]Pair{
	"sweep": {
		NewDecision: func() secondary.DecisionStrategy { return sweep.NewDecision() },
		NewJob:      func() secondary.JobStrategy { return sweep.NewJob() },
	},
}

// Register adds or replaces the strategy pair stored under name. It is
// meant to be called from init functions.
func Register(name string, pair Pair) {
	registry[name] = pair
}

// Lookup returns the pair registered under name
func Lookup(name string) (Pair, error) {
	pair, ok := registry[name]
	if !ok {
		return Pair{}, fmt.Errorf("%w: %q, have %v", errs.ErrUnknownStrategy, name, Names())
	}
	return pair, nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
