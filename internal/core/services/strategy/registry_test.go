package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/steer-2025.net/internal/core/ports/secondary"
	"gitlab.com/steer-2025.net/internal/core/services/strategy/sweep"
	"gitlab.com/steer-2025.net/internal/static/errs"
)

func TestLookup(t *testing.T) {
	pair, err := Lookup("sweep")
	require.NoError(t, err)
	assert.IsType(t, &sweep.Decision{}, pair.NewDecision())
	assert.IsType(t, &sweep.Job{}, pair.NewJob())

	_, err = Lookup("missing")
	assert.ErrorIs(t, err, errs.ErrUnknownStrategy)
	assert.Contains(t, err.Error(), "sweep")
}

func TestRegister(t *testing.T) {
	Register("sweep-copy", Pair{
		NewDecision: func() secondary.DecisionStrategy { return sweep.NewDecision() },
		NewJob:      func() secondary.JobStrategy { return sweep.NewJob() },
	})
	t.Cleanup(func() { delete(registry, "sweep-copy") })

	assert.Equal(t, []string{"sweep", "sweep-copy"}, Names())
	_, err := Lookup("sweep-copy")
	assert.NoError(t, err)
}
