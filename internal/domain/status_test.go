package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	t.Parallel()

	allowed := []struct{ from, to Status }{
		{StatusActive, StatusRunning},
		{StatusActive, StatusError},
		{StatusActive, StatusSuspended},
		{StatusRunning, StatusActive},
		{StatusRunning, StatusCooldown},
		{StatusRunning, StatusError},
		{StatusRunning, StatusSuspended},
		{StatusRunning, StatusPaused},
		{StatusCooldown, StatusActive},
		{StatusCooldown, StatusRunning},
		{StatusError, StatusActive},
		{StatusError, StatusRunning},
		{StatusError, StatusSuspended},
		{StatusSuspended, StatusActive},
		{StatusPaused, StatusActive},
		{StatusPaused, StatusRunning},
	}
	for _, tc := range allowed {
		assert.True(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to Status }{
		{StatusActive, StatusCooldown},
		{StatusActive, StatusPaused},
		{StatusCooldown, StatusPaused},
		{StatusCooldown, StatusSuspended},
		{StatusSuspended, StatusRunning},
		{StatusSuspended, StatusCooldown},
		{StatusPaused, StatusCooldown},
	}
	for _, tc := range denied {
		assert.False(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestTransitionAppliesLegalMoves(t *testing.T) {
	t.Parallel()

	a := Account{Status: StatusActive}
	require.NoError(t, a.Transition(StatusRunning))
	assert.Equal(t, StatusRunning, a.Status)

	require.NoError(t, a.Transition(StatusCooldown))
	assert.Equal(t, StatusCooldown, a.Status)

	// Forced activation from cooldown skips the wait.
	require.NoError(t, a.Transition(StatusRunning))
	assert.Equal(t, StatusRunning, a.Status)
}

func TestTransitionRejectsIllegalMoveAndKeepsStatus(t *testing.T) {
	t.Parallel()

	a := Account{Status: StatusSuspended}
	err := a.Transition(StatusRunning)
	require.ErrorIs(t, err, ErrBadTransition)
	assert.Equal(t, StatusSuspended, a.Status)
}

func TestTransitionSameStatusIsNoOp(t *testing.T) {
	t.Parallel()

	a := Account{Status: StatusCooldown}
	assert.NoError(t, a.Transition(StatusCooldown))
	assert.Equal(t, StatusCooldown, a.Status)
}

func TestStatusValid(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusActive, StatusRunning, StatusCooldown, StatusError, StatusSuspended, StatusPaused} {
		assert.True(t, s.Valid())
	}
	assert.False(t, Status("rebooting").Valid())
	assert.False(t, Status("").Valid())
}
