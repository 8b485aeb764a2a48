package fake

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/rotorpool/internal/domain"
)

func TestStartSessionReturnsDistinctRemoteIDs(t *testing.T) {
	t.Parallel()

	p := New()
	acc := domain.Account{ID: "acc-1", Name: "Primary"}

	first, err := p.StartSession(context.Background(), acc)
	require.NoError(t, err)
	second, err := p.StartSession(context.Background(), acc)
	require.NoError(t, err)

	assert.NotEqual(t, first.RemoteID, second.RemoteID)
	assert.NotNil(t, first.Telemetry)
	assert.Equal(t, 2, p.Started("acc-1"))
}

func TestScriptedStartFailure(t *testing.T) {
	t.Parallel()

	p := New()
	p.FailStart("acc-1", assert.AnError)

	_, err := p.StartSession(context.Background(), domain.Account{ID: "acc-1"})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, p.Started("acc-1"))

	p.FailStart("acc-1", nil)
	_, err = p.StartSession(context.Background(), domain.Account{ID: "acc-1"})
	assert.NoError(t, err)
}

func TestStartSessionHonorsContextDuringDelay(t *testing.T) {
	t.Parallel()

	p := New()
	p.SetStartDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.StartSession(ctx, domain.Account{ID: "acc-1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, p.Started("acc-1"))
}

func TestHealthCheckScriptedFailure(t *testing.T) {
	t.Parallel()

	p := New()
	p.FailHealth("acc-1", assert.AnError)

	health, err := p.HealthCheck(context.Background(), domain.Account{ID: "acc-1"})
	require.NoError(t, err)
	assert.False(t, health.OK)
	assert.Equal(t, assert.AnError.Error(), health.Detail)

	healthy, err := p.HealthCheck(context.Background(), domain.Account{ID: "acc-2"})
	require.NoError(t, err)
	assert.True(t, healthy.OK)
}

func TestStopSessionCounts(t *testing.T) {
	t.Parallel()

	p := New()
	require.NoError(t, p.StopSession(context.Background(), domain.Account{ID: "acc-1"}))
	require.NoError(t, p.StopSession(context.Background(), domain.Account{ID: "acc-1"}))
	assert.Equal(t, 2, p.Stopped("acc-1"))
}
