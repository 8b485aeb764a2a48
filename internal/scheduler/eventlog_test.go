package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/rotorpool/internal/domain"
)

func TestEventLogKeepsNewestWhenFull(t *testing.T) {
	t.Parallel()

	log := newEventLog(3, testBase)
	for i := 0; i < 5; i++ {
		log.append(domain.Event{
			Kind: domain.EventStatusChanged,
			Time: testBase.Add(time.Duration(i) * time.Minute),
		})
	}

	recent := log.recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, testBase.Add(4*time.Minute), recent[0].Time, "newest first")
	assert.Equal(t, testBase.Add(2*time.Minute), recent[2].Time, "oldest entries fell off")
	assert.Equal(t, 5, log.stats.TotalEvents, "counters survive the ring trim")
}

func TestEventLogRecentLimit(t *testing.T) {
	t.Parallel()

	log := newEventLog(10, testBase)
	for i := 0; i < 4; i++ {
		log.append(domain.Event{Time: testBase.Add(time.Duration(i) * time.Minute)})
	}

	assert.Len(t, log.recent(2), 2)
	assert.Len(t, log.recent(100), 4)
	assert.Len(t, log.recent(-1), 4)
}

func TestEventLogStatsByKind(t *testing.T) {
	t.Parallel()

	log := newEventLog(0, testBase)
	kinds := []domain.EventKind{
		domain.EventSessionStarted,
		domain.EventSessionStarted,
		domain.EventSessionEnded,
		domain.EventAccountRotated,
		domain.EventEmergencyActivated,
		domain.EventPrestartTriggered,
		domain.EventQuotaReset,
		domain.EventError,
	}
	for _, kind := range kinds {
		log.append(domain.Event{Kind: kind})
	}

	assert.Equal(t, 2, log.stats.SessionsStarted)
	assert.Equal(t, 1, log.stats.SessionsEnded)
	assert.Equal(t, 1, log.stats.Rotations)
	assert.Equal(t, 1, log.stats.EmergencyActivations)
	assert.Equal(t, 1, log.stats.Prestarts)
	assert.Equal(t, 1, log.stats.QuotaResets)
	assert.Equal(t, 1, log.stats.ProvisionFailures)
	assert.Equal(t, len(kinds), log.stats.TotalEvents)
	assert.Equal(t, testBase, log.stats.CollectedSince)
}
