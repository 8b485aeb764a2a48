package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSettingsAreValid(t *testing.T) {
	t.Parallel()

	settings := DefaultSettings()
	assert.NoError(t, settings.Validate())
	assert.Equal(t, StrategyPriority, settings.Strategy)
	assert.True(t, settings.AutoFailover)
	assert.False(t, settings.AutoRotateOnLowQuota)
}

func TestPoolSettingsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*PoolSettings)
		wantErr string
	}{
		{
			name:    "unsupported strategy",
			mutate:  func(s *PoolSettings) { s.Strategy = "random" },
			wantErr: "unsupported strategy",
		},
		{
			name:    "zero cooldown",
			mutate:  func(s *PoolSettings) { s.CooldownDuration = 0 },
			wantErr: "cooldown duration must be positive",
		},
		{
			name:    "threshold above 100",
			mutate:  func(s *PoolSettings) { s.LowQuotaThresholdPct = 101 },
			wantErr: "low-quota threshold",
		},
		{
			name:    "negative threshold",
			mutate:  func(s *PoolSettings) { s.LowQuotaThresholdPct = -1 },
			wantErr: "low-quota threshold",
		},
		{
			name:    "zero tick interval",
			mutate:  func(s *PoolSettings) { s.TickInterval = 0 },
			wantErr: "tick interval must be positive",
		},
		{
			name:    "negative prestart lead",
			mutate:  func(s *PoolSettings) { s.PrestartLeadTime = -time.Minute },
			wantErr: "prestart lead time",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			settings := DefaultSettings()
			tc.mutate(&settings)
			err := settings.Validate()
			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
