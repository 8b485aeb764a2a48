package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccountValidate(t *testing.T) {
	t.Parallel()

	valid := Account{
		ID:             "acc-1",
		Name:           "Primary",
		Priority:       10,
		DailyLimit:     12 * time.Hour,
		MaxSessionTime: 2 * time.Hour,
	}

	tests := []struct {
		name    string
		mutate  func(*Account)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Account) {},
		},
		{
			name:    "missing id",
			mutate:  func(a *Account) { a.ID = " " },
			wantErr: "id is required",
		},
		{
			name:    "missing name",
			mutate:  func(a *Account) { a.Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "negative priority",
			mutate:  func(a *Account) { a.Priority = -1 },
			wantErr: "priority must not be negative",
		},
		{
			name:    "zero daily limit",
			mutate:  func(a *Account) { a.DailyLimit = 0 },
			wantErr: "daily limit must be positive",
		},
		{
			name:    "zero max session time",
			mutate:  func(a *Account) { a.MaxSessionTime = 0 },
			wantErr: "max session time must be positive",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			acc := valid
			tc.mutate(&acc)
			err := acc.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestAccountApplyDefaults(t *testing.T) {
	t.Parallel()

	acc := Account{ID: "acc-1", Name: "Primary"}
	acc.ApplyDefaults()

	assert.Equal(t, DefaultPriority, acc.Priority)
	assert.Equal(t, DefaultDailyLimit, acc.DailyLimit)
	assert.Equal(t, DefaultMaxSessionTime, acc.MaxSessionTime)
	assert.Equal(t, StatusActive, acc.Status)
}

func TestAccountApplyDefaultsKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	acc := Account{
		ID:             "acc-1",
		Name:           "Primary",
		Priority:       5,
		DailyLimit:     time.Hour,
		MaxSessionTime: 30 * time.Minute,
		Status:         StatusCooldown,
	}
	acc.ApplyDefaults()

	assert.Equal(t, 5, acc.Priority)
	assert.Equal(t, time.Hour, acc.DailyLimit)
	assert.Equal(t, 30*time.Minute, acc.MaxSessionTime)
	assert.Equal(t, StatusCooldown, acc.Status)
}

func TestAccountRemainingClampsAtZero(t *testing.T) {
	t.Parallel()

	acc := Account{DailyLimit: time.Hour, UsedToday: 90 * time.Minute}
	assert.Equal(t, time.Duration(0), acc.Remaining())

	acc.UsedToday = 15 * time.Minute
	assert.Equal(t, 45*time.Minute, acc.Remaining())
}

func TestAccountPercentUsed(t *testing.T) {
	t.Parallel()

	acc := Account{DailyLimit: 100 * time.Minute, UsedToday: 91 * time.Minute}
	assert.InDelta(t, 91, acc.PercentUsed(), 0.001)
	assert.InDelta(t, 9, acc.PercentRemaining(), 0.001)

	acc.UsedToday = 200 * time.Minute
	assert.InDelta(t, 100, acc.PercentUsed(), 0.001)

	assert.Zero(t, Account{}.PercentUsed())
}

func TestAccountSuccessRate(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, Account{}.SuccessRate(), 0.001)
	assert.InDelta(t, 0.75, Account{Successes: 3, Failures: 1}.SuccessRate(), 0.001)
	assert.InDelta(t, 0.0, Account{Failures: 2}.SuccessRate(), 0.001)
}

func TestAccountSessionDuration(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	assert.Zero(t, Account{}.SessionDuration(now))
	assert.Equal(t, 45*time.Minute, Account{SessionStart: now.Add(-45 * time.Minute)}.SessionDuration(now))
	assert.Zero(t, Account{SessionStart: now.Add(time.Minute)}.SessionDuration(now))
}

func TestAccountCloneCopiesTelemetry(t *testing.T) {
	t.Parallel()

	acc := Account{ID: "acc-1", Telemetry: &Telemetry{MemoryUsedMB: 1024}}
	clone := acc.Clone()
	clone.Telemetry.MemoryUsedMB = 2048

	assert.Equal(t, int64(1024), acc.Telemetry.MemoryUsedMB)
}
