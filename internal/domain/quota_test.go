package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccrueReportsExhaustionOnce(t *testing.T) {
	t.Parallel()

	acc := Account{DailyLimit: time.Hour}

	assert.False(t, Accrue(&acc, 30*time.Minute))
	assert.Equal(t, 30*time.Minute, acc.UsedToday)

	assert.True(t, Accrue(&acc, 45*time.Minute))
	assert.Equal(t, time.Hour, acc.UsedToday, "usage clamps at the daily limit")

	assert.False(t, Accrue(&acc, time.Minute), "already exhausted, no second report")
	assert.Equal(t, time.Hour, acc.UsedToday)
}

func TestAccrueIgnoresNonPositiveElapsed(t *testing.T) {
	t.Parallel()

	acc := Account{DailyLimit: time.Hour, UsedToday: 10 * time.Minute}
	assert.False(t, Accrue(&acc, 0))
	assert.False(t, Accrue(&acc, -time.Minute))
	assert.Equal(t, 10*time.Minute, acc.UsedToday)
}

func TestResetIfDueStampsFirstSighting(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	acc := Account{DailyLimit: time.Hour, UsedToday: 30 * time.Minute}

	assert.False(t, ResetIfDue(&acc, now), "first sighting stamps the day without resetting")
	assert.Equal(t, DayKey(now), acc.LastResetDay)
	assert.Equal(t, 30*time.Minute, acc.UsedToday)
}

func TestResetIfDueIsIdempotentWithinOneDay(t *testing.T) {
	t.Parallel()

	day1 := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	acc := Account{DailyLimit: time.Hour, UsedToday: time.Hour, LastResetDay: DayKey(day1)}

	assert.True(t, ResetIfDue(&acc, day2))
	assert.Zero(t, acc.UsedToday)
	assert.Equal(t, DayKey(day2), acc.LastResetDay)

	acc.UsedToday = 5 * time.Minute
	assert.False(t, ResetIfDue(&acc, day2.Add(time.Hour)))
	assert.Equal(t, 5*time.Minute, acc.UsedToday)
}

func TestResetIfDueUsesUTCDayBoundary(t *testing.T) {
	t.Parallel()

	// 23:30 UTC and 00:30 UTC the next day are different UTC days even when a
	// local zone would put them on the same date.
	before := time.Date(2026, 8, 20, 23, 30, 0, 0, time.UTC)
	after := before.Add(time.Hour)

	acc := Account{DailyLimit: time.Hour, UsedToday: time.Hour, LastResetDay: DayKey(before)}
	assert.True(t, ResetIfDue(&acc, after))
}

func TestResetLiftsQuotaCooldownOnly(t *testing.T) {
	t.Parallel()

	day1 := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	quotaCooled := Account{
		DailyLimit:     time.Hour,
		UsedToday:      time.Hour,
		LastResetDay:   DayKey(day1),
		Status:         StatusCooldown,
		CooldownUntil:  day2.Add(time.Hour),
		CooldownReason: CooldownQuotaExhausted,
	}
	assert.True(t, ResetIfDue(&quotaCooled, day2))
	assert.Equal(t, StatusActive, quotaCooled.Status)
	assert.True(t, quotaCooled.CooldownUntil.IsZero())
	assert.Empty(t, quotaCooled.CooldownReason)

	sessionCooled := Account{
		DailyLimit:     time.Hour,
		UsedToday:      30 * time.Minute,
		LastResetDay:   DayKey(day1),
		Status:         StatusCooldown,
		CooldownUntil:  day2.Add(time.Hour),
		CooldownReason: CooldownSessionMax,
	}
	assert.True(t, ResetIfDue(&sessionCooled, day2))
	assert.Equal(t, StatusCooldown, sessionCooled.Status, "session-max cooldown outlives the quota reset")
	assert.Zero(t, sessionCooled.UsedToday)
}

func TestResetQuotaAlwaysResets(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	acc := Account{DailyLimit: time.Hour, UsedToday: time.Hour, LastResetDay: DayKey(now)}

	ResetQuota(&acc, now)
	assert.Zero(t, acc.UsedToday)
	assert.Equal(t, DayKey(now), acc.LastResetDay)
}
