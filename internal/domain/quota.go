package domain

import "time"

const dayLayout = "2006-01-02"

// DayKey is the UTC calendar day used for daily quota resets.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// Accrue adds elapsed running time to the account's daily usage, clamped at
// the daily limit. It reports true on the accrual that first reaches the
// limit so the caller can emit a single exhaustion event; excess running time
// is never recorded as negative remaining quota.
func Accrue(a *Account, elapsed time.Duration) bool {
	if elapsed <= 0 {
		return false
	}

	before := a.UsedToday
	a.UsedToday += elapsed
	if a.UsedToday > a.DailyLimit {
		a.UsedToday = a.DailyLimit
	}

	return a.UsedToday >= a.DailyLimit && before < a.DailyLimit
}

// ResetIfDue zeroes the account's daily usage when now falls on a different
// UTC calendar day than the last reset. A cooldown caused purely by quota
// exhaustion is lifted with the reset. Calling it again within the same day
// is a no-op, so it reports true only on the call that performed the reset.
func ResetIfDue(a *Account, now time.Time) bool {
	day := DayKey(now)
	if a.LastResetDay == day {
		return false
	}

	// First sighting of this account: stamp the day without a reset event.
	if a.LastResetDay == "" {
		a.LastResetDay = day
		return false
	}

	resetQuota(a, day)
	return true
}

// ResetQuota is the operator-triggered variant: it always zeroes usage,
// regardless of the calendar day.
func ResetQuota(a *Account, now time.Time) {
	resetQuota(a, DayKey(now))
}

func resetQuota(a *Account, day string) {
	a.UsedToday = 0
	a.LastResetDay = day
	if a.Status == StatusCooldown && a.CooldownReason == CooldownQuotaExhausted {
		if a.Transition(StatusActive) == nil {
			a.CooldownUntil = time.Time{}
			a.CooldownReason = ""
		}
	}
}
