package scheduler

import (
	"time"

	"github.com/bnema/rotorpool/internal/domain"
)

type switchReason string

const (
	switchNone           switchReason = ""
	switchQuotaExhausted switchReason = "quota_exhausted"
	switchSessionMax     switchReason = "session_max"
	switchQuotaLow       switchReason = "quota_low"
)

func (r switchReason) hard() bool {
	return r == switchQuotaExhausted || r == switchSessionMax
}

// sessionMonitor evaluates the running account once per tick and raises each
// switch condition at most once per session instance. Precedence within a
// single tick: quota exhaustion, then session-max, then the soft low-quota
// rotation.
type sessionMonitor struct {
	raisedExhausted bool
	raisedMax       bool
	raisedLow       bool
	warnedQuota     bool
}

func (m *sessionMonitor) reset() {
	*m = sessionMonitor{}
}

func (m *sessionMonitor) evaluate(a domain.Account, settings domain.PoolSettings, now time.Time) switchReason {
	if !m.raisedExhausted && a.UsedToday >= a.DailyLimit {
		m.raisedExhausted = true
		return switchQuotaExhausted
	}

	if !m.raisedMax && a.SessionDuration(now) >= a.MaxSessionTime {
		m.raisedMax = true
		return switchSessionMax
	}

	if settings.AutoRotateOnLowQuota && !m.raisedLow &&
		a.PercentRemaining() < 100-settings.LowQuotaThresholdPct {
		m.raisedLow = true
		return switchQuotaLow
	}

	return switchNone
}
