package domain

import (
	"fmt"
	"strings"
	"time"
)

type AccountID string

const (
	DefaultPriority       = 100
	DefaultDailyLimit     = 12 * time.Hour
	DefaultMaxSessionTime = 2 * time.Hour
)

// Account is the unit of rotation: one external, quota-limited compute
// resource. The scheduler owns every Account exclusively; callers only ever
// see copies produced by Clone.
type Account struct {
	ID        AccountID
	Name      string
	Provider  string
	Tier      string
	Priority  int
	Enabled   bool
	Emergency bool
	Status    Status

	DailyLimit   time.Duration
	UsedToday    time.Duration
	LastResetDay string

	MaxSessionTime time.Duration
	SessionStart   time.Time
	CooldownUntil  time.Time
	CooldownReason CooldownReason
	LastUsedAt     time.Time
	LastError      string

	SessionCount  int
	Successes     int
	Failures      int
	FailureStreak int

	// Telemetry is populated only while the account is Running.
	Telemetry *Telemetry
}

type Telemetry struct {
	MemoryUsedMB  int64
	MemoryTotalMB int64
	Utilization   float64
	CapturedAt    time.Time
}

type CooldownReason string

const (
	CooldownQuotaExhausted CooldownReason = "quota_exhausted"
	CooldownSessionMax     CooldownReason = "session_max"
)

// Remaining returns the unused share of today's quota, clamped at zero.
func (a Account) Remaining() time.Duration {
	remaining := a.DailyLimit - a.UsedToday
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (a Account) PercentUsed() float64 {
	if a.DailyLimit <= 0 {
		return 0
	}
	pct := float64(a.UsedToday) / float64(a.DailyLimit) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

func (a Account) PercentRemaining() float64 {
	return 100 - a.PercentUsed()
}

// SuccessRate reports the lifetime share of successful provisioning attempts.
// An account that was never provisioned reports 1.0.
func (a Account) SuccessRate() float64 {
	total := a.Successes + a.Failures
	if total == 0 {
		return 1
	}
	return float64(a.Successes) / float64(total)
}

// SessionDuration is the running session's age, zero when no session exists.
func (a Account) SessionDuration(now time.Time) time.Duration {
	if a.SessionStart.IsZero() {
		return 0
	}
	d := now.Sub(a.SessionStart)
	if d < 0 {
		return 0
	}
	return d
}

func (a Account) Validate() error {
	if strings.TrimSpace(string(a.ID)) == "" {
		return fmt.Errorf("%w: id is required", ErrValidation)
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if a.Priority < 0 {
		return fmt.Errorf("%w: priority must not be negative", ErrValidation)
	}
	if a.DailyLimit <= 0 {
		return fmt.Errorf("%w: daily limit must be positive", ErrValidation)
	}
	if a.MaxSessionTime <= 0 {
		return fmt.Errorf("%w: max session time must be positive", ErrValidation)
	}

	return nil
}

// ApplyDefaults fills zero-valued tunables on a freshly added account.
func (a *Account) ApplyDefaults() {
	if a.Priority == 0 {
		a.Priority = DefaultPriority
	}
	if a.DailyLimit == 0 {
		a.DailyLimit = DefaultDailyLimit
	}
	if a.MaxSessionTime == 0 {
		a.MaxSessionTime = DefaultMaxSessionTime
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
}

func (a Account) Clone() Account {
	clone := a
	if a.Telemetry != nil {
		telemetry := *a.Telemetry
		clone.Telemetry = &telemetry
	}
	return clone
}
