package domain

import (
	"fmt"
	"time"
)

type Strategy string

const (
	StrategyPriority   Strategy = "priority"
	StrategyRoundRobin Strategy = "round_robin"
	StrategyLeastUsed  Strategy = "least_used"
)

func (s Strategy) Valid() bool {
	switch s {
	case StrategyPriority, StrategyRoundRobin, StrategyLeastUsed:
		return true
	default:
		return false
	}
}

// PoolSettings govern rotation behavior. The selector and session monitor
// read them fresh on every evaluation; nothing caches them across updates.
type PoolSettings struct {
	Strategy             Strategy
	CooldownDuration     time.Duration
	LowQuotaThresholdPct float64
	AutoFailover         bool
	AutoRotateOnLowQuota bool
	TickInterval         time.Duration
	PrestartLeadTime     time.Duration
}

func DefaultSettings() PoolSettings {
	return PoolSettings{
		Strategy:             StrategyPriority,
		CooldownDuration:     time.Hour,
		LowQuotaThresholdPct: 90,
		AutoFailover:         true,
		AutoRotateOnLowQuota: false,
		TickInterval:         30 * time.Second,
		PrestartLeadTime:     10 * time.Minute,
	}
}

func (s PoolSettings) Validate() error {
	if !s.Strategy.Valid() {
		return fmt.Errorf("%w: unsupported strategy %q", ErrValidation, s.Strategy)
	}
	if s.CooldownDuration <= 0 {
		return fmt.Errorf("%w: cooldown duration must be positive", ErrValidation)
	}
	if s.LowQuotaThresholdPct < 0 || s.LowQuotaThresholdPct > 100 {
		return fmt.Errorf("%w: low-quota threshold must be between 0 and 100", ErrValidation)
	}
	if s.TickInterval <= 0 {
		return fmt.Errorf("%w: tick interval must be positive", ErrValidation)
	}
	if s.PrestartLeadTime < 0 {
		return fmt.Errorf("%w: prestart lead time must not be negative", ErrValidation)
	}

	return nil
}
