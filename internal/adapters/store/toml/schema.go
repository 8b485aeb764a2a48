package toml

import (
	"fmt"
	"time"

	"github.com/bnema/rotorpool/internal/domain"
	"github.com/bnema/rotorpool/internal/ports"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Settings settingsSchema  `toml:"settings"`
	Runtime  runtimeSchema   `toml:"runtime"`
	Accounts []accountSchema `toml:"accounts"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
	if s.Settings.Strategy == "" {
		defaults := domain.DefaultSettings()
		s.Settings = toSettingsSchema(defaults)
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported pool schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type settingsSchema struct {
	Strategy             string  `toml:"strategy"`
	CooldownDuration     string  `toml:"cooldown_duration"`
	LowQuotaThresholdPct float64 `toml:"low_quota_threshold_pct"`
	AutoFailover         bool    `toml:"auto_failover"`
	AutoRotateOnLowQuota bool    `toml:"auto_rotate_on_low_quota"`
	TickInterval         string  `toml:"tick_interval"`
	PrestartLeadTime     string  `toml:"prestart_lead_time"`
}

type runtimeSchema struct {
	ActiveAccountID string `toml:"active_account_id,omitempty"`
	RotationCursor  string `toml:"rotation_cursor,omitempty"`
}

type accountSchema struct {
	ID             string `toml:"id"`
	Name           string `toml:"name"`
	Provider       string `toml:"provider,omitempty"`
	Tier           string `toml:"tier,omitempty"`
	Priority       int    `toml:"priority"`
	Enabled        bool   `toml:"enabled"`
	Emergency      bool   `toml:"emergency,omitempty"`
	Status         string `toml:"status"`
	DailyLimit     string `toml:"daily_limit"`
	UsedToday      string `toml:"used_today"`
	LastResetDay   string `toml:"last_reset_day,omitempty"`
	MaxSessionTime string `toml:"max_session_time"`
	SessionStart   string `toml:"session_start,omitempty"`
	CooldownUntil  string `toml:"cooldown_until,omitempty"`
	CooldownReason string `toml:"cooldown_reason,omitempty"`
	LastUsedAt     string `toml:"last_used_at,omitempty"`
	LastError      string `toml:"last_error,omitempty"`
	SessionCount   int    `toml:"session_count"`
	Successes      int    `toml:"successes"`
	Failures       int    `toml:"failures"`
	FailureStreak  int    `toml:"failure_streak"`
}

func toSchema(snapshot ports.PoolSnapshot) fileSchema {
	file := fileSchema{
		Version:  currentSchemaVersion,
		Settings: toSettingsSchema(snapshot.Settings),
		Runtime: runtimeSchema{
			ActiveAccountID: string(snapshot.ActiveAccountID),
			RotationCursor:  string(snapshot.RotationCursor),
		},
		Accounts: make([]accountSchema, 0, len(snapshot.Accounts)),
	}
	for _, acc := range snapshot.Accounts {
		file.Accounts = append(file.Accounts, toAccountSchema(acc))
	}
	return file
}

func fromSchema(file fileSchema) ports.PoolSnapshot {
	snapshot := ports.PoolSnapshot{
		Settings:        fromSettingsSchema(file.Settings),
		ActiveAccountID: domain.AccountID(file.Runtime.ActiveAccountID),
		RotationCursor:  domain.AccountID(file.Runtime.RotationCursor),
		Accounts:        make([]domain.Account, 0, len(file.Accounts)),
	}
	for _, acc := range file.Accounts {
		snapshot.Accounts = append(snapshot.Accounts, fromAccountSchema(acc))
	}
	return snapshot
}

func toSettingsSchema(settings domain.PoolSettings) settingsSchema {
	return settingsSchema{
		Strategy:             string(settings.Strategy),
		CooldownDuration:     formatDuration(settings.CooldownDuration),
		LowQuotaThresholdPct: settings.LowQuotaThresholdPct,
		AutoFailover:         settings.AutoFailover,
		AutoRotateOnLowQuota: settings.AutoRotateOnLowQuota,
		TickInterval:         formatDuration(settings.TickInterval),
		PrestartLeadTime:     formatDuration(settings.PrestartLeadTime),
	}
}

func fromSettingsSchema(schema settingsSchema) domain.PoolSettings {
	return domain.PoolSettings{
		Strategy:             domain.Strategy(schema.Strategy),
		CooldownDuration:     parseDuration(schema.CooldownDuration),
		LowQuotaThresholdPct: schema.LowQuotaThresholdPct,
		AutoFailover:         schema.AutoFailover,
		AutoRotateOnLowQuota: schema.AutoRotateOnLowQuota,
		TickInterval:         parseDuration(schema.TickInterval),
		PrestartLeadTime:     parseDuration(schema.PrestartLeadTime),
	}
}

func toAccountSchema(acc domain.Account) accountSchema {
	return accountSchema{
		ID:             string(acc.ID),
		Name:           acc.Name,
		Provider:       acc.Provider,
		Tier:           acc.Tier,
		Priority:       acc.Priority,
		Enabled:        acc.Enabled,
		Emergency:      acc.Emergency,
		Status:         string(acc.Status),
		DailyLimit:     formatDuration(acc.DailyLimit),
		UsedToday:      formatDuration(acc.UsedToday),
		LastResetDay:   acc.LastResetDay,
		MaxSessionTime: formatDuration(acc.MaxSessionTime),
		SessionStart:   formatTime(acc.SessionStart),
		CooldownUntil:  formatTime(acc.CooldownUntil),
		CooldownReason: string(acc.CooldownReason),
		LastUsedAt:     formatTime(acc.LastUsedAt),
		LastError:      acc.LastError,
		SessionCount:   acc.SessionCount,
		Successes:      acc.Successes,
		Failures:       acc.Failures,
		FailureStreak:  acc.FailureStreak,
	}
}

func fromAccountSchema(schema accountSchema) domain.Account {
	status := domain.Status(schema.Status)
	if !status.Valid() {
		status = domain.StatusActive
	}

	return domain.Account{
		ID:             domain.AccountID(schema.ID),
		Name:           schema.Name,
		Provider:       schema.Provider,
		Tier:           schema.Tier,
		Priority:       schema.Priority,
		Enabled:        schema.Enabled,
		Emergency:      schema.Emergency,
		Status:         status,
		DailyLimit:     parseDuration(schema.DailyLimit),
		UsedToday:      parseDuration(schema.UsedToday),
		LastResetDay:   schema.LastResetDay,
		MaxSessionTime: parseDuration(schema.MaxSessionTime),
		SessionStart:   parseTime(schema.SessionStart),
		CooldownUntil:  parseTime(schema.CooldownUntil),
		CooldownReason: domain.CooldownReason(schema.CooldownReason),
		LastUsedAt:     parseTime(schema.LastUsedAt),
		LastError:      schema.LastError,
		SessionCount:   schema.SessionCount,
		Successes:      schema.Successes,
		Failures:       schema.Failures,
		FailureStreak:  schema.FailureStreak,
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.Format(time.RFC3339)
}

func parseDuration(raw string) time.Duration {
	if raw == "" {
		return 0
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}

	return parsed
}

func formatDuration(value time.Duration) string {
	return value.String()
}
