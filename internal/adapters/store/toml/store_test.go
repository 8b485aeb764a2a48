package toml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/rotorpool/internal/domain"
	"github.com/bnema/rotorpool/internal/ports"
)

func tempStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pool.toml")
	store, err := NewStoreAt(path)
	require.NoError(t, err)
	return store, path
}

func TestLoadPoolMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	store, _ := tempStore(t)

	snapshot, err := store.LoadPool(context.Background())
	require.NoError(t, err)

	assert.Empty(t, snapshot.Accounts)
	assert.Equal(t, domain.DefaultSettings(), snapshot.Settings)
	assert.Empty(t, snapshot.ActiveAccountID)
}

func TestSaveAndLoadPoolRoundTrip(t *testing.T) {
	t.Parallel()

	store, path := tempStore(t)

	started := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)
	snapshot := ports.PoolSnapshot{
		Settings: domain.PoolSettings{
			Strategy:             domain.StrategyRoundRobin,
			CooldownDuration:     45 * time.Minute,
			LowQuotaThresholdPct: 85,
			AutoFailover:         true,
			AutoRotateOnLowQuota: true,
			TickInterval:         15 * time.Second,
			PrestartLeadTime:     5 * time.Minute,
		},
		ActiveAccountID: "acc-1",
		RotationCursor:  "acc-1",
		Accounts: []domain.Account{
			{
				ID:             "acc-1",
				Name:           "Primary",
				Provider:       "nebulagrid",
				Tier:           "pro",
				Priority:       10,
				Enabled:        true,
				Status:         domain.StatusRunning,
				DailyLimit:     12 * time.Hour,
				UsedToday:      95 * time.Minute,
				LastResetDay:   "2026-08-20",
				MaxSessionTime: 2 * time.Hour,
				SessionStart:   started,
				LastUsedAt:     started,
				SessionCount:   7,
				Successes:      6,
				Failures:       1,
				FailureStreak:  0,
			},
			{
				ID:             "acc-2",
				Name:           "Backup",
				Priority:       20,
				Enabled:        true,
				Emergency:      true,
				Status:         domain.StatusCooldown,
				DailyLimit:     6 * time.Hour,
				MaxSessionTime: time.Hour,
				CooldownUntil:  started.Add(time.Hour),
				CooldownReason: domain.CooldownSessionMax,
				LastError:      "node unreachable",
				FailureStreak:  2,
			},
		},
	}

	require.NoError(t, store.SavePool(context.Background(), snapshot))

	loaded, err := store.LoadPool(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snapshot, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSavePoolOverwritesPreviousState(t *testing.T) {
	t.Parallel()

	store, _ := tempStore(t)

	first := ports.PoolSnapshot{
		Settings: domain.DefaultSettings(),
		Accounts: []domain.Account{{
			ID: "acc-1", Name: "Primary", Priority: 10, Enabled: true,
			Status: domain.StatusActive, DailyLimit: time.Hour, MaxSessionTime: time.Hour,
		}},
	}
	require.NoError(t, store.SavePool(context.Background(), first))

	second := first
	second.Accounts = nil
	require.NoError(t, store.SavePool(context.Background(), second))

	loaded, err := store.LoadPool(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded.Accounts)
}

func TestLoadPoolRejectsNewerSchemaVersion(t *testing.T) {
	t.Parallel()

	store, path := tempStore(t)

	require.NoError(t, os.WriteFile(path, []byte("version = 99\n"), 0o600))

	_, err := store.LoadPool(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported pool schema version")
}

func TestLoadPoolCoercesInvalidStatus(t *testing.T) {
	t.Parallel()

	store, path := tempStore(t)

	raw := `version = 1

[[accounts]]
id = "acc-1"
name = "Primary"
priority = 10
enabled = true
status = "rebooting"
daily_limit = "12h0m0s"
used_today = "0s"
max_session_time = "2h0m0s"
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	loaded, err := store.LoadPool(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded.Accounts, 1)
	assert.Equal(t, domain.StatusActive, loaded.Accounts[0].Status)
}

func TestStoreHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	store, _ := tempStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.LoadPool(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	err = store.SavePool(ctx, ports.PoolSnapshot{Settings: domain.DefaultSettings()})
	assert.ErrorIs(t, err, context.Canceled)
}
