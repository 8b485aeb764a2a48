package ports

import (
	"context"

	"github.com/bnema/rotorpool/internal/domain"
)

// PoolSnapshot is the persisted shape of a pool: accounts, settings, and the
// rotation position needed to resume after a restart.
type PoolSnapshot struct {
	Accounts        []domain.Account
	Settings        domain.PoolSettings
	ActiveAccountID domain.AccountID
	RotationCursor  domain.AccountID
}

// PoolStore persists pool snapshots. LoadPool on a store that has never been
// written returns an empty snapshot with default settings, not an error.
type PoolStore interface {
	LoadPool(ctx context.Context) (PoolSnapshot, error)
	SavePool(ctx context.Context, snapshot PoolSnapshot) error
}
