package ports

import (
	"context"
	"errors"

	"github.com/bnema/rotorpool/internal/domain"
)

// ErrFatalProvision marks a provisioner failure that is not worth retrying
// (revoked credentials, deleted remote node). The scheduler suspends the
// account immediately instead of burning the retry budget.
var ErrFatalProvision = errors.New("fatal provisioning failure")

type SessionInfo struct {
	RemoteID  string
	Endpoint  string
	Telemetry *domain.Telemetry
}

type Health struct {
	OK        bool
	Detail    string
	Telemetry *domain.Telemetry
}

// Provisioner abstracts whatever physically creates, destroys, and validates
// a remote compute session. Implementations must honor ctx cancellation; the
// scheduler never calls them while holding its own lock for longer than a
// goroutine dispatch.
type Provisioner interface {
	StartSession(ctx context.Context, account domain.Account) (SessionInfo, error)
	StopSession(ctx context.Context, account domain.Account) error
	HealthCheck(ctx context.Context, account domain.Account) (Health, error)
}
