// Package fake provides a deterministic in-process Provisioner used by the
// demo daemon and by tests. Failures can be scripted per account.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/rotorpool/internal/domain"
	"github.com/bnema/rotorpool/internal/ports"
)

type Provisioner struct {
	mu sync.Mutex

	// failStart/failHealth map an account ID to the error its next calls
	// return. A nil map entry means success.
	failStart  map[domain.AccountID]error
	failHealth map[domain.AccountID]error

	startDelay time.Duration
	started    map[domain.AccountID]int
	stopped    map[domain.AccountID]int
}

var _ ports.Provisioner = (*Provisioner)(nil)

func New() *Provisioner {
	return &Provisioner{
		failStart:  map[domain.AccountID]error{},
		failHealth: map[domain.AccountID]error{},
		started:    map[domain.AccountID]int{},
		stopped:    map[domain.AccountID]int{},
	}
}

// FailStart scripts the given error for every subsequent StartSession call on
// the account; pass nil to clear.
func (p *Provisioner) FailStart(id domain.AccountID, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failStart, id)
		return
	}
	p.failStart[id] = err
}

func (p *Provisioner) FailHealth(id domain.AccountID, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failHealth, id)
		return
	}
	p.failHealth[id] = err
}

// SetStartDelay makes StartSession block for d (or until ctx is canceled),
// simulating slow remote provisioning.
func (p *Provisioner) SetStartDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startDelay = d
}

func (p *Provisioner) StartSession(ctx context.Context, account domain.Account) (ports.SessionInfo, error) {
	p.mu.Lock()
	delay := p.startDelay
	scripted := p.failStart[account.ID]
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ports.SessionInfo{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return ports.SessionInfo{}, err
	}
	if scripted != nil {
		return ports.SessionInfo{}, scripted
	}

	p.mu.Lock()
	p.started[account.ID]++
	count := p.started[account.ID]
	p.mu.Unlock()

	return ports.SessionInfo{
		RemoteID: fmt.Sprintf("node-%s-%d", account.ID, count),
		Endpoint: fmt.Sprintf("wss://203.0.113.%d:7443/session", 10+count%200),
		Telemetry: &domain.Telemetry{
			MemoryUsedMB:  2048,
			MemoryTotalMB: 8192,
			Utilization:   0.35,
			CapturedAt:    time.Now(),
		},
	}, nil
}

func (p *Provisioner) StopSession(ctx context.Context, account domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	p.stopped[account.ID]++
	p.mu.Unlock()
	return nil
}

func (p *Provisioner) HealthCheck(ctx context.Context, account domain.Account) (ports.Health, error) {
	if err := ctx.Err(); err != nil {
		return ports.Health{}, err
	}

	p.mu.Lock()
	scripted := p.failHealth[account.ID]
	p.mu.Unlock()

	if scripted != nil {
		return ports.Health{OK: false, Detail: scripted.Error()}, nil
	}
	return ports.Health{OK: true, Detail: "ok"}, nil
}

// Started reports how many sessions were successfully started for an account.
func (p *Provisioner) Started(id domain.AccountID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started[id]
}

// Stopped reports how many teardown calls an account received.
func (p *Provisioner) Stopped(id domain.AccountID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped[id]
}
