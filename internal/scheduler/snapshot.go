package scheduler

import (
	"github.com/bnema/rotorpool/internal/domain"
)

// PoolStatus is a consistent point-in-time projection of the pool. All fields
// are copies; mutating them has no effect on the scheduler.
type PoolStatus struct {
	ActiveAccountID domain.AccountID
	ActiveSession   *domain.Session
	EmergencyActive bool
	IsPoolAvailable bool
	EligibleCount   int
	TotalAccounts   int
	Settings        domain.PoolSettings
}

func (s *Scheduler) PoolStatus() PoolStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := PoolStatus{
		ActiveAccountID: s.current,
		EmergencyActive: s.emergency,
		IsPoolAvailable: s.availableLocked(),
		TotalAccounts:   len(s.order),
		Settings:        s.settings,
	}
	for _, id := range s.order {
		if acc := s.accounts[id]; !acc.Emergency && eligible(*acc) {
			status.EligibleCount++
		}
	}
	if s.current != "" {
		if acc := s.accounts[s.current]; acc != nil && !acc.SessionStart.IsZero() {
			status.ActiveSession = &domain.Session{AccountID: acc.ID, StartedAt: acc.SessionStart}
		}
	}
	return status
}

// Accounts returns copies of all accounts in registry order.
func (s *Scheduler) Accounts() []domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountsInOrderLocked()
}

func (s *Scheduler) Account(id domain.AccountID) (domain.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, false
	}
	return acc.Clone(), true
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events.stats
}

// RecentEvents returns up to n pool events, newest first.
func (s *Scheduler) RecentEvents(n int) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events.recent(n)
}
