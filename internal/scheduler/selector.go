package scheduler

import (
	"sort"

	"github.com/bnema/rotorpool/internal/domain"
)

// eligible is the single predicate deciding whether an account may be picked
// by a rotation strategy.
func eligible(a domain.Account) bool {
	return a.Enabled && a.Status == domain.StatusActive && a.Remaining() > 0
}

// selectNext picks the next account according to the configured strategy.
// accounts must be in registry (insertion) order; that order is what
// round-robin cycles over. cursor is the last account round-robin selected,
// exclude is an account that must not be picked again this switch (the one
// being rotated out). Returns false when no eligible account exists.
func selectNext(accounts []domain.Account, settings domain.PoolSettings, cursor, exclude domain.AccountID) (domain.AccountID, bool) {
	candidates := make([]domain.Account, 0, len(accounts))
	for _, a := range accounts {
		if a.ID == exclude {
			continue
		}
		// Emergency accounts are a reserve; only selectEmergency picks them.
		if a.Emergency {
			continue
		}
		if eligible(a) {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	switch settings.Strategy {
	case domain.StrategyRoundRobin:
		return roundRobinPick(accounts, candidates, cursor), true
	case domain.StrategyLeastUsed:
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].UsedToday != candidates[j].UsedToday {
				return candidates[i].UsedToday < candidates[j].UsedToday
			}
			if candidates[i].Priority != candidates[j].Priority {
				return candidates[i].Priority < candidates[j].Priority
			}
			return candidates[i].ID < candidates[j].ID
		})
		return candidates[0].ID, true
	default:
		// Priority: ascending priority, ties broken by least-recently-used
		// with never-used sorting first, then by ID for reproducibility.
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].Priority != candidates[j].Priority {
				return candidates[i].Priority < candidates[j].Priority
			}
			if !candidates[i].LastUsedAt.Equal(candidates[j].LastUsedAt) {
				if candidates[i].LastUsedAt.IsZero() {
					return true
				}
				if candidates[j].LastUsedAt.IsZero() {
					return false
				}
				return candidates[i].LastUsedAt.Before(candidates[j].LastUsedAt)
			}
			return candidates[i].ID < candidates[j].ID
		})
		return candidates[0].ID, true
	}
}

// roundRobinPick resumes the cycle at the first eligible account after the
// cursor's registry position, wrapping. accounts carry the full registry
// order; candidates are the already-filtered eligible subset. A cursor no
// longer in the registry restarts the cycle.
func roundRobinPick(accounts, candidates []domain.Account, cursor domain.AccountID) domain.AccountID {
	pos := -1
	for i, a := range accounts {
		if a.ID == cursor {
			pos = i
			break
		}
	}
	if pos == -1 {
		return candidates[0].ID
	}

	pickable := make(map[domain.AccountID]bool, len(candidates))
	for _, c := range candidates {
		pickable[c.ID] = true
	}
	for off := 1; off <= len(accounts); off++ {
		if a := accounts[(pos+off)%len(accounts)]; pickable[a.ID] {
			return a.ID
		}
	}
	return candidates[0].ID
}

// selectEmergency picks the designated fallback, independent of normal
// eligibility: quota exhaustion and cooldown do not disqualify it, only a
// disabled flag or suspension does.
func selectEmergency(accounts []domain.Account, exclude domain.AccountID) (domain.AccountID, bool) {
	best := -1
	for i, a := range accounts {
		if !a.Emergency || !a.Enabled || a.ID == exclude {
			continue
		}
		if a.Status == domain.StatusSuspended || a.Status == domain.StatusRunning {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		if a.Priority < accounts[best].Priority ||
			(a.Priority == accounts[best].Priority && a.ID < accounts[best].ID) {
			best = i
		}
	}
	if best == -1 {
		return "", false
	}
	return accounts[best].ID, true
}
