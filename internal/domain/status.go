package domain

import "fmt"

// Status is an account's lifecycle state. All transitions funnel through
// Transition and the table below; nothing else in the codebase flips
// statuses ad hoc.
type Status string

const (
	// StatusActive: eligible for selection, idle.
	StatusActive Status = "active"
	// StatusRunning: currently serving the pool's session.
	StatusRunning Status = "running"
	// StatusCooldown: timed ineligibility after exhaustion or session-max.
	StatusCooldown Status = "cooldown"
	// StatusError: unexpected provisioning or health failure.
	StatusError Status = "error"
	// StatusSuspended: terminal until an explicit recover succeeds.
	StatusSuspended Status = "suspended"
	// StatusPaused: manual override from Running; resume returns it to Active.
	StatusPaused Status = "paused"
)

var statusTransitions = map[Status]map[Status]bool{
	StatusActive: {
		StatusRunning: true,
		StatusError:   true,
		// Fatal provisioning failure of a prestart target.
		StatusSuspended: true,
	},
	StatusRunning: {
		StatusActive:    true,
		StatusCooldown:  true,
		StatusError:     true,
		StatusSuspended: true,
		StatusPaused:    true,
	},
	StatusCooldown: {
		StatusActive: true,
		// Forced activation and the emergency reserve bypass the wait.
		StatusRunning: true,
	},
	StatusError: {
		StatusActive:    true,
		StatusRunning:   true,
		StatusSuspended: true,
	},
	StatusSuspended: {
		StatusActive: true,
	},
	StatusPaused: {
		StatusActive: true,
		// Forced activation.
		StatusRunning: true,
	},
}

func (s Status) CanTransitionTo(to Status) bool {
	return statusTransitions[s][to]
}

// Transition moves the account to the target status after consulting the
// transition table. A same-status move is a no-op; a rejected move leaves
// the status untouched.
func (a *Account) Transition(to Status) error {
	if a.Status == to {
		return nil
	}
	if !a.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, a.Status, to)
	}
	a.Status = to
	return nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusRunning, StatusCooldown, StatusError, StatusSuspended, StatusPaused:
		return true
	default:
		return false
	}
}
