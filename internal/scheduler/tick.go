package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bnema/rotorpool/internal/domain"
	"github.com/bnema/rotorpool/internal/ports"
)

// Tick is the single entry point for all time-based behavior. Within one
// tick: async provisioner results are applied first, then quota accrual for
// the running account, daily resets, cooldown expiries, the switch-required
// evaluation, and finally the prestart check. Quota accrual always precedes
// the switch evaluation so a rotation never acts on stale numbers.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drainResultsLocked(now)

	if s.current != "" && !s.lastTick.IsZero() {
		if acc := s.accounts[s.current]; acc != nil && acc.Status == domain.StatusRunning {
			elapsed := now.Sub(s.lastTick)
			// A session started between ticks is only charged from its start.
			if acc.SessionStart.After(s.lastTick) {
				elapsed = now.Sub(acc.SessionStart)
			}
			if domain.Accrue(acc, elapsed) {
				s.emit(*acc, domain.EventQuotaExceeded, domain.SeverityWarning, "daily quota exhausted", now)
			} else if acc.PercentUsed() >= s.settings.LowQuotaThresholdPct && acc.Remaining() > 0 {
				s.warnLowQuotaLocked(*acc, now)
			}
		}
	}
	s.lastTick = now

	for _, id := range s.order {
		acc := s.accounts[id]
		if domain.ResetIfDue(acc, now) {
			s.emit(*acc, domain.EventQuotaReset, domain.SeverityInfo, "daily quota reset", now)
		}
	}

	s.expireCooldownsLocked(now)

	if s.current != "" {
		if acc := s.accounts[s.current]; acc != nil && acc.Status == domain.StatusRunning {
			if reason := s.monitor.evaluate(*acc, s.settings, now); reason != switchNone {
				s.performSwitchLocked(now, reason)
			}
		}
	}

	if s.current == "" {
		s.ensureSessionLocked(now)
	}

	s.maybePrestartLocked(now)
	s.updateAvailabilityLocked(now)

	if err := s.saveLocked(ctx); err != nil {
		s.log.Warn().Err(err).Msg("persist pool state after tick")
	}
}

// Run drives Tick on the configured interval until ctx is canceled. Quota
// accrued up to the last completed tick is already persisted, so stopping
// loses nothing.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	interval := s.settings.TickInterval
	s.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx, s.clock.Now())

			s.mu.Lock()
			next := s.settings.TickInterval
			s.mu.Unlock()
			if next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

func (s *Scheduler) expireCooldownsLocked(now time.Time) {
	for _, id := range s.order {
		acc := s.accounts[id]
		if acc.CooldownUntil.IsZero() || now.Before(acc.CooldownUntil) {
			continue
		}
		switch acc.Status {
		case domain.StatusCooldown:
			s.transitionLocked(acc, domain.StatusActive)
			acc.CooldownUntil = time.Time{}
			acc.CooldownReason = ""
			s.emit(*acc, domain.EventStatusChanged, domain.SeverityInfo, "cooldown expired", now)
		case domain.StatusError:
			// Errored accounts re-enter rotation after a cooldown-length
			// backoff; the failure streak is kept so repeated failures still
			// escalate to Suspended.
			s.transitionLocked(acc, domain.StatusActive)
			acc.CooldownUntil = time.Time{}
			s.emit(*acc, domain.EventStatusChanged, domain.SeverityInfo, "error backoff expired, retrying", now)
		}
	}
}

func (s *Scheduler) performSwitchLocked(now time.Time, reason switchReason) {
	old := s.accounts[s.current]
	oldID := old.ID

	next, emergencyPick, ok := s.pickCandidateLocked(oldID)
	nextLabel := "none"
	if ok {
		nextLabel = string(next)
	}
	s.emit(*old, domain.EventSwitchRequired, switchSeverity(reason),
		"switch required ("+string(reason)+"): current="+string(oldID)+" next="+nextLabel, now)

	// A soft rotation with no destination keeps the session: ending it would
	// only re-pick the same account and churn the remote session every tick.
	// Hard triggers end unconditionally; the account must cool down.
	if !ok && !reason.hard() {
		return
	}

	if reason.hard() {
		s.endCurrentLocked(now, domain.StatusCooldown, reason, "session ended: "+string(reason))
	} else {
		// A soft low-quota rotation is deliberate, not exhaustion; the
		// account stays eligible.
		s.endCurrentLocked(now, domain.StatusActive, "", "session ended: "+string(reason))
	}

	if !ok {
		return
	}

	s.startSessionLocked(next, now, emergencyPick)
	if emergencyPick {
		s.emit(*s.accounts[next], domain.EventEmergencyActivated, domain.SeverityWarning, "emergency account activated", now)
	}
	s.emit(*s.accounts[next], domain.EventAccountRotated, domain.SeverityInfo,
		"rotated "+string(oldID)+" -> "+string(next), now)
}

// pickCandidateLocked resolves the cutover target. An in-flight or completed
// prestart wins over a fresh selector pick, even if the eligible set has
// shifted since the prestart was issued.
func (s *Scheduler) pickCandidateLocked(exclude domain.AccountID) (domain.AccountID, bool, bool) {
	if s.prestart != nil && s.prestart.id != exclude {
		if acc, ok := s.accounts[s.prestart.id]; ok && acc.Enabled && acc.Status != domain.StatusSuspended {
			return s.prestart.id, false, true
		}
		s.cancelPrestartLocked(s.prestart.id)
	}

	if id, ok := selectNext(s.accountsInOrderLocked(), s.settings, s.cursor, exclude); ok {
		return id, false, true
	}
	if s.settings.AutoFailover {
		if id, ok := selectEmergency(s.accountsInOrderLocked(), exclude); ok {
			return id, true, true
		}
	}
	return "", false, false
}

func (s *Scheduler) ensureSessionLocked(now time.Time) {
	next, emergencyPick, ok := s.pickCandidateLocked("")
	if !ok {
		return
	}

	s.startSessionLocked(next, now, emergencyPick)
	if emergencyPick {
		s.emit(*s.accounts[next], domain.EventEmergencyActivated, domain.SeverityWarning, "emergency account activated", now)
	}
}

func (s *Scheduler) startSessionLocked(id domain.AccountID, now time.Time, emergency bool) {
	acc := s.accounts[id]

	prestarted := s.prestart != nil && s.prestart.id == id
	if prestarted {
		s.prestart = nil
	}

	s.transitionLocked(acc, domain.StatusRunning)
	acc.SessionStart = now
	acc.LastUsedAt = now
	acc.SessionCount++
	acc.CooldownUntil = time.Time{}
	acc.CooldownReason = ""

	s.current = id
	s.emergency = emergency
	s.cursor = id
	s.monitor.reset()

	// A ready prestart already holds a provisioned session; an in-flight one
	// keeps its pending StartSession, whose result is applied as if it were
	// the live start.
	if !prestarted {
		s.dispatchLocked(opStart, acc.Clone())
	}

	s.emit(*acc, domain.EventSessionStarted, domain.SeverityInfo, "session started", now)
}

// endCurrentLocked transitions the session holder out of Running into target,
// cancels its in-flight provisioning, and dispatches the async teardown.
func (s *Scheduler) endCurrentLocked(now time.Time, target domain.Status, reason switchReason, message string) {
	acc := s.accounts[s.current]
	if acc == nil {
		s.current = ""
		return
	}

	s.cancelProvisioningLocked(acc.ID)

	s.transitionLocked(acc, target)
	if target == domain.StatusCooldown {
		acc.CooldownUntil = now.Add(s.settings.CooldownDuration)
		acc.CooldownReason = cooldownReasonFor(reason)
	}
	acc.SessionStart = time.Time{}
	acc.LastUsedAt = now
	acc.Telemetry = nil

	s.dispatchLocked(opStop, acc.Clone())

	s.current = ""
	s.emergency = false
	s.monitor.reset()

	s.emit(*acc, domain.EventSessionEnded, domain.SeverityInfo, message, now)
}

func (s *Scheduler) maybePrestartLocked(now time.Time) {
	if s.current == "" || s.settings.PrestartLeadTime <= 0 {
		return
	}
	acc := s.accounts[s.current]
	if acc == nil || acc.Status != domain.StatusRunning {
		return
	}

	sessionLeft := acc.MaxSessionTime - acc.SessionDuration(now)
	quotaLeft := acc.Remaining()
	left := sessionLeft
	if quotaLeft < left {
		left = quotaLeft
	}
	if left <= s.settings.PrestartLeadTime {
		s.prestartLocked(now)
	}
}

func (s *Scheduler) prestartLocked(now time.Time) {
	// One prestart at a time. A second call while one is in flight is a
	// no-op, including for a different candidate: the in-flight prestart
	// keeps its claim on the upcoming cutover.
	if s.prestart != nil {
		return
	}

	id, ok := selectNext(s.accountsInOrderLocked(), s.settings, s.cursor, s.current)
	if !ok {
		return
	}

	s.prestart = &prestartState{id: id}
	acc := s.accounts[id]
	s.dispatchLocked(opPrestart, acc.Clone())
	s.emit(*acc, domain.EventPrestartTriggered, domain.SeverityInfo, "prestarting next candidate", now)
}

func (s *Scheduler) dispatchLocked(op provisionOp, acc domain.Account) {
	timeout := provisionTimeout
	if op == opStop {
		timeout = stopTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	s.opSeq++
	seq := s.opSeq
	s.inflight[seq] = inflightOp{id: acc.ID, op: op, cancel: cancel}

	go func() {
		defer cancel()
		var (
			info ports.SessionInfo
			err  error
		)
		switch op {
		case opStop:
			err = s.prov.StopSession(ctx, acc)
		default:
			info, err = s.prov.StartSession(ctx, acc)
		}
		s.results <- provisionResult{seq: seq, op: op, id: acc.ID, info: info, err: err}
	}()
}

func (s *Scheduler) drainResultsLocked(now time.Time) {
	for {
		select {
		case res := <-s.results:
			s.applyResultLocked(res, now)
		default:
			return
		}
	}
}

func (s *Scheduler) applyResultLocked(res provisionResult, now time.Time) {
	_, tracked := s.inflight[res.seq]
	if tracked {
		delete(s.inflight, res.seq)
	}

	acc, exists := s.accounts[res.id]
	if !exists {
		s.log.Debug().Str("account", string(res.id)).Msg("provisioner result for removed account")
		return
	}
	// Canceled work may still report in; its outcome no longer applies.
	if !tracked {
		if res.op != opStop && res.err == nil {
			s.dispatchLocked(opStop, acc.Clone())
		}
		return
	}

	switch res.op {
	case opStop:
		if res.err != nil {
			s.log.Warn().Err(res.err).Str("account", string(res.id)).Msg("stop session failed")
			return
		}
		s.emit(*acc, domain.EventDisconnected, domain.SeverityInfo, "remote session torn down", now)

	case opStart:
		s.applyStartResultLocked(acc, res, now)

	case opPrestart:
		switch {
		case s.current == res.id:
			// The prestart was promoted into the live session before its
			// provisioning finished.
			s.applyStartResultLocked(acc, res, now)
		case s.prestart != nil && s.prestart.id == res.id:
			if res.err != nil {
				s.prestart = nil
				s.failAccountLocked(acc, res.err, now)
				return
			}
			s.prestart.ready = true
			acc.Successes++
			acc.FailureStreak = 0
			acc.LastError = ""
			s.log.Debug().Str("account", string(res.id)).Msg("prestart ready")
		default:
			// Orphaned prestart: candidate lost its claim while provisioning.
			if res.err == nil {
				s.dispatchLocked(opStop, acc.Clone())
			}
		}
	}
}

func (s *Scheduler) applyStartResultLocked(acc *domain.Account, res provisionResult, now time.Time) {
	if res.err != nil {
		s.failAccountLocked(acc, res.err, now)
		return
	}
	if s.current != acc.ID || acc.Status != domain.StatusRunning {
		// Session ended while provisioning was still in flight; tear the
		// orphaned remote session down.
		s.dispatchLocked(opStop, acc.Clone())
		return
	}

	acc.Successes++
	acc.FailureStreak = 0
	acc.LastError = ""
	if res.info.Telemetry != nil {
		telemetry := *res.info.Telemetry
		acc.Telemetry = &telemetry
	}
	s.emit(*acc, domain.EventConnected, domain.SeverityInfo, "remote session established", now)
}

// failAccountLocked absorbs a provisioning failure into the account's status:
// Error with a retry backoff, or Suspended when failures recur past the retry
// budget or the failure class is fatal.
func (s *Scheduler) failAccountLocked(acc *domain.Account, err error, now time.Time) {
	wasCurrent := s.current == acc.ID

	acc.LastError = err.Error()
	acc.Failures++
	acc.FailureStreak++
	acc.Telemetry = nil
	acc.SessionStart = time.Time{}

	fatal := errors.Is(err, ports.ErrFatalProvision)
	severity := domain.SeverityWarning
	if fatal || acc.FailureStreak > 1 {
		severity = domain.SeverityCritical
	}

	if fatal || acc.FailureStreak > retryBudget {
		s.transitionLocked(acc, domain.StatusSuspended)
		acc.CooldownUntil = time.Time{}
		s.emit(*acc, domain.EventError, severity, "account suspended: "+err.Error(), now)
	} else {
		s.transitionLocked(acc, domain.StatusError)
		acc.CooldownUntil = now.Add(s.settings.CooldownDuration)
		s.emit(*acc, domain.EventError, severity, "provisioning failed: "+err.Error(), now)
	}

	if wasCurrent {
		s.current = ""
		s.emergency = false
		s.monitor.reset()
		s.emit(*acc, domain.EventSessionEnded, domain.SeverityWarning, "session aborted: provisioning failed", now)
	}
}

func (s *Scheduler) warnLowQuotaLocked(acc domain.Account, now time.Time) {
	// Advisory only; the monitor owns the once-per-session switch condition.
	if s.monitor.raisedLow || s.monitor.raisedExhausted {
		return
	}
	if !s.monitor.warnedQuota {
		s.monitor.warnedQuota = true
		s.emit(acc, domain.EventQuotaWarning, domain.SeverityWarning, "daily quota running low", now)
	}
}

func (s *Scheduler) updateAvailabilityLocked(now time.Time) {
	available := s.availableLocked()
	if s.availSet && available == s.available {
		return
	}
	first := !s.availSet
	s.availSet = true
	s.available = available

	if !available {
		s.emit(domain.Account{}, domain.EventPoolExhausted, domain.SeverityCritical,
			"no eligible or emergency account; pool unavailable", now)
	} else if !first {
		s.emit(domain.Account{}, domain.EventStatusChanged, domain.SeverityInfo, "pool available again", now)
	}
}

func (s *Scheduler) availableLocked() bool {
	if s.current != "" {
		return true
	}
	accounts := s.accountsInOrderLocked()
	for _, a := range accounts {
		if !a.Emergency && eligible(a) {
			return true
		}
	}
	if s.settings.AutoFailover {
		if _, ok := selectEmergency(accounts, ""); ok {
			return true
		}
	}
	return false
}

func (s *Scheduler) accountsInOrderLocked() []domain.Account {
	out := make([]domain.Account, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.accounts[id].Clone())
	}
	return out
}

// cancelProvisioningLocked cancels pending start/prestart work for an
// account. Teardown ops are left alone so a remote session is never leaked.
func (s *Scheduler) cancelProvisioningLocked(id domain.AccountID) {
	for seq, op := range s.inflight {
		if op.id == id && op.op != opStop {
			op.cancel()
			delete(s.inflight, seq)
		}
	}
}

func cooldownReasonFor(reason switchReason) domain.CooldownReason {
	if reason == switchQuotaExhausted {
		return domain.CooldownQuotaExhausted
	}
	return domain.CooldownSessionMax
}

func switchSeverity(reason switchReason) domain.Severity {
	if reason.hard() {
		return domain.SeverityWarning
	}
	return domain.SeverityInfo
}
