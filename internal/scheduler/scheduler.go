package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bnema/rotorpool/internal/domain"
	"github.com/bnema/rotorpool/internal/ports"
)

const (
	provisionTimeout = 90 * time.Second
	stopTimeout      = 30 * time.Second
	healthTimeout    = 5 * time.Second
	retryBudget      = 3
	resultBuffer     = 64
)

// Scheduler is the single owner of all pool state. Every mutation serializes
// through its mutex; reads are copy-out snapshots taken under the same lock.
// Provisioner calls never run inline: they are dispatched as cancelable
// goroutines whose results land on the results channel and are applied at the
// start of a subsequent tick.
type Scheduler struct {
	mu sync.Mutex

	clock ports.Clock
	store ports.PoolStore
	prov  ports.Provisioner
	log   zerolog.Logger

	accounts map[domain.AccountID]*domain.Account
	order    []domain.AccountID
	settings domain.PoolSettings

	current   domain.AccountID
	emergency bool
	monitor   sessionMonitor
	cursor    domain.AccountID

	prestart *prestartState
	results  chan provisionResult
	inflight map[uint64]inflightOp
	opSeq    uint64

	events    *eventLog
	observers *observerSet

	lastTick  time.Time
	available bool
	availSet  bool
}

type prestartState struct {
	id    domain.AccountID
	ready bool
}

type provisionOp int

const (
	opStart provisionOp = iota
	opPrestart
	opStop
)

type inflightOp struct {
	id     domain.AccountID
	op     provisionOp
	cancel context.CancelFunc
}

type provisionResult struct {
	seq  uint64
	op   provisionOp
	id   domain.AccountID
	info ports.SessionInfo
	err  error
}

func New(store ports.PoolStore, prov ports.Provisioner, clock ports.Clock, log zerolog.Logger) *Scheduler {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Scheduler{
		clock:     clock,
		store:     store,
		prov:      prov,
		log:       log,
		accounts:  map[domain.AccountID]*domain.Account{},
		settings:  domain.DefaultSettings(),
		results:   make(chan provisionResult, resultBuffer),
		inflight:  map[uint64]inflightOp{},
		events:    newEventLog(defaultEventCapacity, clock.Now()),
		observers: newObserverSet(),
	}
}

// Load replaces in-memory pool state with the persisted snapshot. A session
// that was Running when the previous process died cannot be resumed, so such
// accounts are demoted to Active.
func (s *Scheduler) Load(ctx context.Context) error {
	snapshot, err := s.store.LoadPool(ctx)
	if err != nil {
		return fmt.Errorf("load pool: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = make(map[domain.AccountID]*domain.Account, len(snapshot.Accounts))
	s.order = s.order[:0]
	for _, loaded := range snapshot.Accounts {
		acc := loaded.Clone()
		if acc.Status == domain.StatusRunning {
			s.transitionLocked(&acc, domain.StatusActive)
			acc.SessionStart = time.Time{}
			acc.Telemetry = nil
		}
		s.accounts[acc.ID] = &acc
		s.order = append(s.order, acc.ID)
	}
	s.settings = snapshot.Settings
	s.cursor = snapshot.RotationCursor
	s.current = ""
	s.emergency = false
	s.monitor.reset()

	return nil
}

// AddAccount validates and inserts a new account with default status Active.
// A missing ID is generated; priority, quota, and session-length defaults are
// applied to zero values.
func (s *Scheduler) AddAccount(ctx context.Context, acc domain.Account) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if acc.ID == "" {
		acc.ID = domain.AccountID(uuid.NewString())
	}
	acc.Status = domain.StatusActive
	acc.ApplyDefaults()
	if err := acc.Validate(); err != nil {
		return domain.Account{}, err
	}
	if _, exists := s.accounts[acc.ID]; exists {
		return domain.Account{}, fmt.Errorf("%w: id %s", domain.ErrDuplicateAccount, acc.ID)
	}
	for _, id := range s.order {
		if s.accounts[id].Name == acc.Name {
			return domain.Account{}, fmt.Errorf("%w: name %q", domain.ErrDuplicateAccount, acc.Name)
		}
	}

	acc.LastResetDay = domain.DayKey(now)
	stored := acc.Clone()
	s.accounts[stored.ID] = &stored
	s.order = append(s.order, stored.ID)

	s.emit(stored, domain.EventStatusChanged, domain.SeverityInfo, "account added", now)

	if err := s.saveLocked(ctx); err != nil {
		return domain.Account{}, err
	}
	return stored.Clone(), nil
}

// RemoveAccount deletes an account. If it currently holds the session, the
// session is ended (and any in-flight provisioning canceled) first.
func (s *Scheduler) RemoveAccount(ctx context.Context, id domain.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}

	now := s.clock.Now()
	if s.current == id {
		s.endCurrentLocked(now, domain.StatusActive, "", "session ended: account removed")
	}
	if s.prestart != nil && s.prestart.id == id {
		s.cancelPrestartLocked(id)
	}
	s.cancelProvisioningLocked(id)

	delete(s.accounts, id)
	for i, ordered := range s.order {
		if ordered == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.cursor == id {
		s.cursor = ""
	}

	s.emit(*acc, domain.EventStatusChanged, domain.SeverityInfo, "account removed", now)
	return s.saveLocked(ctx)
}

// UpdateAccount replaces an account's configuration. Runtime state (status,
// usage, counters, session timing) is preserved; it is re-evaluated on the
// next tick, never retroactively mid-tick.
func (s *Scheduler) UpdateAccount(ctx context.Context, acc domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.accounts[acc.ID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, acc.ID)
	}

	updated := existing.Clone()
	updated.Name = acc.Name
	updated.Provider = acc.Provider
	updated.Tier = acc.Tier
	updated.Priority = acc.Priority
	updated.Enabled = acc.Enabled
	updated.Emergency = acc.Emergency
	updated.DailyLimit = acc.DailyLimit
	updated.MaxSessionTime = acc.MaxSessionTime
	updated.ApplyDefaults()
	if err := updated.Validate(); err != nil {
		return err
	}

	now := s.clock.Now()
	if !updated.Enabled && s.current == acc.ID {
		s.endCurrentLocked(now, domain.StatusActive, "", "session ended: account disabled")
		s.transitionLocked(&updated, domain.StatusActive)
		updated.SessionStart = time.Time{}
		updated.Telemetry = nil
	}

	*existing = updated
	s.emit(updated, domain.EventStatusChanged, domain.SeverityInfo, "account updated", now)
	return s.saveLocked(ctx)
}

func (s *Scheduler) UpdateSettings(ctx context.Context, settings domain.PoolSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = settings
	return s.saveLocked(ctx)
}

// SetEnabled flips the rotation flag without touching stored quota or
// history. Disabling the session holder ends its session first.
func (s *Scheduler) SetEnabled(ctx context.Context, id domain.AccountID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}

	now := s.clock.Now()
	if !enabled && s.current == id {
		s.endCurrentLocked(now, domain.StatusActive, "", "session ended: account disabled")
	}
	acc.Enabled = enabled

	verb := "disabled"
	if enabled {
		verb = "enabled"
	}
	s.emit(*acc, domain.EventStatusChanged, domain.SeverityInfo, "account "+verb, now)
	return s.saveLocked(ctx)
}

// SetActive manually overrides rotation. Without force the target must pass
// the normal eligibility predicate; force is reserved for manual recovery
// flows and only refuses suspended targets.
func (s *Scheduler) SetActive(ctx context.Context, id domain.AccountID, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	if s.current == id {
		return nil
	}
	if !force && !eligible(*acc) {
		return fmt.Errorf("%w: %s is %s", domain.ErrIneligible, id, acc.Status)
	}
	if force && acc.Status == domain.StatusSuspended {
		return fmt.Errorf("%w: %s is suspended; recover it first", domain.ErrIneligible, id)
	}

	now := s.clock.Now()
	if s.current != "" {
		s.endCurrentLocked(now, domain.StatusActive, "", "session ended: manual switch")
	}
	s.startSessionLocked(id, now, false)
	return s.saveLocked(ctx)
}

// EndSession deliberately stops the current session. The account returns to
// Active, not Cooldown: this is an operator stop, not exhaustion.
func (s *Scheduler) EndSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == "" {
		return domain.ErrNoActiveSession
	}

	s.endCurrentLocked(s.clock.Now(), domain.StatusActive, "", "session ended by operator")
	return s.saveLocked(ctx)
}

// PauseAccount is the manual override from Running: the session ends and the
// account sits out of rotation until resumed.
func (s *Scheduler) PauseAccount(ctx context.Context, id domain.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	if acc.Status != domain.StatusRunning || s.current != id {
		return fmt.Errorf("%w: %s is not running", domain.ErrIneligible, id)
	}

	s.endCurrentLocked(s.clock.Now(), domain.StatusPaused, "", "account paused")
	return s.saveLocked(ctx)
}

func (s *Scheduler) ResumeAccount(ctx context.Context, id domain.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	if acc.Status != domain.StatusPaused {
		return fmt.Errorf("%w: %s is not paused", domain.ErrIneligible, id)
	}

	s.transitionLocked(acc, domain.StatusActive)
	s.emit(*acc, domain.EventStatusChanged, domain.SeverityInfo, "account resumed", s.clock.Now())
	return s.saveLocked(ctx)
}

// RecoverAccount attempts Suspended/Error -> Active. The transition is only
// allowed after a fresh health check through the provisioner; refusal leaves
// the account where it was with an updated last error.
func (s *Scheduler) RecoverAccount(ctx context.Context, id domain.AccountID) error {
	s.mu.Lock()
	acc, ok := s.accounts[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	if acc.Status != domain.StatusSuspended && acc.Status != domain.StatusError {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s is %s, not suspended or errored", domain.ErrIneligible, id, acc.Status)
	}
	probe := acc.Clone()
	s.mu.Unlock()

	hctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	health, err := s.prov.HealthCheck(hctx, probe)

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok = s.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}

	now := s.clock.Now()
	if err != nil || !health.OK {
		detail := health.Detail
		if err != nil {
			detail = err.Error()
		}
		acc.LastError = detail
		s.emit(*acc, domain.EventError, domain.SeverityWarning, "recovery refused: "+detail, now)
		_ = s.saveLocked(ctx)
		return fmt.Errorf("%w: health check failed: %s", domain.ErrProvisioning, detail)
	}

	s.transitionLocked(acc, domain.StatusActive)
	acc.LastError = ""
	acc.FailureStreak = 0
	acc.CooldownUntil = time.Time{}
	acc.CooldownReason = ""
	s.emit(*acc, domain.EventStatusChanged, domain.SeverityInfo, "account recovered", now)
	return s.saveLocked(ctx)
}

// ResetDailyQuota is the operator override of the automatic daily reset.
func (s *Scheduler) ResetDailyQuota(ctx context.Context, id domain.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}

	now := s.clock.Now()
	domain.ResetQuota(acc, now)
	s.emit(*acc, domain.EventQuotaReset, domain.SeverityInfo, "daily quota reset by operator", now)
	return s.saveLocked(ctx)
}

// PrestartNext provisions the selector's current top candidate ahead of an
// anticipated switch. Calling it while a prestart is already in flight is a
// no-op.
func (s *Scheduler) PrestartNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prestartLocked(s.clock.Now())
}

// Subscribe registers an observer for all emitted pool events. The returned
// function unsubscribes; slow observers drop events rather than block the
// scheduler.
func (s *Scheduler) Subscribe(buffer int) (<-chan domain.Event, func()) {
	return s.observers.subscribe(buffer)
}

// transitionLocked flips an account's status through the domain transition
// table. A rejected move is a bug; it is logged and the status left as is.
func (s *Scheduler) transitionLocked(acc *domain.Account, to domain.Status) {
	if err := acc.Transition(to); err != nil {
		s.log.Error().Err(err).Str("account", string(acc.ID)).Msg("status transition rejected")
	}
}

func (s *Scheduler) emit(acc domain.Account, kind domain.EventKind, severity domain.Severity, message string, now time.Time) {
	e := domain.Event{
		AccountID:   acc.ID,
		AccountName: acc.Name,
		Kind:        kind,
		Message:     message,
		Time:        now,
		Severity:    severity,
	}
	s.events.append(e)
	s.observers.publish(e)

	logEvent := s.log.Info()
	switch severity {
	case domain.SeverityWarning:
		logEvent = s.log.Warn()
	case domain.SeverityCritical:
		logEvent = s.log.Error()
	}
	logEvent.
		Str("account", string(acc.ID)).
		Str("kind", string(kind)).
		Msg(message)
}

func (s *Scheduler) saveLocked(ctx context.Context) error {
	snapshot := ports.PoolSnapshot{
		Accounts:        make([]domain.Account, 0, len(s.order)),
		Settings:        s.settings,
		ActiveAccountID: s.current,
		RotationCursor:  s.cursor,
	}
	for _, id := range s.order {
		snapshot.Accounts = append(snapshot.Accounts, s.accounts[id].Clone())
	}

	if err := s.store.SavePool(ctx, snapshot); err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	return nil
}

func (s *Scheduler) cancelPrestartLocked(id domain.AccountID) {
	s.prestart = nil
	s.cancelProvisioningLocked(id)
}
