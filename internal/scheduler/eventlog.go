package scheduler

import (
	"time"

	"github.com/bnema/rotorpool/internal/domain"
)

const defaultEventCapacity = 500

// Stats are aggregate pool counters derived from the event stream.
type Stats struct {
	TotalEvents          int
	SessionsStarted      int
	SessionsEnded        int
	Rotations            int
	EmergencyActivations int
	Prestarts            int
	QuotaResets          int
	ProvisionFailures    int
	CollectedSince       time.Time
}

// eventLog is a bounded ring of pool events plus the aggregate counters.
// It has no lock of its own: callers hold the scheduler mutex.
type eventLog struct {
	capacity int
	entries  []domain.Event
	stats    Stats
}

func newEventLog(capacity int, now time.Time) *eventLog {
	if capacity <= 0 {
		capacity = defaultEventCapacity
	}
	return &eventLog{
		capacity: capacity,
		entries:  make([]domain.Event, 0, capacity),
		stats:    Stats{CollectedSince: now},
	}
}

func (l *eventLog) append(e domain.Event) {
	if len(l.entries) == l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:l.capacity-1]
	}
	l.entries = append(l.entries, e)

	l.stats.TotalEvents++
	switch e.Kind {
	case domain.EventSessionStarted:
		l.stats.SessionsStarted++
	case domain.EventSessionEnded:
		l.stats.SessionsEnded++
	case domain.EventAccountRotated:
		l.stats.Rotations++
	case domain.EventEmergencyActivated:
		l.stats.EmergencyActivations++
	case domain.EventPrestartTriggered:
		l.stats.Prestarts++
	case domain.EventQuotaReset:
		l.stats.QuotaResets++
	case domain.EventError, domain.EventTaskFailed:
		l.stats.ProvisionFailures++
	}
}

// recent returns up to n events, newest first.
func (l *eventLog) recent(n int) []domain.Event {
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]domain.Event, n)
	for i := 0; i < n; i++ {
		out[i] = l.entries[len(l.entries)-1-i]
	}
	return out
}
