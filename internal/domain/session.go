package domain

import "time"

// Session is the transient record of the pool's current remote session. It is
// created when an account enters Running and discarded when it leaves; it is
// never persisted.
type Session struct {
	AccountID AccountID
	StartedAt time.Time
}

func (s Session) Duration(now time.Time) time.Duration {
	d := now.Sub(s.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}
