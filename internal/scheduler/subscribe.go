package scheduler

import (
	"sync"
	"sync/atomic"

	"github.com/bnema/rotorpool/internal/domain"
)

// observerSet fans emitted events out to subscribers.
//
// Contract:
//   - publish MUST be non-blocking.
//   - Subscribers get buffered channels; slow subscribers drop events.
type observerSet struct {
	mu   sync.RWMutex
	subs map[uint64]chan domain.Event
	seq  atomic.Uint64
}

func newObserverSet() *observerSet {
	return &observerSet{subs: map[uint64]chan domain.Event{}}
}

func (o *observerSet) publish(e domain.Event) {
	// Snapshot subscribers so publish doesn't hold the lock while sending.
	o.mu.RLock()
	chs := make([]chan domain.Event, 0, len(o.subs))
	for _, ch := range o.subs {
		chs = append(chs, ch)
	}
	o.mu.RUnlock()

	for _, ch := range chs {
		// A subscriber may unsubscribe concurrently and close the channel;
		// recover from the resulting send panic.
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
			}
		}()
	}
}

func (o *observerSet) subscribe(buffer int) (<-chan domain.Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan domain.Event, buffer)
	id := o.seq.Add(1)

	o.mu.Lock()
	o.subs[id] = ch
	o.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}
