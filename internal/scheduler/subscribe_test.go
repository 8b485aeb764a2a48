package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/rotorpool/internal/adapters/provision/fake"
	"github.com/bnema/rotorpool/internal/domain"
)

func TestObserverReceivesPublishedEvents(t *testing.T) {
	t.Parallel()

	set := newObserverSet()
	ch, unsub := set.subscribe(4)
	defer unsub()

	set.publish(domain.Event{Kind: domain.EventSessionStarted})

	select {
	case e := <-ch:
		assert.Equal(t, domain.EventSessionStarted, e.Kind)
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestObserverDropsWhenBufferIsFull(t *testing.T) {
	t.Parallel()

	set := newObserverSet()
	ch, unsub := set.subscribe(1)
	defer unsub()

	set.publish(domain.Event{Message: "first"})
	set.publish(domain.Event{Message: "second"})

	e := <-ch
	assert.Equal(t, "first", e.Message)

	select {
	case extra := <-ch:
		t.Fatalf("expected the overflow event to be dropped, got %q", extra.Message)
	default:
	}
}

func TestObserverUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	set := newObserverSet()
	ch, unsub := set.subscribe(1)

	unsub()
	unsub() // idempotent

	_, open := <-ch
	require.False(t, open)

	// Publishing after unsubscribe must not panic or deliver.
	set.publish(domain.Event{Message: "late"})
}

func TestSchedulerSubscribeSeesEmittedEvents(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t, fake.New(), testSnapshot())
	ch, unsub := s.Subscribe(8)
	defer unsub()

	_, err := s.AddAccount(context.Background(), domain.Account{Name: "Primary"})
	require.NoError(t, err)

	e := <-ch
	assert.Equal(t, domain.EventStatusChanged, e.Kind)
	assert.Equal(t, "account added", e.Message)
}
