package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/souq-labs/backend-souq/internal/repo"
)

type memStore struct {
	events []repo.DomainEvent
	err    error
}

func (m *memStore) InsertDomainEvent(_ context.Context, topic string, aggregateID pgtype.UUID, payload []byte) (repo.DomainEvent, error) {
	if m.err != nil {
		return repo.DomainEvent{}, m.err
	}
	ev := repo.DomainEvent{
		ID:          repo.NewUUID(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	m.events = append(m.events, ev)
	return ev, nil
}

func TestEmitPersistsAndFansOut(t *testing.T) {
	store := &memStore{}
	bus := &Bus{Store: store}

	var seen []repo.DomainEvent
	bus.Subscribe(TopicOrderCreated, SubscriberFunc(func(_ context.Context, ev repo.DomainEvent) error {
		seen = append(seen, ev)
		return nil
	}))

	ev, err := bus.Emit(context.Background(), TopicOrderCreated, repo.NewUUID(), map[string]any{"total": 5000})
	require.NoError(t, err)
	require.Len(t, store.events, 1)
	require.Len(t, seen, 1)
	require.JSONEq(t, `{"total":5000}`, string(ev.Payload))
}

func TestEmitIgnoresOtherTopics(t *testing.T) {
	bus := &Bus{Store: &memStore{}}

	called := false
	bus.Subscribe(TopicSupplierDeactivated, SubscriberFunc(func(context.Context, repo.DomainEvent) error {
		called = true
		return nil
	}))

	_, err := bus.Emit(context.Background(), TopicOrderCreated, repo.NewUUID(), nil)
	require.NoError(t, err)
	require.False(t, called)
}

func TestEmitCollectsSubscriberErrors(t *testing.T) {
	store := &memStore{}
	bus := &Bus{Store: store}

	boom := errors.New("boom")
	bus.Subscribe(TopicOrderCreated, SubscriberFunc(func(context.Context, repo.DomainEvent) error {
		return boom
	}))

	_, err := bus.Emit(context.Background(), TopicOrderCreated, repo.NewUUID(), nil)
	require.ErrorIs(t, err, boom)
	// the event is still durable
	require.Len(t, store.events, 1)
}

func TestEmitRequiresTopicAndAggregate(t *testing.T) {
	bus := &Bus{Store: &memStore{}}

	_, err := bus.Emit(context.Background(), " ", repo.NewUUID(), nil)
	require.Error(t, err)

	_, err = bus.Emit(context.Background(), TopicOrderCreated, pgtype.UUID{}, nil)
	require.Error(t, err)
}

func TestEmitRejectsInvalidRawPayload(t *testing.T) {
	bus := &Bus{Store: &memStore{}}

	_, err := bus.Emit(context.Background(), TopicOrderCreated, repo.NewUUID(), []byte("{not json"))
	require.Error(t, err)
}
