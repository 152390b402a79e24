package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/souq-labs/backend-souq/internal/repo"
)

// EventStore defines the persistence operations required by the event bus.
type EventStore interface {
	InsertDomainEvent(ctx context.Context, topic string, aggregateID pgtype.UUID, payload []byte) (repo.DomainEvent, error)
}

// Subscriber reacts to emitted events.
type Subscriber interface {
	Handle(ctx context.Context, event repo.DomainEvent) error
}

// SubscriberFunc adapts a plain function into a Subscriber.
type SubscriberFunc func(ctx context.Context, event repo.DomainEvent) error

// Handle implements Subscriber.
func (f SubscriberFunc) Handle(ctx context.Context, event repo.DomainEvent) error {
	return f(ctx, event)
}

// Bus persists domain events and fans them out to in-process subscribers.
// Subscriber failures are collected, never fatal: the event is already
// durable by the time fan-out runs.
type Bus struct {
	Store       EventStore
	subscribers map[string][]Subscriber
}

// Subscribe registers a subscriber for a topic.
func (b *Bus) Subscribe(topic string, sub Subscriber) {
	if b.subscribers == nil {
		b.subscribers = map[string][]Subscriber{}
	}
	b.subscribers[topic] = append(b.subscribers[topic], sub)
}

// Emit records the event and dispatches it to topic subscribers.
func (b *Bus) Emit(ctx context.Context, topic string, aggregateID pgtype.UUID, payload any) (repo.DomainEvent, error) {
	if b == nil || b.Store == nil {
		return repo.DomainEvent{}, errors.New("events: store not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return repo.DomainEvent{}, errors.New("events: topic is required")
	}
	if !aggregateID.Valid {
		return repo.DomainEvent{}, errors.New("events: aggregate id is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return repo.DomainEvent{}, fmt.Errorf("events: encode payload: %w", err)
	}
	ev, err := b.Store.InsertDomainEvent(ctx, topic, aggregateID, encoded)
	if err != nil {
		return repo.DomainEvent{}, fmt.Errorf("events: persist event: %w", err)
	}

	var joined error
	for _, sub := range b.subscribers[topic] {
		if sub == nil {
			continue
		}
		if handleErr := sub.Handle(ctx, ev); handleErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: subscriber: %w", handleErr))
		}
	}
	return ev, joined
}

func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	switch v := payload.(type) {
	case []byte:
		if len(v) == 0 {
			return []byte("{}"), nil
		}
		if !json.Valid(v) {
			return nil, errors.New("payload is not valid json")
		}
		return append([]byte(nil), v...), nil
	case json.RawMessage:
		return encodePayload([]byte(v))
	default:
		return json.Marshal(v)
	}
}
