package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is a persisted domain event. Payload is the JSON-encoded body.
type Event struct {
	ID          uuid.UUID
	Topic       string
	AggregateID string
	Payload     []byte
	OccurredAt  time.Time
}

// Store persists events before notifiers see them.
type Store interface {
	InsertEvent(ctx context.Context, evt Event) (Event, error)
}

// Notifier receives events after they are durably stored. Notifier failures
// are logged but never fail the emitting operation.
type Notifier interface {
	Notify(ctx context.Context, evt Event)
}

// Bus stores then fans out domain events.
type Bus struct {
	Store     Store
	Notifiers []Notifier
	Logger    zerolog.Logger
}

// Emit persists an event and delivers it to all notifiers. The payload is
// JSON-encoded once here so store and notifiers see identical bytes.
func (b *Bus) Emit(ctx context.Context, topic, aggregateID string, payload any) (Event, error) {
	if b == nil || b.Store == nil {
		return Event{}, errors.New("events: bus not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: encode payload: %w", err)
	}
	evt := Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     body,
		OccurredAt:  time.Now().UTC(),
	}
	stored, err := b.Store.InsertEvent(ctx, evt)
	if err != nil {
		return Event{}, fmt.Errorf("events: store %s: %w", topic, err)
	}
	b.Logger.Debug().Str("topic", stored.Topic).Str("aggregate_id", stored.AggregateID).Msg("event emitted")
	for _, n := range b.Notifiers {
		n.Notify(ctx, stored)
	}
	return stored, nil
}

// LogNotifier writes emitted events to the structured log.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Notify(_ context.Context, evt Event) {
	n.Logger.Info().
		Str("event_id", evt.ID.String()).
		Str("topic", evt.Topic).
		Str("aggregate_id", evt.AggregateID).
		RawJSON("payload", evt.Payload).
		Msg("domain_event")
}
