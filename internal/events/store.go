package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore appends domain events to the domain_events table.
type PGStore struct {
	Pool *pgxpool.Pool
}

func (s *PGStore) InsertEvent(ctx context.Context, evt Event) (Event, error) {
	if s == nil || s.Pool == nil {
		return Event{}, errors.New("events: store not configured")
	}
	err := s.Pool.QueryRow(ctx,
		`INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, occurred_at`,
		evt.ID, evt.Topic, evt.AggregateID, evt.Payload, evt.OccurredAt,
	).Scan(&evt.ID, &evt.OccurredAt)
	if err != nil {
		return Event{}, fmt.Errorf("events: insert: %w", err)
	}
	return evt, nil
}
