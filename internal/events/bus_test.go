package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	inserted []Event
	err      error
}

func (m *memStore) InsertEvent(_ context.Context, evt Event) (Event, error) {
	if m.err != nil {
		return Event{}, m.err
	}
	m.inserted = append(m.inserted, evt)
	return evt, nil
}

type recordingNotifier struct {
	seen []Event
}

func (n *recordingNotifier) Notify(_ context.Context, evt Event) {
	n.seen = append(n.seen, evt)
}

func TestBusEmitStoresThenNotifies(t *testing.T) {
	store := &memStore{}
	notifier := &recordingNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}, Logger: zerolog.Nop()}

	evt, err := bus.Emit(context.Background(), TopicOrderPaid, "ord-1", map[string]string{"paymentId": "pay_1"})
	require.NoError(t, err)
	require.Equal(t, TopicOrderPaid, evt.Topic)
	require.Equal(t, "ord-1", evt.AggregateID)
	require.NotEmpty(t, evt.ID)

	require.Len(t, store.inserted, 1)
	require.Len(t, notifier.seen, 1)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(notifier.seen[0].Payload, &payload))
	require.Equal(t, "pay_1", payload["paymentId"])
}

func TestBusEmitStoreFailureSkipsNotifiers(t *testing.T) {
	store := &memStore{err: context.DeadlineExceeded}
	notifier := &recordingNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}, Logger: zerolog.Nop()}

	_, err := bus.Emit(context.Background(), TopicOrderPaid, "ord-1", nil)
	require.Error(t, err)
	require.Empty(t, notifier.seen)
}
