package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/local-services-booking/internal/model"
)

func pendingEvent(age time.Duration, attempts int) model.OutboxEvent {
	return model.OutboxEvent{
		ID:          uuid.New(),
		AggregateID: uuid.New(),
		Kind:        model.OutboxKindStatusChanged,
		Payload:     []byte(`{}`),
		Status:      model.OutboxPending,
		Attempts:    attempts,
		CreatedAt:   time.Now().UTC().Add(-age),
	}
}

func TestSweepPublishesDueEvents(t *testing.T) {
	due := pendingEvent(5*time.Minute, 0)
	fresh := pendingEvent(time.Second, 0)
	store := newMemStore(due, fresh)
	pub := &recordingPublisher{}

	r := NewRelay(store, pub, RelayOptions{Grace: time.Minute, MaxAttempts: 3}, nil)
	n, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, due.ID.String(), pub.msgs[0].EventID)
	assert.Equal(t, due.AggregateID.String(), pub.msgs[0].BookingID)
	assert.Equal(t, model.OutboxKindStatusChanged, pub.msgs[0].Kind)
	assert.Equal(t, 1, store.events[due.ID].Attempts)
}

func TestSweepParksExhaustedEvents(t *testing.T) {
	ev := pendingEvent(time.Hour, 3)
	store := newMemStore(ev)
	pub := &recordingPublisher{}

	n, err := NewRelay(store, pub, RelayOptions{Grace: time.Minute, MaxAttempts: 3}, nil).Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, pub.msgs)
	assert.Equal(t, model.OutboxDead, store.status(ev.ID))
}

func TestSweepStopsOnPublishError(t *testing.T) {
	store := newMemStore(pendingEvent(time.Hour, 0), pendingEvent(time.Hour, 0))
	pub := &recordingPublisher{err: errors.New("broker down")}

	n, err := NewRelay(store, pub, RelayOptions{Grace: time.Minute, MaxAttempts: 3}, nil).Sweep(context.Background())
	require.Error(t, err)
	assert.Zero(t, n)
	for _, ev := range store.events {
		assert.Zero(t, ev.Attempts)
	}
}
