package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appoutbox "eventbook/internal/app/outbox"
	"eventbook/internal/infra/storage/memory"
)

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	args := m.Called(ctx, topic, key, payload, headers)
	return args.Error(0)
}

func seedOutbox(t *testing.T, records ...appoutbox.EventRecord) *memory.Outbox {
	t.Helper()
	box := memory.NewOutbox()
	ctx := context.Background()
	for _, rec := range records {
		require.NoError(t, box.Add(ctx, rec))
	}
	require.NoError(t, box.Flush(ctx))
	return box
}

func TestWorkerPublishesCloudEvents(t *testing.T) {
	occurred := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	box := seedOutbox(t,
		appoutbox.EventRecord{ID: "evt-1", Name: "booking.cancelled", Aggregate: "bk-1", Payload: []byte(`{"booking_id":"bk-1"}`), OccurredAt: occurred},
		appoutbox.EventRecord{ID: "evt-2", Name: "slot.overbooking_prevented", Aggregate: "sup-1/2026-06-20", Payload: []byte(`{}`), OccurredAt: occurred},
	)

	var payloads [][]byte
	producer := &mockProducer{}
	producer.On("Publish", mock.Anything, "dev.booking.events.v1", "bk-1", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { payloads = append(payloads, args.Get(3).([]byte)) }).
		Return(nil).Once()
	producer.On("Publish", mock.Anything, "dev.slot.events.v1", "sup-1/2026-06-20", mock.Anything, mock.Anything).
		Return(nil).Once()

	w := &Worker{Queue: box, Producer: producer, TopicPrefix: "dev.", ID: "w-1"}
	handled, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, handled)
	producer.AssertExpectations(t)

	require.Len(t, payloads, 1)
	var evt CloudEvent
	require.NoError(t, json.Unmarshal(payloads[0], &evt))
	assert.Equal(t, "evt-1", evt.ID)
	assert.Equal(t, "booking.cancelled.v1", evt.Type)
	assert.Equal(t, "app://eventbook", evt.Source)
	assert.JSONEq(t, `{"booking_id":"bk-1"}`, string(evt.Data))

	again, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestWorkerBacksOffFailedPublications(t *testing.T) {
	box := seedOutbox(t, appoutbox.EventRecord{ID: "evt-1", Name: "booking.confirmed", Aggregate: "bk-1", Payload: []byte(`{}`)})
	producer := &mockProducer{}
	producer.On("Publish", mock.Anything, "booking.events.v1", "bk-1", mock.Anything, mock.Anything).
		Return(errors.New("broker down")).Once()

	w := &Worker{Queue: box, Producer: producer, Backoff: []time.Duration{time.Hour}}
	handled, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, handled)

	pending, err := box.Claim(context.Background(), "w-2")
	require.NoError(t, err)
	assert.Nil(t, pending, "record is not due before its backoff elapses")
	producer.AssertExpectations(t)
}

func TestWorkerRejectsInvalidPayload(t *testing.T) {
	box := seedOutbox(t, appoutbox.EventRecord{ID: "evt-1", Name: "booking.confirmed", Payload: []byte(`not json`)})
	producer := &mockProducer{}

	w := &Worker{Queue: box, Producer: producer, Backoff: []time.Duration{time.Hour}}
	_, err := w.Drain(context.Background())
	require.NoError(t, err)
	producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, "booking.events.v1", TopicFor("", "booking.cancelled"))
	assert.Equal(t, "prod.review.events.v1", TopicFor("prod.", "review.submitted"))
	assert.Equal(t, "plain.events.v1", TopicFor("", "plain"))
}

func TestWorkerRequiresDependencies(t *testing.T) {
	err := (&Worker{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrWorkerNotConfigured)
}
