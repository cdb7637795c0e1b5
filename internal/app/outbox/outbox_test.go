package outbox_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbook/internal/app/outbox"
	"eventbook/internal/domain/availability"
	"eventbook/internal/domain/shared/calendar"
	"eventbook/internal/domain/shared/events"
)

type captureBox struct {
	records []outbox.EventRecord
}

func (c *captureBox) Add(_ context.Context, rec outbox.EventRecord) error {
	c.records = append(c.records, rec)
	return nil
}

func (c *captureBox) Flush(context.Context) error { return nil }

type recorder struct {
	events.EventRecorder
}

func TestDrainEncodesPendingEvents(t *testing.T) {
	key := availability.SlotKey{SupplierID: "S1", Date: calendar.MustParse("2025-12-01")}
	src := &recorder{}
	src.Record(availability.BlockChangedEvent(key, true, time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)))

	box := &captureBox{}
	enc := outbox.JSONEventEncoder{IDGenerator: func() string { return "evt-1" }}
	require.NoError(t, outbox.Drain(context.Background(), box, enc, src))

	require.Len(t, box.records, 1)
	rec := box.records[0]
	assert.Equal(t, "evt-1", rec.ID)
	assert.Equal(t, "slot.blocked", rec.Name)
	assert.Equal(t, "S1/2025-12-01", rec.Aggregate)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Payload, &payload))
	assert.Equal(t, true, payload["blocked"])
	assert.Empty(t, src.PendingEvents())
}
