package availability_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbook/internal/domain/availability"
	"eventbook/internal/domain/shared/calendar"
)

func newKey(t *testing.T) availability.SlotKey {
	t.Helper()
	key, err := availability.NewSlotKey("S1", calendar.MustParse("2025-12-01"))
	require.NoError(t, err)
	return key
}

func TestSlotStates(t *testing.T) {
	now := time.Now()
	slot := availability.NewSlot(newKey(t), 2)
	assert.Equal(t, availability.SlotAvailable, slot.State())

	require.NoError(t, slot.Reserve("b1", now))
	assert.Equal(t, availability.SlotPartiallyBooked, slot.State())
	assert.Equal(t, 1, slot.Remaining())

	require.NoError(t, slot.Reserve("b2", now))
	assert.Equal(t, availability.SlotFullyBooked, slot.State())
	assert.ErrorIs(t, slot.Reserve("b3", now), availability.ErrSlotUnavailable)

	slot.SetBlocked(true, now)
	assert.Equal(t, availability.SlotBlocked, slot.State())
	assert.Equal(t, 2, slot.BookedCount)
}

func TestSlotReserveIsIdempotentPerReference(t *testing.T) {
	now := time.Now()
	slot := availability.NewSlot(newKey(t), 1)
	require.NoError(t, slot.Reserve("b1", now))
	require.NoError(t, slot.Reserve("b1", now))
	assert.Equal(t, 1, slot.BookedCount)
}

func TestSlotReleaseIsIdempotent(t *testing.T) {
	now := time.Now()
	slot := availability.NewSlot(newKey(t), 1)
	require.NoError(t, slot.Reserve("b1", now))

	assert.True(t, slot.Release("b1", now))
	assert.False(t, slot.Release("b1", now))
	assert.Equal(t, 0, slot.BookedCount)
	assert.Empty(t, slot.Holders)
}

func TestSlotBlockedRejectsReservation(t *testing.T) {
	now := time.Now()
	slot := availability.NewSlot(newKey(t), 3)
	slot.SetBlocked(true, now)
	assert.ErrorIs(t, slot.Reserve("b1", now), availability.ErrSlotUnavailable)
	assert.Equal(t, 0, slot.BookedCount)
}

func TestSlotSetCapacity(t *testing.T) {
	now := time.Now()
	slot := availability.NewSlot(newKey(t), 2)
	require.NoError(t, slot.Reserve("b1", now))
	require.NoError(t, slot.Reserve("b2", now))

	assert.ErrorIs(t, slot.SetCapacity(1, now), availability.ErrCapacityBelowBooked)
	assert.ErrorIs(t, slot.SetCapacity(0, now), availability.ErrInvalidCapacity)
	require.NoError(t, slot.SetCapacity(5, now))
	assert.Equal(t, 3, slot.Remaining())
}

func TestNewSlotKeyValidation(t *testing.T) {
	_, err := availability.NewSlotKey(" ", calendar.MustParse("2025-12-01"))
	assert.ErrorIs(t, err, availability.ErrInvalidSlotKey)
	_, err = availability.NewSlotKey("S1", calendar.Date{})
	assert.ErrorIs(t, err, availability.ErrInvalidSlotKey)
}
