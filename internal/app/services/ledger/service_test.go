package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbook/internal/app/services/ledger"
	"eventbook/internal/domain/availability"
	domainbooking "eventbook/internal/domain/booking"
	"eventbook/internal/domain/shared/calendar"
	"eventbook/internal/infra/storage/memory"
)

var (
	day      = calendar.MustParse("2025-12-01")
	key      = availability.SlotKey{SupplierID: "S1", Date: day}
	owner    = domainbooking.Actor{ID: "S1", Role: domainbooking.RoleSupplier}
	stranger = domainbooking.Actor{ID: "S9", Role: domainbooking.RoleSupplier}
)

func newLedger() (*ledger.Service, *memory.Outbox) {
	box := memory.NewOutbox()
	return &ledger.Service{
		Slots:  memory.NewSlotRepository(),
		Outbox: box,
		Now:    func() time.Time { return time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC) },
	}, box
}

func TestReserveUntilFull(t *testing.T) {
	ctx := context.Background()
	svc, box := newLedger()

	slot, err := svc.GetSlot(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, availability.SlotAvailable, slot.State())
	assert.Equal(t, 1, slot.Capacity)

	_, err = svc.Reserve(ctx, key, "bk-1")
	require.NoError(t, err)
	_, err = svc.Reserve(ctx, key, "bk-2")
	require.ErrorIs(t, err, availability.ErrSlotUnavailable)

	records := box.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "slot.overbooking_prevented", records[0].Name)

	released, err := svc.Release(ctx, key, "bk-1")
	require.NoError(t, err)
	assert.True(t, released)
	_, err = svc.Reserve(ctx, key, "bk-2")
	require.NoError(t, err)
}

func TestReleaseWithoutHolderIsNoop(t *testing.T) {
	svc, _ := newLedger()
	released, err := svc.Release(context.Background(), key, "ghost")
	require.NoError(t, err)
	assert.False(t, released)
}

func TestBlockingIsSupplierOnly(t *testing.T) {
	ctx := context.Background()
	svc, box := newLedger()

	_, err := svc.SetBlocked(ctx, stranger, key, true)
	require.ErrorIs(t, err, domainbooking.ErrPermissionDenied)

	slot, err := svc.SetBlocked(ctx, owner, key, true)
	require.NoError(t, err)
	assert.Equal(t, availability.SlotBlocked, slot.State())

	_, err = svc.Reserve(ctx, key, "bk-1")
	require.ErrorIs(t, err, availability.ErrSlotUnavailable)

	require.NoError(t, box.Flush(ctx))
	names := make([]string, 0)
	for _, rec := range box.Records() {
		names = append(names, rec.Name)
	}
	assert.Contains(t, names, "slot.blocked")

	dates, err := svc.ListBlockedDates(ctx, "S1", day.AddDays(-1), day.AddDays(1))
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.True(t, dates[0].Equal(day))

	operator := domainbooking.Actor{ID: "ops", Role: domainbooking.RoleOperator}
	slot, err = svc.SetBlocked(ctx, operator, key, false)
	require.NoError(t, err)
	assert.Equal(t, availability.SlotAvailable, slot.State())
}

func TestSetCapacity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newLedger()

	_, err := svc.SetCapacity(ctx, owner, key, 0)
	require.ErrorIs(t, err, availability.ErrInvalidCapacity)

	slot, err := svc.SetCapacity(ctx, owner, key, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, slot.Remaining())

	for _, id := range []string{"a", "b"} {
		_, err := svc.Reserve(ctx, key, id)
		require.NoError(t, err)
	}
	slot, err = svc.GetSlot(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, availability.SlotPartiallyBooked, slot.State())

	_, err = svc.SetCapacity(ctx, owner, key, 1)
	require.ErrorIs(t, err, availability.ErrCapacityBelowBooked)
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newLedger()

	_, err := svc.GetSlot(ctx, availability.SlotKey{Date: day})
	require.ErrorIs(t, err, domainbooking.ErrValidation)

	_, err = svc.ListBlockedDates(ctx, "S1", day, day.AddDays(-3))
	require.ErrorIs(t, err, domainbooking.ErrValidation)

	_, err = svc.ListBlockedDates(ctx, "S1", day, day.AddDays(ledger.MaxBlockedRangeDays))
	require.ErrorIs(t, err, domainbooking.ErrValidation)
}
