package lifecycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "eventbook/internal/app/outbox"
	"eventbook/internal/app/services/ledger"
	"eventbook/internal/app/services/lifecycle"
	"eventbook/internal/domain/availability"
	domainbooking "eventbook/internal/domain/booking"
	"eventbook/internal/domain/settlement"
	"eventbook/internal/domain/shared/calendar"
	"eventbook/internal/domain/shared/money"
	"eventbook/internal/infra/storage/memory"
)

var (
	eventDay = calendar.MustParse("2025-12-01")
	slotKey  = availability.SlotKey{SupplierID: "S1", Date: eventDay}
	client   = domainbooking.Actor{ID: "client-a", Role: domainbooking.RoleClient}
	supplier = domainbooking.Actor{ID: "S1", Role: domainbooking.RoleSupplier}
	operator = domainbooking.Actor{ID: "ops", Role: domainbooking.RoleOperator}
)

type fixture struct {
	svc      *lifecycle.Service
	ledger   *ledger.Service
	bookings *memory.BookingRepository
	box      *memory.Outbox
	now      *time.Time
}

func (f fixture) setDay(raw string) {
	*f.now = calendar.MustParse(raw).Time().Add(10 * time.Hour)
}

// newFixture stores a pending booking bk-1 holding slotKey.
func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)
	clock := domainbooking.Clock{Now: func() time.Time { return now }}
	ldg := &ledger.Service{Slots: memory.NewSlotRepository()}
	bookings := memory.NewBookingRepository()
	box := memory.NewOutbox()

	b, err := domainbooking.New(domainbooking.CreateParams{
		ID:            "bk-1",
		ClientID:      client.ID,
		SupplierID:    supplier.ID,
		EventName:     "Wedding",
		EventLocation: "Luanda",
		EventDate:     eventDay,
		GuestCount:    100,
		TotalPrice:    money.Must(10000, "AOA"),
		Policy: settlement.Policy{
			Tiers:       []settlement.Tier{{DaysBeforeEvent: 7, Refund: 5000}, {DaysBeforeEvent: 0, Refund: 0}},
			PlatformFee: 1000,
		},
		Now: clock.Moment(),
	})
	require.NoError(t, err)
	_, err = ldg.Reserve(ctx, b.SlotKey(), string(b.ID))
	require.NoError(t, err)
	require.NoError(t, bookings.Create(ctx, b))

	return fixture{
		svc: &lifecycle.Service{
			Bookings: bookings,
			Ledger:   ldg,
			Outbox:   box,
			Clock:    clock,
		},
		ledger:   ldg,
		bookings: bookings,
		box:      box,
		now:      &now,
	}
}

func (f fixture) booked(t *testing.T) int {
	t.Helper()
	slot, err := f.ledger.GetSlot(context.Background(), slotKey)
	require.NoError(t, err)
	return slot.BookedCount
}

func to(target domainbooking.Status) domainbooking.TransitionRequest {
	return domainbooking.TransitionRequest{Target: target}
}

func TestClientCancellationSettlesAndReleases(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.svc.Transition(ctx, supplier, "bk-1", to(domainbooking.StatusConfirmed))
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, client, "bk-1", money.Money{Amount: 5000})
	require.NoError(t, err)

	f.setDay("2025-11-21")
	_, preview, err := f.svc.PreviewCancellation(ctx, client, "bk-1")
	require.NoError(t, err)

	b, result, err := f.svc.Cancel(ctx, client, "bk-1", "venue closed")
	require.NoError(t, err)
	assert.Equal(t, preview, result)
	assert.Equal(t, int64(5000), result.RefundAmount.Amount)
	assert.Equal(t, int64(500), result.PlatformFee.Amount)
	assert.Equal(t, int64(4500), result.SupplierPayout.Amount)

	assert.Equal(t, domainbooking.StatusCancelled, b.Status)
	assert.True(t, b.SlotReleased)
	assert.Equal(t, 0, f.booked(t))

	stored, err := f.bookings.ByID(ctx, "bk-1")
	require.NoError(t, err)
	assert.True(t, stored.SlotReleased)
	require.NotNil(t, stored.Cancellation)
	assert.Equal(t, "venue closed", stored.Cancellation.Reason)

	_, _, err = f.svc.Cancel(ctx, client, "bk-1", "again")
	require.ErrorIs(t, err, domainbooking.ErrInvalidTransition)
	assert.Equal(t, 0, f.booked(t))
}

func TestCancellationEventsReachOutbox(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.svc.Cancel(ctx, supplier, "bk-1", "double booked")
	require.NoError(t, err)
	require.NoError(t, f.box.Flush(ctx))

	names := make([]string, 0)
	for _, rec := range f.box.Records() {
		names = append(names, rec.Name)
	}
	assert.Equal(t, []string{"booking.cancelled"}, names)
}

func TestEventDayFlowReleasesOnCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.svc.Transition(ctx, supplier, "bk-1", to(domainbooking.StatusConfirmed))
	require.NoError(t, err)

	_, _, err = f.svc.Transition(ctx, supplier, "bk-1", to(domainbooking.StatusInProgress))
	require.ErrorIs(t, err, domainbooking.ErrInvalidTransition, "too early")

	f.setDay("2025-12-01")
	_, _, err = f.svc.Transition(ctx, supplier, "bk-1", to(domainbooking.StatusInProgress))
	require.NoError(t, err)
	assert.Equal(t, 1, f.booked(t))

	b, outcome, err := f.svc.Transition(ctx, supplier, "bk-1", to(domainbooking.StatusCompleted))
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusInProgress, outcome.From)
	assert.Equal(t, domainbooking.StatusCompleted, b.Status)
	assert.True(t, b.SlotReleased)
	assert.Equal(t, 0, f.booked(t))

	f.setDay("2025-12-05")
	_, _, err = f.svc.Transition(ctx, client, "bk-1", domainbooking.TransitionRequest{Target: domainbooking.StatusDisputed, Reason: "no show"})
	require.NoError(t, err)
	b, _, err = f.svc.Transition(ctx, operator, "bk-1", to(domainbooking.StatusRefunded))
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusRefunded, b.Status)
	assert.Equal(t, 0, f.booked(t))
}

func TestStrangerCannotTouchBooking(t *testing.T) {
	f := newFixture(t)
	intruder := domainbooking.Actor{ID: "client-z", Role: domainbooking.RoleClient}
	_, _, err := f.svc.Cancel(context.Background(), intruder, "bk-1", "")
	require.ErrorIs(t, err, domainbooking.ErrPermissionDenied)
	assert.Equal(t, 1, f.booked(t))

	_, _, err = f.svc.Transition(context.Background(), client, "missing", to(domainbooking.StatusCancelled))
	require.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
}

// flakySave loses the version race a fixed number of times.
type flakySave struct {
	*memory.BookingRepository
	conflicts int
	calls     int
}

func (r *flakySave) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.calls++
	if r.calls <= r.conflicts {
		return domainbooking.ErrStorageConflict
	}
	return r.BookingRepository.Save(ctx, b)
}

func TestConflictIsRetried(t *testing.T) {
	f := newFixture(t)
	repo := &flakySave{BookingRepository: f.bookings, conflicts: 2}
	f.svc.Bookings = repo

	b, _, err := f.svc.Transition(context.Background(), supplier, "bk-1", to(domainbooking.StatusConfirmed))
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusConfirmed, b.Status)
	assert.Equal(t, 3, repo.calls)
}

func TestConflictRetriesAreBounded(t *testing.T) {
	f := newFixture(t)
	repo := &flakySave{BookingRepository: f.bookings, conflicts: 100}
	f.svc.Bookings = repo
	f.svc.Attempts = 2

	_, _, err := f.svc.Transition(context.Background(), supplier, "bk-1", to(domainbooking.StatusConfirmed))
	require.ErrorIs(t, err, domainbooking.ErrStorageConflict)
	assert.Equal(t, 2, repo.calls)

	repo.calls = 0
	f.svc.Attempts = 0
	_, _, err = f.svc.Transition(context.Background(), supplier, "bk-1", to(domainbooking.StatusConfirmed))
	require.ErrorIs(t, err, domainbooking.ErrStorageConflict)
	assert.Equal(t, lifecycle.DefaultAttempts, repo.calls)

	stored, err := f.bookings.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, stored.Status)
}

type brokenLedger struct{}

func (brokenLedger) Release(context.Context, availability.SlotKey, string) (bool, error) {
	return false, errors.New("ledger offline")
}

func TestReleaseFailureIsRepairable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.svc.Ledger = brokenLedger{}

	b, _, err := f.svc.Cancel(ctx, client, "bk-1", "")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, b.Status)
	assert.False(t, b.SlotReleased)
	assert.Equal(t, 1, f.booked(t))

	f.svc.Ledger = f.ledger
	repaired, err := f.svc.ReleaseSlot(ctx, "bk-1")
	require.NoError(t, err)
	assert.True(t, repaired.SlotReleased)
	assert.Equal(t, 0, f.booked(t))

	again, err := f.svc.ReleaseSlot(ctx, "bk-1")
	require.NoError(t, err)
	assert.True(t, again.SlotReleased)
}

type unreachableOutbox struct{}

func (unreachableOutbox) Add(context.Context, appoutbox.EventRecord) error {
	return errors.New("outbox down")
}

func (unreachableOutbox) Flush(context.Context) error { return nil }

func TestCommittedCancellationSurvivesOutboxFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.svc.Outbox = unreachableOutbox{}

	b, res, err := f.svc.Cancel(ctx, client, "bk-1", "")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, b.Status)
	assert.True(t, b.SlotReleased)
	assert.True(t, res.RefundAmount.IsZero())
	assert.Equal(t, 0, f.booked(t))

	stored, err := f.bookings.ByID(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, stored.Status)
	assert.True(t, stored.SlotReleased)
}

func TestPaymentRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.RecordPayment(ctx, client, "bk-1", money.Money{Amount: 100})
	require.ErrorIs(t, err, domainbooking.ErrInvalidTransition, "pending bookings take no payment")

	_, _, err = f.svc.Transition(ctx, supplier, "bk-1", to(domainbooking.StatusConfirmed))
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, client, "bk-1", money.Money{Amount: 20000})
	require.ErrorIs(t, err, domainbooking.ErrValidation)

	b, err := f.svc.RecordPayment(ctx, client, "bk-1", money.Money{Amount: 10000})
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.Outstanding().Amount)
}
