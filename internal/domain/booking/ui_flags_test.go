package booking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbook/internal/domain/booking"
)

func TestProjectFlags(t *testing.T) {
	before := momentOn("2025-11-20")

	t.Run("pending booking seen by client", func(t *testing.T) {
		b := newBooking(t)
		flags := booking.ProjectFlags(b, booking.FlagsInput{Viewer: client, Now: before})
		assert.Equal(t, booking.Flags{CanCancel: true, CanMessage: true}, flags)
	})

	t.Run("confirmed with balance", func(t *testing.T) {
		b := confirmedAndPaid(t, 2000)
		flags := booking.ProjectFlags(b, booking.FlagsInput{Viewer: client, Now: before})
		assert.True(t, flags.CanCancel)
		assert.True(t, flags.CanPay)
		assert.True(t, flags.CanRequestRefund)
		assert.False(t, flags.CanReview)

		supplierView := booking.ProjectFlags(b, booking.FlagsInput{Viewer: supplier, Now: before})
		assert.False(t, supplierView.CanPay)
		assert.True(t, supplierView.CanCancel)
	})

	t.Run("fully paid cannot pay", func(t *testing.T) {
		b := confirmedAndPaid(t, 10000)
		flags := booking.ProjectFlags(b, booking.FlagsInput{Viewer: client, Now: before})
		assert.False(t, flags.CanPay)
	})

	t.Run("past event cannot be cancelled", func(t *testing.T) {
		b := confirmedAndPaid(t, 0)
		flags := booking.ProjectFlags(b, booking.FlagsInput{Viewer: client, Now: momentOn("2025-12-02")})
		assert.False(t, flags.CanCancel)
	})

	t.Run("completed booking review and dispute", func(t *testing.T) {
		b := confirmedAndPaid(t, 0)
		_, err := b.Transition(supplier, booking.TransitionRequest{Target: booking.StatusInProgress}, momentOn("2025-12-01"))
		require.NoError(t, err)
		_, err = b.Transition(supplier, booking.TransitionRequest{Target: booking.StatusCompleted}, momentOn("2025-12-01"))
		require.NoError(t, err)

		now := momentOn("2025-12-03")
		flags := booking.ProjectFlags(b, booking.FlagsInput{Viewer: client, Now: now})
		assert.True(t, flags.CanReview)
		assert.True(t, flags.CanRequestRefund)
		assert.False(t, flags.CanCancel)

		reviewed := booking.ProjectFlags(b, booking.FlagsInput{Viewer: client, Now: now, HasReview: true})
		assert.False(t, reviewed.CanReview)

		disputed := booking.ProjectFlags(b, booking.FlagsInput{Viewer: client, Now: now, HasPendingDispute: true})
		assert.False(t, disputed.CanRequestRefund)
	})

	t.Run("cancelled booking cannot message", func(t *testing.T) {
		b := newBooking(t)
		_, err := b.Cancel(client, "", before)
		require.NoError(t, err)
		assert.Equal(t, booking.Flags{}, booking.ProjectFlags(b, booking.FlagsInput{Viewer: client, Now: before}))
	})

	t.Run("stranger sees nothing", func(t *testing.T) {
		b := newBooking(t)
		stranger := booking.Actor{ID: "client-b", Role: booking.RoleClient}
		assert.Equal(t, booking.Flags{}, booking.ProjectFlags(b, booking.FlagsInput{Viewer: stranger, Now: before}))
	})
}

func TestFlagsAgreeWithTransitions(t *testing.T) {
	b := confirmedAndPaid(t, 5000)
	for _, day := range []string{"2025-11-20", "2025-12-01", "2025-12-02"} {
		now := momentOn(day)
		flags := booking.ProjectFlags(b, booking.FlagsInput{Viewer: client, Now: now})
		_, err := b.Clone().Cancel(client, "", now)
		assert.Equalf(t, err == nil, flags.CanCancel, "day %s", day)
	}
}
