package reviews_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbook/internal/domain/booking"
	"eventbook/internal/domain/reviews"
)

func TestSubmit(t *testing.T) {
	b := &booking.Booking{ID: "bk-1", ClientID: "c1", SupplierID: "S1", Status: booking.StatusCompleted}

	review, err := reviews.Submit(reviews.SubmitParams{ID: "r1", Booking: b, AuthorID: "c1", Rating: 5, Text: " great ", CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, "great", review.Text)
	assert.Equal(t, "S1", review.SupplierID)
	require.Len(t, review.PendingEvents(), 1)

	_, err = reviews.Submit(reviews.SubmitParams{Booking: b, AuthorID: "c1", Rating: 6})
	assert.ErrorIs(t, err, reviews.ErrInvalidRating)

	_, err = reviews.Submit(reviews.SubmitParams{Booking: b, AuthorID: "c2", Rating: 4})
	assert.ErrorIs(t, err, booking.ErrPermissionDenied)

	b.Status = booking.StatusConfirmed
	_, err = reviews.Submit(reviews.SubmitParams{Booking: b, AuthorID: "c1", Rating: 4})
	assert.ErrorIs(t, err, reviews.ErrNotReviewable)
}
