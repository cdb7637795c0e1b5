package reviews

import (
	"context"
	"errors"
	"strings"
	"time"

	"eventbook/internal/domain/booking"
	"eventbook/internal/domain/shared/events"
)

var (
	ErrInvalidRating   = errors.New("reviews: rating must be between 1 and 5")
	ErrNotFound        = errors.New("reviews: not found")
	ErrAlreadyReviewed = errors.New("reviews: booking already reviewed")
	ErrNotReviewable   = errors.New("reviews: only completed bookings can be reviewed")
)

type ReviewID string

type Review struct {
	ID         ReviewID
	BookingID  booking.BookingID
	AuthorID   string
	SupplierID string
	Rating     int
	Text       string
	CreatedAt  time.Time
	events.EventRecorder
}

// Repository stores at most one review per (booking, author); Create fails
// with ErrAlreadyReviewed on a second attempt.
type Repository interface {
	ByBooking(ctx context.Context, bookingID booking.BookingID, authorID string) (*Review, error)
	ListBySupplier(ctx context.Context, supplierID string, limit, offset int) ([]*Review, error)
	Create(ctx context.Context, review *Review) error
}

type SubmitParams struct {
	ID        ReviewID
	Booking   *booking.Booking
	AuthorID  string
	Rating    int
	Text      string
	CreatedAt time.Time
}

// Submit lets the booking's client review a completed booking.
func Submit(params SubmitParams) (*Review, error) {
	if params.Rating < 1 || params.Rating > 5 {
		return nil, ErrInvalidRating
	}
	b := params.Booking
	if b == nil {
		return nil, booking.ErrBookingNotFound
	}
	if params.AuthorID == "" || params.AuthorID != b.ClientID {
		return nil, booking.ErrPermissionDenied
	}
	if b.Status != booking.StatusCompleted {
		return nil, ErrNotReviewable
	}
	review := &Review{
		ID:         params.ID,
		BookingID:  b.ID,
		AuthorID:   params.AuthorID,
		SupplierID: b.SupplierID,
		Rating:     params.Rating,
		Text:       strings.TrimSpace(params.Text),
		CreatedAt:  params.CreatedAt.UTC(),
	}
	review.Record(ReviewSubmitted{ReviewID: review.ID, BookingID: review.BookingID, SupplierID: review.SupplierID, Rating: review.Rating, At: review.CreatedAt})
	return review, nil
}
