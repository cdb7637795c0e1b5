package reviews

import (
	"time"

	"eventbook/internal/domain/booking"
)

type ReviewSubmitted struct {
	ReviewID   ReviewID          `json:"review_id"`
	BookingID  booking.BookingID `json:"booking_id"`
	SupplierID string            `json:"supplier_id"`
	Rating     int               `json:"rating"`
	At         time.Time         `json:"at"`
}

func (e ReviewSubmitted) EventName() string     { return "review.submitted" }
func (e ReviewSubmitted) AggregateID() string   { return string(e.ReviewID) }
func (e ReviewSubmitted) OccurredAt() time.Time { return e.At }
