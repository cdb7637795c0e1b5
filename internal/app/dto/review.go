package dto

import (
	"time"

	domainreviews "eventbook/internal/domain/reviews"
)

// Review represents a public review payload.
type Review struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"booking_id"`
	SupplierID string    `json:"supplier_id"`
	AuthorID   string    `json:"author_id"`
	Rating     int       `json:"rating"`
	Text       string    `json:"text,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func MapReview(review *domainreviews.Review) Review {
	if review == nil {
		return Review{}
	}
	return Review{
		ID:         string(review.ID),
		BookingID:  string(review.BookingID),
		SupplierID: review.SupplierID,
		AuthorID:   review.AuthorID,
		Rating:     review.Rating,
		Text:       review.Text,
		CreatedAt:  review.CreatedAt,
	}
}

type ReviewCollection struct {
	Items []Review `json:"items"`
}

func MapReviews(items []*domainreviews.Review) ReviewCollection {
	out := ReviewCollection{Items: make([]Review, 0, len(items))}
	for _, r := range items {
		out.Items = append(out.Items, MapReview(r))
	}
	return out
}
