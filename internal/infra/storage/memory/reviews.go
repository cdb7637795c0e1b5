package memory

import (
	"context"
	"sort"
	"sync"

	domainbooking "eventbook/internal/domain/booking"
	"eventbook/internal/domain/reviews"
)

type reviewKey struct {
	booking domainbooking.BookingID
	author  string
}

type ReviewRepository struct {
	mu    sync.RWMutex
	items map[reviewKey]*reviews.Review
}

func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{items: make(map[reviewKey]*reviews.Review)}
}

func (r *ReviewRepository) ByBooking(ctx context.Context, bookingID domainbooking.BookingID, authorID string) (*reviews.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rev, ok := r.items[reviewKey{booking: bookingID, author: authorID}]
	if !ok {
		return nil, reviews.ErrNotFound
	}
	return copyReview(rev), nil
}

func (r *ReviewRepository) ListBySupplier(ctx context.Context, supplierID string, limit, offset int) ([]*reviews.Review, error) {
	r.mu.RLock()
	matched := make([]*reviews.Review, 0)
	for _, rev := range r.items {
		if rev.SupplierID == supplierID {
			matched = append(matched, copyReview(rev))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []*reviews.Review{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *ReviewRepository) Create(ctx context.Context, review *reviews.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := reviewKey{booking: review.BookingID, author: review.AuthorID}
	if _, exists := r.items[key]; exists {
		return reviews.ErrAlreadyReviewed
	}
	r.items[key] = copyReview(review)
	return nil
}

func copyReview(src *reviews.Review) *reviews.Review {
	out := *src
	out.ClearEvents()
	return &out
}

var _ reviews.Repository = (*ReviewRepository)(nil)
