package memory

import (
	"context"
	"sort"
	"sync"

	domainbooking "eventbook/internal/domain/booking"
)

// BookingRepository keeps private copies of bookings so that the version
// check in Save behaves like a real store.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

func (r *BookingRepository) Create(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[b.ID]; exists {
		return domainbooking.ErrBookingExists
	}
	b.Version = 1
	r.items[b.ID] = b.Clone()
	return nil
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return stored.Clone(), nil
}

// Save replaces the booking if the stored version equals b.Version.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[b.ID]
	if !ok {
		return domainbooking.ErrBookingNotFound
	}
	if stored.Version != b.Version {
		return domainbooking.ErrStorageConflict
	}
	b.Version++
	r.items[b.ID] = b.Clone()
	return nil
}

func (r *BookingRepository) ListByClient(ctx context.Context, clientID string) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool { return b.ClientID == clientID }), nil
}

func (r *BookingRepository) ListBySupplier(ctx context.Context, supplierID string) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool { return b.SupplierID == supplierID }), nil
}

func (r *BookingRepository) list(match func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.items {
		if match(b) {
			out = append(out, b.Clone())
		}
	}
	sortBookings(out)
	return out
}

// sortBookings orders by event date, then creation time, then id.
func sortBookings(items []*domainbooking.Booking) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.EventDate.Equal(b.EventDate) {
			return a.EventDate.Before(b.EventDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
