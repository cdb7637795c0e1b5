package availability

import (
	"context"
	"errors"
	"strings"
	"time"

	"eventbook/internal/domain/shared/calendar"
)

var (
	// ErrSlotUnavailable is the date conflict: the slot is blocked or at capacity.
	ErrSlotUnavailable     = errors.New("availability: date unavailable")
	ErrInvalidSlotKey      = errors.New("availability: supplier id and date are required")
	ErrInvalidCapacity     = errors.New("availability: capacity must be at least 1")
	ErrCapacityBelowBooked = errors.New("availability: capacity below booked count")
	ErrMissingReference    = errors.New("availability: booking reference required")
)

// DefaultCapacity applies to slots the supplier never configured.
const DefaultCapacity = 1

type SlotState string

const (
	SlotAvailable       SlotState = "AVAILABLE"
	SlotPartiallyBooked SlotState = "PARTIALLY_BOOKED"
	SlotFullyBooked     SlotState = "FULLY_BOOKED"
	SlotBlocked         SlotState = "BLOCKED"
)

// SlotKey identifies the bookable unit: one supplier on one calendar day.
type SlotKey struct {
	SupplierID string
	Date       calendar.Date
}

func NewSlotKey(supplierID string, date calendar.Date) (SlotKey, error) {
	key := SlotKey{SupplierID: strings.TrimSpace(supplierID), Date: date}
	if err := key.Validate(); err != nil {
		return SlotKey{}, err
	}
	return key, nil
}

func (k SlotKey) Validate() error {
	if k.SupplierID == "" || k.Date.IsZero() {
		return ErrInvalidSlotKey
	}
	return nil
}

func (k SlotKey) String() string {
	return k.SupplierID + "/" + k.Date.String()
}

// Slot is the capacity record for a SlotKey. Holders lists the booking ids
// currently counted in BookedCount.
type Slot struct {
	Key         SlotKey
	Capacity    int
	BookedCount int
	Blocked     bool
	Holders     []string
	Version     int64
	UpdatedAt   time.Time
}

// Repository persists slots. Every mutating call is atomic per SlotKey and
// never contends across keys.
type Repository interface {
	// Slot returns the stored slot or an unsaved one with defaultCapacity.
	Slot(ctx context.Context, key SlotKey, defaultCapacity int) (Slot, error)
	// Reserve adds ref as a holder if the slot is open, creating it lazily.
	Reserve(ctx context.Context, key SlotKey, ref string, defaultCapacity int) (Slot, error)
	// Release removes ref as a holder; released is false when ref held nothing.
	Release(ctx context.Context, key SlotKey, ref string) (slot Slot, released bool, err error)
	SetBlocked(ctx context.Context, key SlotKey, blocked bool, defaultCapacity int) (Slot, error)
	// SetCapacity creates the slot when missing.
	SetCapacity(ctx context.Context, key SlotKey, capacity int) (Slot, error)
	// BlockedDates lists blocked days of a supplier in ascending order.
	BlockedDates(ctx context.Context, supplierID string, r calendar.Range) ([]calendar.Date, error)
}

func NewSlot(key SlotKey, capacity int) Slot {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return Slot{Key: key, Capacity: capacity}
}

func (s Slot) State() SlotState {
	switch {
	case s.Blocked:
		return SlotBlocked
	case s.BookedCount >= s.Capacity:
		return SlotFullyBooked
	case s.BookedCount > 0:
		return SlotPartiallyBooked
	default:
		return SlotAvailable
	}
}

// Available is true while another booking fits.
func (s Slot) Available() bool {
	return !s.Blocked && s.BookedCount < s.Capacity
}

func (s Slot) Remaining() int {
	if s.Blocked || s.BookedCount >= s.Capacity {
		return 0
	}
	return s.Capacity - s.BookedCount
}

func (s Slot) HeldBy(ref string) bool {
	for _, h := range s.Holders {
		if h == ref {
			return true
		}
	}
	return false
}

// Reserve counts ref against the slot. Reserving twice for the same ref is a no-op.
func (s *Slot) Reserve(ref string, now time.Time) error {
	if ref == "" {
		return ErrMissingReference
	}
	if s.HeldBy(ref) {
		return nil
	}
	if !s.Available() {
		return ErrSlotUnavailable
	}
	s.Holders = append(s.Holders, ref)
	s.BookedCount++
	s.UpdatedAt = now.UTC()
	return nil
}

// Release frees the capacity held by ref; the count never drops below zero.
func (s *Slot) Release(ref string, now time.Time) bool {
	idx := -1
	for i, h := range s.Holders {
		if h == ref {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}
	s.Holders = append(s.Holders[:idx:idx], s.Holders[idx+1:]...)
	if s.BookedCount > 0 {
		s.BookedCount--
	}
	s.UpdatedAt = now.UTC()
	return true
}

func (s *Slot) SetBlocked(blocked bool, now time.Time) {
	s.Blocked = blocked
	s.UpdatedAt = now.UTC()
}

func (s *Slot) SetCapacity(capacity int, now time.Time) error {
	if capacity < 1 {
		return ErrInvalidCapacity
	}
	if capacity < s.BookedCount {
		return ErrCapacityBelowBooked
	}
	s.Capacity = capacity
	s.UpdatedAt = now.UTC()
	return nil
}

// Clone returns a copy that shares no memory with s.
func (s Slot) Clone() Slot {
	out := s
	out.Holders = append([]string(nil), s.Holders...)
	return out
}
