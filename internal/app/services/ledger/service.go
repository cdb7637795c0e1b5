package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventbook/internal/app/outbox"
	"eventbook/internal/domain/availability"
	domainbooking "eventbook/internal/domain/booking"
	"eventbook/internal/domain/shared/calendar"
	"eventbook/internal/domain/shared/events"
)

// MaxBlockedRangeDays bounds a blocked-dates query.
const MaxBlockedRangeDays = 366

var ErrLedgerNotConfigured = errors.New("ledger: slot repository required")

// Service is the availability ledger: the single source of truth for whether
// a supplier can be booked on a date.
type Service struct {
	Slots           availability.Repository
	Outbox          outbox.Outbox
	Encoder         outbox.EventEncoder
	DefaultCapacity int
	Now             func() time.Time
	Logger          *slog.Logger
}

func (s *Service) GetSlot(ctx context.Context, key availability.SlotKey) (availability.Slot, error) {
	if err := s.check(key); err != nil {
		return availability.Slot{}, err
	}
	return s.Slots.Slot(ctx, key, s.defaultCapacity())
}

// Reserve counts bookingID against the slot, failing with
// availability.ErrSlotUnavailable when the date is blocked or full.
func (s *Service) Reserve(ctx context.Context, key availability.SlotKey, bookingID string) (availability.Slot, error) {
	if err := s.check(key); err != nil {
		return availability.Slot{}, err
	}
	if bookingID == "" {
		return availability.Slot{}, availability.ErrMissingReference
	}
	slot, err := s.Slots.Reserve(ctx, key, bookingID, s.defaultCapacity())
	if err != nil {
		if errors.Is(err, availability.ErrSlotUnavailable) {
			s.logger().InfoContext(ctx, "reservation rejected",
				"supplier_id", key.SupplierID, "date", key.Date.String(), "booking_id", bookingID)
			s.reportRejection(ctx, key, bookingID)
		}
		return availability.Slot{}, err
	}
	return slot, nil
}

// Release frees the capacity held by bookingID. Releasing a booking that
// holds nothing is a no-op and reports false.
func (s *Service) Release(ctx context.Context, key availability.SlotKey, bookingID string) (bool, error) {
	if err := s.check(key); err != nil {
		return false, err
	}
	_, released, err := s.Slots.Release(ctx, key, bookingID)
	if err != nil {
		return false, err
	}
	if !released {
		s.logger().DebugContext(ctx, "release skipped, booking holds no capacity",
			"supplier_id", key.SupplierID, "date", key.Date.String(), "booking_id", bookingID)
	}
	return released, nil
}

// SetBlocked toggles the supplier's explicit block; booked capacity is untouched.
func (s *Service) SetBlocked(ctx context.Context, actor domainbooking.Actor, key availability.SlotKey, blocked bool) (availability.Slot, error) {
	if err := s.check(key); err != nil {
		return availability.Slot{}, err
	}
	if err := authorizeSupplier(actor, key.SupplierID); err != nil {
		return availability.Slot{}, err
	}
	slot, err := s.Slots.SetBlocked(ctx, key, blocked, s.defaultCapacity())
	if err != nil {
		return availability.Slot{}, err
	}
	if err := s.record(ctx, availability.BlockChangedEvent(key, blocked, s.now())); err != nil {
		return availability.Slot{}, err
	}
	return slot, nil
}

func (s *Service) SetCapacity(ctx context.Context, actor domainbooking.Actor, key availability.SlotKey, capacity int) (availability.Slot, error) {
	if err := s.check(key); err != nil {
		return availability.Slot{}, err
	}
	if err := authorizeSupplier(actor, key.SupplierID); err != nil {
		return availability.Slot{}, err
	}
	if capacity < 1 {
		return availability.Slot{}, availability.ErrInvalidCapacity
	}
	slot, err := s.Slots.SetCapacity(ctx, key, capacity)
	if err != nil {
		return availability.Slot{}, err
	}
	if err := s.record(ctx, availability.CapacityChangedEvent(key, capacity, s.now())); err != nil {
		return availability.Slot{}, err
	}
	return slot, nil
}

// ListBlockedDates returns the supplier's blocked days within [from, to].
func (s *Service) ListBlockedDates(ctx context.Context, supplierID string, from, to calendar.Date) ([]calendar.Date, error) {
	if s.Slots == nil {
		return nil, ErrLedgerNotConfigured
	}
	if supplierID == "" {
		return nil, fmt.Errorf("%w: supplier id is required", domainbooking.ErrValidation)
	}
	r, err := calendar.NewRange(from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainbooking.ErrValidation, err)
	}
	if r.Days() > MaxBlockedRangeDays {
		return nil, fmt.Errorf("%w: range exceeds %d days", domainbooking.ErrValidation, MaxBlockedRangeDays)
	}
	return s.Slots.BlockedDates(ctx, supplierID, r)
}

// reportRejection records and flushes an OverbookingPrevented event.
func (s *Service) reportRejection(ctx context.Context, key availability.SlotKey, bookingID string) {
	if s.Outbox == nil {
		return
	}
	err := s.record(ctx, availability.OverbookingPreventedEvent(key, bookingID, s.now()))
	if err == nil {
		err = s.Outbox.Flush(ctx)
	}
	if err != nil {
		s.logger().WarnContext(ctx, "overbooking event not recorded", "supplier_id", key.SupplierID, "error", err)
	}
}

func (s *Service) record(ctx context.Context, ev events.DomainEvent) error {
	return outbox.RecordDomainEvents(ctx, s.Outbox, s.Encoder, []events.DomainEvent{ev})
}

func (s *Service) check(key availability.SlotKey) error {
	if s.Slots == nil {
		return ErrLedgerNotConfigured
	}
	if err := key.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domainbooking.ErrValidation, err)
	}
	return nil
}

func (s *Service) defaultCapacity() int {
	if s.DefaultCapacity > 0 {
		return s.DefaultCapacity
	}
	return availability.DefaultCapacity
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func authorizeSupplier(actor domainbooking.Actor, supplierID string) error {
	switch actor.Role {
	case domainbooking.RoleOperator:
		return nil
	case domainbooking.RoleSupplier:
		if actor.ID == supplierID {
			return nil
		}
	}
	return fmt.Errorf("%w: only the supplier manages its calendar", domainbooking.ErrPermissionDenied)
}
