package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"eventbook/internal/app/outbox"
	"eventbook/internal/domain/availability"
	domainbooking "eventbook/internal/domain/booking"
	"eventbook/internal/domain/settlement"
	"eventbook/internal/domain/shared/money"
)

// DefaultAttempts is the number of saves tried before a conflict is surfaced.
const DefaultAttempts = 3

var ErrServiceNotConfigured = errors.New("lifecycle: service missing dependencies")

// SlotReleaser is the part of the availability ledger the state machine needs.
type SlotReleaser interface {
	Release(ctx context.Context, key availability.SlotKey, bookingID string) (bool, error)
}

// Service drives bookings through their state machine. Each operation reads
// the booking, decides, and saves conditioned on the version it read; a lost
// race is retried from a fresh read until Attempts saves have been tried.
type Service struct {
	Bookings domainbooking.Repository
	Ledger   SlotReleaser
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Clock    domainbooking.Clock
	Attempts int
	Logger   *slog.Logger
}

// Transition applies a status change requested by actor.
func (s *Service) Transition(ctx context.Context, actor domainbooking.Actor, id domainbooking.BookingID, req domainbooking.TransitionRequest) (*domainbooking.Booking, domainbooking.Outcome, error) {
	var outcome domainbooking.Outcome
	b, err := s.mutate(ctx, id, func(b *domainbooking.Booking, now domainbooking.Moment) error {
		out, err := b.Transition(actor, req, now)
		outcome = out
		return err
	})
	if err != nil {
		return nil, domainbooking.Outcome{}, err
	}
	s.logger().InfoContext(ctx, "booking transitioned",
		"booking_id", string(id), "from", string(outcome.From), "to", string(outcome.To), "actor_role", string(actor.Role))
	return b, outcome, nil
}

// PreviewCancellation returns the split a cancellation by actor would produce
// now. Nothing is written.
func (s *Service) PreviewCancellation(ctx context.Context, actor domainbooking.Actor, id domainbooking.BookingID) (*domainbooking.Booking, settlement.Result, error) {
	if s.Bookings == nil {
		return nil, settlement.Result{}, ErrServiceNotConfigured
	}
	b, err := s.Bookings.ByID(ctx, id)
	if err != nil {
		return nil, settlement.Result{}, err
	}
	res, err := b.PreviewCancellation(actor, s.Clock.Moment())
	if err != nil {
		return nil, settlement.Result{}, err
	}
	return b, res, nil
}

// Cancel commits a cancellation and returns the settlement it recorded.
func (s *Service) Cancel(ctx context.Context, actor domainbooking.Actor, id domainbooking.BookingID, reason string) (*domainbooking.Booking, settlement.Result, error) {
	b, outcome, err := s.Transition(ctx, actor, id, domainbooking.TransitionRequest{Target: domainbooking.StatusCancelled, Reason: reason})
	if err != nil {
		return nil, settlement.Result{}, err
	}
	if outcome.Settlement == nil {
		return b, settlement.Result{}, fmt.Errorf("lifecycle: cancellation of %s produced no settlement", id)
	}
	return b, *outcome.Settlement, nil
}

// RecordPayment raises the paid amount of a confirmed booking.
func (s *Service) RecordPayment(ctx context.Context, actor domainbooking.Actor, id domainbooking.BookingID, amount money.Money) (*domainbooking.Booking, error) {
	return s.mutate(ctx, id, func(b *domainbooking.Booking, now domainbooking.Moment) error {
		if amount.Currency == "" {
			amount.Currency = b.TotalPrice.Currency
		}
		return b.RecordPayment(actor, amount, now)
	})
}

// ReleaseSlot frees the date of a booking that reached a releasing status and
// records the release. It is safe to call repeatedly and is the repair path
// for bookings whose release was interrupted.
func (s *Service) ReleaseSlot(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	if s.Bookings == nil || s.Ledger == nil {
		return nil, ErrServiceNotConfigured
	}
	for attempt := 0; ; attempt++ {
		b, err := s.Bookings.ByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !b.NeedsSlotRelease() {
			return b, nil
		}
		if _, err := s.Ledger.Release(ctx, b.SlotKey(), string(b.ID)); err != nil {
			return nil, err
		}
		b.MarkSlotReleased(s.Clock.Moment().At)
		err = s.Bookings.Save(ctx, b)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, domainbooking.ErrStorageConflict) || attempt+1 >= s.attempts() {
			return nil, err
		}
	}
}

func (s *Service) mutate(ctx context.Context, id domainbooking.BookingID, apply func(b *domainbooking.Booking, now domainbooking.Moment) error) (*domainbooking.Booking, error) {
	if s.Bookings == nil {
		return nil, ErrServiceNotConfigured
	}
	for attempt := 0; ; attempt++ {
		b, err := s.Bookings.ByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := apply(b, s.Clock.Moment()); err != nil {
			return nil, err
		}
		err = s.Bookings.Save(ctx, b)
		if err != nil {
			if errors.Is(err, domainbooking.ErrStorageConflict) && attempt+1 < s.attempts() {
				s.logger().DebugContext(ctx, "booking changed concurrently, retrying",
					"booking_id", string(id), "attempt", attempt+1)
				continue
			}
			return nil, err
		}
		if err := outbox.Drain(ctx, s.Outbox, s.Encoder, b); err != nil {
			s.logger().ErrorContext(ctx, "booking saved but its events were not staged",
				"booking_id", string(id), "status", string(b.Status), "error", err)
		}
		if b.NeedsSlotRelease() {
			return s.releaseAfterCommit(ctx, b), nil
		}
		return b, nil
	}
}

// releaseAfterCommit runs once the terminal status is durable. A failure
// leaves SlotReleased false, which ReleaseSlot repairs later.
func (s *Service) releaseAfterCommit(ctx context.Context, b *domainbooking.Booking) *domainbooking.Booking {
	if s.Ledger == nil {
		return b
	}
	released, err := s.ReleaseSlot(ctx, b.ID)
	if err != nil {
		s.logger().ErrorContext(ctx, "slot release pending after terminal transition",
			"booking_id", string(b.ID), "supplier_id", b.SupplierID, "date", b.EventDate.String(), "error", err)
		return b
	}
	return released
}

func (s *Service) attempts() int {
	if s.Attempts > 0 {
		return s.Attempts
	}
	return DefaultAttempts
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
