package reservations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"eventbook/internal/app/outbox"
	"eventbook/internal/domain/availability"
	domainbooking "eventbook/internal/domain/booking"
	"eventbook/internal/domain/catalog"
	"eventbook/internal/domain/settlement"
	"eventbook/internal/domain/shared/calendar"
	"eventbook/internal/domain/shared/money"
)

var (
	ErrResolverNotConfigured = errors.New("reservations: resolver missing dependencies")

	bookingIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)
)

// SlotReserver is the part of the availability ledger the resolver needs.
type SlotReserver interface {
	Reserve(ctx context.Context, key availability.SlotKey, bookingID string) (availability.Slot, error)
	Release(ctx context.Context, key availability.SlotKey, bookingID string) (bool, error)
}

// Request is a client's booking request.
type Request struct {
	BookingID      string
	ClientID       string
	SupplierID     string
	PackageID      string
	EventName      string
	EventLocation  string
	EventDate      calendar.Date
	EventTime      string
	GuestCount     int
	Customizations []string
	TotalPrice     int64
	Currency       string
}

// Result reports the booking and whether this call created it.
type Result struct {
	Booking *domainbooking.Booking
	Created bool
}

// Resolver turns booking requests into reserved, pending bookings. A request
// either reserves the slot and stores the booking or leaves no trace.
type Resolver struct {
	Bookings      domainbooking.Repository
	Catalog       catalog.Repository
	Ledger        SlotReserver
	Outbox        outbox.Outbox
	Encoder       outbox.EventEncoder
	DefaultPolicy settlement.Policy
	DisputeWindow time.Duration
	Clock         domainbooking.Clock
	NewID         func() string
	Logger        *slog.Logger
}

func (r *Resolver) CreateBooking(ctx context.Context, req Request) (Result, error) {
	if r.Bookings == nil || r.Catalog == nil || r.Ledger == nil {
		return Result{}, ErrResolverNotConfigured
	}
	id, err := r.bookingID(req.BookingID)
	if err != nil {
		return Result{}, err
	}

	if existing, err := r.Bookings.ByID(ctx, id); err == nil {
		return r.replay(existing, req)
	} else if !errors.Is(err, domainbooking.ErrBookingNotFound) {
		return Result{}, err
	}

	now := r.Clock.Moment()
	params, err := r.quote(ctx, id, req, now)
	if err != nil {
		return Result{}, err
	}
	b, err := domainbooking.New(params)
	if err != nil {
		return Result{}, err
	}

	key := b.SlotKey()
	if _, err := r.Ledger.Reserve(ctx, key, string(id)); err != nil {
		if errors.Is(err, availability.ErrSlotUnavailable) {
			return Result{}, fmt.Errorf("%w: %s is not available on %s", domainbooking.ErrDateConflict, key.SupplierID, key.Date)
		}
		return Result{}, err
	}

	if err := r.Bookings.Create(ctx, b); err != nil {
		return r.compensate(ctx, b, req, err)
	}
	if err := outbox.Drain(ctx, r.Outbox, r.Encoder, b); err != nil {
		r.logger().ErrorContext(ctx, "booking created but its events were not staged",
			"booking_id", string(b.ID), "error", err)
	}
	r.logger().InfoContext(ctx, "booking requested",
		"booking_id", string(b.ID), "supplier_id", b.SupplierID, "date", b.EventDate.String(), "client_id", b.ClientID)
	return Result{Booking: b, Created: true}, nil
}

// compensate undoes the reservation after a failed insert. A concurrent
// retry with the same id may have won the insert; its booking then holds the
// very same reservation, which must survive.
func (r *Resolver) compensate(ctx context.Context, b *domainbooking.Booking, req Request, createErr error) (Result, error) {
	key := b.SlotKey()
	if errors.Is(createErr, domainbooking.ErrBookingExists) {
		existing, err := r.Bookings.ByID(ctx, b.ID)
		if err != nil {
			return Result{}, errors.Join(createErr, err)
		}
		if existing.SlotKey() != key {
			r.release(ctx, key, b.ID)
		}
		return r.replay(existing, req)
	}
	r.release(ctx, key, b.ID)
	return Result{}, createErr
}

func (r *Resolver) release(ctx context.Context, key availability.SlotKey, id domainbooking.BookingID) {
	if _, err := r.Ledger.Release(ctx, key, string(id)); err != nil {
		r.logger().ErrorContext(ctx, "compensating release failed",
			"booking_id", string(id), "supplier_id", key.SupplierID, "date", key.Date.String(), "error", err)
	}
}

func (r *Resolver) replay(existing *domainbooking.Booking, req Request) (Result, error) {
	if existing.ClientID != req.ClientID {
		return Result{}, fmt.Errorf("%w: id %s is taken", domainbooking.ErrBookingExists, existing.ID)
	}
	return Result{Booking: existing, Created: false}, nil
}

func (r *Resolver) quote(ctx context.Context, id domainbooking.BookingID, req Request, now domainbooking.Moment) (domainbooking.CreateParams, error) {
	pkg, err := r.Catalog.ByID(ctx, catalog.PackageID(req.PackageID))
	if err != nil {
		if errors.Is(err, catalog.ErrPackageNotFound) {
			return domainbooking.CreateParams{}, fmt.Errorf("%w: package %q not found", domainbooking.ErrValidation, req.PackageID)
		}
		return domainbooking.CreateParams{}, err
	}
	if pkg.SupplierID != req.SupplierID {
		return domainbooking.CreateParams{}, fmt.Errorf("%w: package %s is not offered by supplier %s", domainbooking.ErrValidation, pkg.ID, req.SupplierID)
	}
	policy := r.DefaultPolicy
	if len(policy.Tiers) == 0 && policy.ID == "" {
		policy = settlement.PlatformDefault()
	}
	q, err := pkg.Quote(req.Customizations, policy)
	if err != nil {
		return domainbooking.CreateParams{}, fmt.Errorf("%w: %w", domainbooking.ErrValidation, err)
	}
	if req.Currency != "" && !strings.EqualFold(req.Currency, q.Total.Currency) {
		return domainbooking.CreateParams{}, fmt.Errorf("%w: package is priced in %s", domainbooking.ErrValidation, q.Total.Currency)
	}
	if req.TotalPrice != q.Total.Amount {
		return domainbooking.CreateParams{}, fmt.Errorf("%w: total price %d does not match quote %s", domainbooking.ErrValidation, req.TotalPrice, q.Total)
	}

	customizations := make([]domainbooking.Customization, 0, len(q.Lines))
	for _, line := range q.Lines {
		customizations = append(customizations, domainbooking.Customization{Name: line.Name, Price: line.Price})
	}
	return domainbooking.CreateParams{
		ID:             id,
		ClientID:       req.ClientID,
		SupplierID:     req.SupplierID,
		PackageID:      req.PackageID,
		EventName:      req.EventName,
		EventLocation:  req.EventLocation,
		EventDate:      req.EventDate,
		EventTime:      req.EventTime,
		GuestCount:     req.GuestCount,
		TotalPrice:     money.Money{Amount: q.Total.Amount, Currency: q.Total.Currency},
		Customizations: customizations,
		Policy:         q.Policy,
		DisputeWindow:  r.DisputeWindow,
		Now:            now,
	}, nil
}

func (r *Resolver) bookingID(raw string) (domainbooking.BookingID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if r.NewID != nil {
			return domainbooking.BookingID(r.NewID()), nil
		}
		return domainbooking.BookingID(uuid.NewString()), nil
	}
	if !bookingIDPattern.MatchString(raw) {
		return "", fmt.Errorf("%w: malformed booking id", domainbooking.ErrValidation)
	}
	return domainbooking.BookingID(raw), nil
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
