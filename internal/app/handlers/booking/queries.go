package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eventbook/internal/app/dto"
	"eventbook/internal/app/queries"
	domainbooking "eventbook/internal/domain/booking"
	domainreviews "eventbook/internal/domain/reviews"
)

const (
	getBookingKey           = "booking.get"
	listClientBookingsKey   = "booking.list.client"
	listSupplierBookingsKey = "booking.list.supplier"
	previewCancellationKey  = "booking.cancellation.preview"
)

type GetBookingQuery struct {
	BookingID string `validate:"required"`
}

func (q GetBookingQuery) Key() string { return getBookingKey }

// ListClientBookingsQuery lists the calling client's bookings, optionally
// narrowed to one status.
type ListClientBookingsQuery struct {
	Status string
}

func (q ListClientBookingsQuery) Key() string { return listClientBookingsKey }

func (q ListClientBookingsQuery) AllowedRoles() []domainbooking.Role { return clientOnly }

type ListSupplierBookingsQuery struct {
	Status string
}

func (q ListSupplierBookingsQuery) Key() string { return listSupplierBookingsKey }

func (q ListSupplierBookingsQuery) AllowedRoles() []domainbooking.Role { return supplierOnly }

type PreviewCancellationQuery struct {
	BookingID string `validate:"required"`
}

func (q PreviewCancellationQuery) Key() string { return previewCancellationKey }

var ErrQueryDepsRequired = errors.New("booking: query handler missing dependencies")

// BookingQueries answers reads with UI flags projected for the caller.
type BookingQueries struct {
	Bookings  domainbooking.Repository
	Reviews   domainreviews.Repository
	Lifecycle StateMachine
	Clock     domainbooking.Clock
}

func (h *BookingQueries) Get(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	actor, err := h.ready(ctx)
	if err != nil {
		return dto.Booking{}, err
	}
	b, err := h.Bookings.ByID(ctx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.Booking{}, err
	}
	if !b.VisibleTo(actor) {
		return dto.Booking{}, fmt.Errorf("%w: booking %s", domainbooking.ErrPermissionDenied, b.ID)
	}
	return h.view(ctx, actor, b)
}

func (h *BookingQueries) ListForClient(ctx context.Context, q ListClientBookingsQuery) (dto.BookingCollection, error) {
	actor, err := h.ready(ctx)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	items, err := h.Bookings.ListByClient(ctx, actor.ID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return h.collect(ctx, actor, items, q.Status)
}

func (h *BookingQueries) ListForSupplier(ctx context.Context, q ListSupplierBookingsQuery) (dto.BookingCollection, error) {
	actor, err := h.ready(ctx)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	items, err := h.Bookings.ListBySupplier(ctx, actor.ID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return h.collect(ctx, actor, items, q.Status)
}

// PreviewCancellation shows the settlement a cancellation would commit now.
func (h *BookingQueries) PreviewCancellation(ctx context.Context, q PreviewCancellationQuery) (dto.Settlement, error) {
	actor, err := h.ready(ctx)
	if err != nil {
		return dto.Settlement{}, err
	}
	if h.Lifecycle == nil {
		return dto.Settlement{}, ErrStateMachineRequired
	}
	b, res, err := h.Lifecycle.PreviewCancellation(ctx, actor, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.Settlement{}, err
	}
	return dto.MapSettlement(b.PaidAmount, res), nil
}

func (h *BookingQueries) collect(ctx context.Context, actor domainbooking.Actor, items []*domainbooking.Booking, rawStatus string) (dto.BookingCollection, error) {
	var filter domainbooking.Status
	if strings.TrimSpace(rawStatus) != "" {
		st, err := domainbooking.ParseStatus(rawStatus)
		if err != nil {
			return dto.BookingCollection{}, err
		}
		filter = st
	}
	out := dto.BookingCollection{Items: make([]dto.Booking, 0, len(items))}
	for _, b := range items {
		if filter != "" && b.Status != filter {
			continue
		}
		view, err := h.view(ctx, actor, b)
		if err != nil {
			return dto.BookingCollection{}, err
		}
		out.Items = append(out.Items, view)
	}
	return out, nil
}

func (h *BookingQueries) view(ctx context.Context, actor domainbooking.Actor, b *domainbooking.Booking) (dto.Booking, error) {
	hasReview, err := h.hasReview(ctx, b)
	if err != nil {
		return dto.Booking{}, err
	}
	flags := domainbooking.ProjectFlags(b, domainbooking.FlagsInput{
		Viewer:    actor,
		Now:       h.Clock.Moment(),
		HasReview: hasReview,
	})
	return dto.MapBooking(b, &flags), nil
}

func (h *BookingQueries) hasReview(ctx context.Context, b *domainbooking.Booking) (bool, error) {
	if h.Reviews == nil || b.Status != domainbooking.StatusCompleted {
		return false, nil
	}
	_, err := h.Reviews.ByBooking(ctx, b.ID, b.ClientID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domainreviews.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (h *BookingQueries) ready(ctx context.Context) (domainbooking.Actor, error) {
	if h.Bookings == nil {
		return domainbooking.Actor{}, ErrQueryDepsRequired
	}
	return actorFrom(ctx)
}

// Register attaches the booking queries to bus.
func (h *BookingQueries) Register(bus *queries.InMemoryBus) {
	queries.RegisterHandler[GetBookingQuery, dto.Booking](bus, getBookingKey, queries.HandlerFunc[GetBookingQuery, dto.Booking](h.Get))
	queries.RegisterHandler[ListClientBookingsQuery, dto.BookingCollection](bus, listClientBookingsKey, queries.HandlerFunc[ListClientBookingsQuery, dto.BookingCollection](h.ListForClient))
	queries.RegisterHandler[ListSupplierBookingsQuery, dto.BookingCollection](bus, listSupplierBookingsKey, queries.HandlerFunc[ListSupplierBookingsQuery, dto.BookingCollection](h.ListForSupplier))
	queries.RegisterHandler[PreviewCancellationQuery, dto.Settlement](bus, previewCancellationKey, queries.HandlerFunc[PreviewCancellationQuery, dto.Settlement](h.PreviewCancellation))
}
