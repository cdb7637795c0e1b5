package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"eventbook/internal/app/commands"
	"eventbook/internal/app/dto"
	"eventbook/internal/app/outbox"
	"eventbook/internal/app/queries"
	domainbooking "eventbook/internal/domain/booking"
	domainreviews "eventbook/internal/domain/reviews"
)

const (
	submitReviewKey        = "booking.review.submit"
	listSupplierReviewsKey = "review.list.supplier"
)

type SubmitReviewCommand struct {
	BookingID string `validate:"required"`
	Rating    int    `validate:"min=1,max=5"`
	Text      string `validate:"max=2000"`
}

func (c SubmitReviewCommand) Key() string { return submitReviewKey }

func (c SubmitReviewCommand) AllowedRoles() []domainbooking.Role { return clientOnly }

var ErrReviewDepsRequired = errors.New("booking: review handler missing dependencies")

type SubmitReviewHandler struct {
	Bookings domainbooking.Repository
	Reviews  domainreviews.Repository
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Now      func() time.Time
}

func (h *SubmitReviewHandler) Handle(ctx context.Context, cmd SubmitReviewCommand) (*dto.Review, error) {
	if h.Bookings == nil || h.Reviews == nil {
		return nil, ErrReviewDepsRequired
	}
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	b, err := h.Bookings.ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	review, err := domainreviews.Submit(domainreviews.SubmitParams{
		ID:        domainreviews.ReviewID(uuid.NewString()),
		Booking:   b,
		AuthorID:  actor.ID,
		Rating:    cmd.Rating,
		Text:      cmd.Text,
		CreatedAt: now(),
	})
	if err != nil {
		return nil, err
	}
	if err := h.Reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, review); err != nil {
		return nil, err
	}
	out := dto.MapReview(review)
	return &out, nil
}

func (h *SubmitReviewHandler) Register(bus *commands.InMemoryBus) {
	commands.RegisterHandler[SubmitReviewCommand, *dto.Review](bus, submitReviewKey, h)
}

var _ commands.Handler[SubmitReviewCommand, *dto.Review] = (*SubmitReviewHandler)(nil)

type ListSupplierReviewsQuery struct {
	SupplierID string `validate:"required"`
	Limit      int    `validate:"gte=0,lte=100"`
	Offset     int    `validate:"gte=0"`
}

func (q ListSupplierReviewsQuery) Key() string { return listSupplierReviewsKey }

// ReviewQueries serves a supplier's reviews, newest first.
type ReviewQueries struct {
	Reviews domainreviews.Repository
}

func (h *ReviewQueries) ListForSupplier(ctx context.Context, q ListSupplierReviewsQuery) (dto.ReviewCollection, error) {
	if h.Reviews == nil {
		return dto.ReviewCollection{}, ErrReviewDepsRequired
	}
	limit := q.Limit
	if limit == 0 {
		limit = 20
	}
	items, err := h.Reviews.ListBySupplier(ctx, q.SupplierID, limit, q.Offset)
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	return dto.MapReviews(items), nil
}

func (h *ReviewQueries) Register(bus *queries.InMemoryBus) {
	queries.RegisterHandler[ListSupplierReviewsQuery, dto.ReviewCollection](bus, listSupplierReviewsKey, queries.HandlerFunc[ListSupplierReviewsQuery, dto.ReviewCollection](h.ListForSupplier))
}
