package booking

import (
	"context"
	"errors"

	"eventbook/internal/app/commands"
	"eventbook/internal/app/dto"
	"eventbook/internal/app/middleware"
	"eventbook/internal/app/services/reservations"
	domainbooking "eventbook/internal/domain/booking"
)

const createBookingKey = "booking.create"

type CreateBookingCommand struct {
	BookingID       string   `validate:"omitempty,max=64"`
	SupplierID      string   `validate:"required"`
	PackageID       string   `validate:"required"`
	EventName       string   `validate:"required,max=200"`
	EventLocation   string   `validate:"required,max=300"`
	EventDate       string   `validate:"required,datetime=2006-01-02"`
	EventTime       string   `validate:"omitempty,max=100"`
	GuestCount      int      `validate:"gt=0"`
	Customizations  []string `validate:"dive,required"`
	TotalPrice      int64    `validate:"gte=0"`
	Currency        string   `validate:"omitempty,len=3"`
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateBookingCommand) ResultPrototype() any { return &CreateBookingResult{} }

func (c CreateBookingCommand) AllowedRoles() []domainbooking.Role { return clientOnly }

type CreateBookingResult struct {
	BookingID string      `json:"booking_id"`
	Status    string      `json:"status"`
	Created   bool        `json:"created"`
	Booking   dto.Booking `json:"booking"`
}

type BookingCreator interface {
	CreateBooking(ctx context.Context, req reservations.Request) (reservations.Result, error)
}

var ErrCreatorRequired = errors.New("booking: resolver required")

type CreateBookingHandler struct {
	Resolver BookingCreator
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*CreateBookingResult, error) {
	if h.Resolver == nil {
		return nil, ErrCreatorRequired
	}
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	date, err := parseDate("event_date", cmd.EventDate)
	if err != nil {
		return nil, err
	}
	res, err := h.Resolver.CreateBooking(ctx, reservations.Request{
		BookingID:      cmd.BookingID,
		ClientID:       actor.ID,
		SupplierID:     cmd.SupplierID,
		PackageID:      cmd.PackageID,
		EventName:      cmd.EventName,
		EventLocation:  cmd.EventLocation,
		EventDate:      date,
		EventTime:      cmd.EventTime,
		GuestCount:     cmd.GuestCount,
		Customizations: cmd.Customizations,
		TotalPrice:     cmd.TotalPrice,
		Currency:       cmd.Currency,
	})
	if err != nil {
		return nil, err
	}
	return &CreateBookingResult{
		BookingID: string(res.Booking.ID),
		Status:    string(res.Booking.Status),
		Created:   res.Created,
		Booking:   dto.MapBooking(res.Booking, nil),
	}, nil
}

func (h *CreateBookingHandler) Register(bus *commands.InMemoryBus) {
	commands.RegisterHandler[CreateBookingCommand, *CreateBookingResult](bus, createBookingKey, h)
}

var _ commands.Handler[CreateBookingCommand, *CreateBookingResult] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = CreateBookingCommand{}
var _ middleware.RoleRestricted = CreateBookingCommand{}
