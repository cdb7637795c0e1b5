package booking

import (
	"context"
	"errors"

	"eventbook/internal/app/commands"
	"eventbook/internal/app/dto"
	"eventbook/internal/app/middleware"
	domainbooking "eventbook/internal/domain/booking"
	"eventbook/internal/domain/settlement"
	"eventbook/internal/domain/shared/money"
)

const (
	transitionBookingKey = "booking.transition"
	cancelBookingKey     = "booking.cancel"
	recordPaymentKey     = "booking.payment"
)

// StateMachine is the lifecycle service as seen by the handlers.
type StateMachine interface {
	Transition(ctx context.Context, actor domainbooking.Actor, id domainbooking.BookingID, req domainbooking.TransitionRequest) (*domainbooking.Booking, domainbooking.Outcome, error)
	Cancel(ctx context.Context, actor domainbooking.Actor, id domainbooking.BookingID, reason string) (*domainbooking.Booking, settlement.Result, error)
	PreviewCancellation(ctx context.Context, actor domainbooking.Actor, id domainbooking.BookingID) (*domainbooking.Booking, settlement.Result, error)
	RecordPayment(ctx context.Context, actor domainbooking.Actor, id domainbooking.BookingID, amount money.Money) (*domainbooking.Booking, error)
}

var ErrStateMachineRequired = errors.New("booking: lifecycle service required")

type TransitionBookingCommand struct {
	BookingID    string `validate:"required"`
	TargetStatus string `validate:"required"`
	Reason       string `validate:"max=1000"`
	RefundAmount *int64 `validate:"omitempty,gte=0"`
}

func (c TransitionBookingCommand) Key() string { return transitionBookingKey }

func (c TransitionBookingCommand) AllowedRoles() []domainbooking.Role { return anyParticipant }

type TransitionResult struct {
	From       string          `json:"from"`
	To         string          `json:"to"`
	Booking    dto.Booking     `json:"booking"`
	Settlement *dto.Settlement `json:"settlement,omitempty"`
}

type CancelBookingCommand struct {
	BookingID       string `validate:"required"`
	Reason          string `validate:"max=1000"`
	IdempotencyKeyV string
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

func (c CancelBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CancelBookingCommand) ResultPrototype() any { return &CancelBookingResult{} }

func (c CancelBookingCommand) AllowedRoles() []domainbooking.Role { return anyParticipant }

type CancelBookingResult struct {
	BookingID  string         `json:"booking_id"`
	Status     string         `json:"status"`
	Settlement dto.Settlement `json:"settlement"`
}

type RecordPaymentCommand struct {
	BookingID string `validate:"required"`
	Amount    int64  `validate:"gt=0"`
	Currency  string `validate:"omitempty,len=3"`
}

func (c RecordPaymentCommand) Key() string { return recordPaymentKey }

func (c RecordPaymentCommand) AllowedRoles() []domainbooking.Role { return clientOnly }

// LifecycleHandler serves every command that moves an existing booking.
type LifecycleHandler struct {
	Lifecycle StateMachine
}

func (h *LifecycleHandler) Transition(ctx context.Context, cmd TransitionBookingCommand) (*TransitionResult, error) {
	actor, err := h.ready(ctx)
	if err != nil {
		return nil, err
	}
	target, err := domainbooking.ParseStatus(cmd.TargetStatus)
	if err != nil {
		return nil, err
	}
	req := domainbooking.TransitionRequest{Target: target, Reason: cmd.Reason}
	if cmd.RefundAmount != nil {
		req.RefundAmount = &money.Money{Amount: *cmd.RefundAmount}
	}
	b, outcome, err := h.Lifecycle.Transition(ctx, actor, domainbooking.BookingID(cmd.BookingID), req)
	if err != nil {
		return nil, err
	}
	out := &TransitionResult{
		From:    string(outcome.From),
		To:      string(outcome.To),
		Booking: dto.MapBooking(b, nil),
	}
	if outcome.Settlement != nil {
		s := dto.MapSettlement(b.PaidAmount, *outcome.Settlement)
		out.Settlement = &s
	}
	return out, nil
}

func (h *LifecycleHandler) Cancel(ctx context.Context, cmd CancelBookingCommand) (*CancelBookingResult, error) {
	actor, err := h.ready(ctx)
	if err != nil {
		return nil, err
	}
	b, res, err := h.Lifecycle.Cancel(ctx, actor, domainbooking.BookingID(cmd.BookingID), cmd.Reason)
	if err != nil {
		return nil, err
	}
	return &CancelBookingResult{
		BookingID:  string(b.ID),
		Status:     string(b.Status),
		Settlement: dto.MapSettlement(b.PaidAmount, res),
	}, nil
}

func (h *LifecycleHandler) RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (*dto.Booking, error) {
	actor, err := h.ready(ctx)
	if err != nil {
		return nil, err
	}
	b, err := h.Lifecycle.RecordPayment(ctx, actor, domainbooking.BookingID(cmd.BookingID), money.Money{Amount: cmd.Amount, Currency: cmd.Currency})
	if err != nil {
		return nil, err
	}
	out := dto.MapBooking(b, nil)
	return &out, nil
}

func (h *LifecycleHandler) ready(ctx context.Context) (domainbooking.Actor, error) {
	if h.Lifecycle == nil {
		return domainbooking.Actor{}, ErrStateMachineRequired
	}
	return actorFrom(ctx)
}

// Register attaches the lifecycle commands to bus.
func (h *LifecycleHandler) Register(bus *commands.InMemoryBus) {
	commands.RegisterHandler[TransitionBookingCommand, *TransitionResult](bus, transitionBookingKey, commands.HandlerFunc[TransitionBookingCommand, *TransitionResult](h.Transition))
	commands.RegisterHandler[CancelBookingCommand, *CancelBookingResult](bus, cancelBookingKey, commands.HandlerFunc[CancelBookingCommand, *CancelBookingResult](h.Cancel))
	commands.RegisterHandler[RecordPaymentCommand, *dto.Booking](bus, recordPaymentKey, commands.HandlerFunc[RecordPaymentCommand, *dto.Booking](h.RecordPayment))
}

var _ middleware.IdempotentCommand = CancelBookingCommand{}
