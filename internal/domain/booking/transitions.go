package booking

import (
	"fmt"
	"time"

	"eventbook/internal/domain/settlement"
	"eventbook/internal/domain/shared/money"
)

// DefaultDisputeWindow applies when a booking carries no window of its own.
const DefaultDisputeWindow = 14 * 24 * time.Hour

type guardFunc func(b *Booking, now Moment) error

// Rule is one row of the transition table.
type Rule struct {
	from   Status
	to     Status
	roles  []Role
	guard  guardFunc
	reject bool
}

// Rejects reports whether the row is a supplier turning down a request.
func (r Rule) Rejects() bool { return r.reject }

func (r Rule) allows(role Role) bool {
	for _, candidate := range r.roles {
		if candidate == role {
			return true
		}
	}
	return false
}

// Rows are matched in order; the first row admitting the actor wins, so a
// supplier rejecting a pending request never hits the date guard.
var transitionTable = []Rule{
	{from: StatusPending, to: StatusConfirmed, roles: []Role{RoleSupplier}},
	{from: StatusPending, to: StatusCancelled, roles: []Role{RoleSupplier}, reject: true},
	{from: StatusPending, to: StatusCancelled, roles: []Role{RoleClient}, guard: eventNotPast},
	{from: StatusConfirmed, to: StatusCancelled, roles: []Role{RoleClient, RoleSupplier}, guard: eventNotPast},
	{from: StatusConfirmed, to: StatusInProgress, roles: []Role{RoleSupplier}, guard: eventArrived},
	{from: StatusInProgress, to: StatusCompleted, roles: []Role{RoleSupplier}},
	{from: StatusConfirmed, to: StatusDisputed, roles: []Role{RoleClient}},
	{from: StatusInProgress, to: StatusDisputed, roles: []Role{RoleClient}},
	{from: StatusCompleted, to: StatusDisputed, roles: []Role{RoleClient}, guard: withinDisputeWindow},
	{from: StatusDisputed, to: StatusRefunded, roles: []Role{RoleOperator}},
}

func eventNotPast(b *Booking, now Moment) error {
	if b.EventDate.Before(now.Today) {
		return fmt.Errorf("event date %s has passed", b.EventDate)
	}
	return nil
}

func eventArrived(b *Booking, now Moment) error {
	if now.Today.Before(b.EventDate) {
		return fmt.Errorf("event date %s has not arrived", b.EventDate)
	}
	return nil
}

func withinDisputeWindow(b *Booking, now Moment) error {
	if b.CompletedAt == nil {
		return fmt.Errorf("completion time unknown")
	}
	window := b.DisputeWindow
	if window <= 0 {
		window = DefaultDisputeWindow
	}
	if now.At.After(b.CompletedAt.Add(window)) {
		return fmt.Errorf("dispute window of %s closed", window)
	}
	return nil
}

// Decide resolves which table row lets actor move b to target at now. It
// never mutates b.
func Decide(b *Booking, actor Actor, target Status, now Moment) (Rule, error) {
	if err := b.authorize(actor); err != nil {
		return Rule{}, err
	}
	var candidates []Rule
	for _, r := range transitionTable {
		if r.from == b.Status && r.to == target {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return Rule{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, target)
	}
	for _, r := range candidates {
		if !r.allows(actor.Role) {
			continue
		}
		if r.guard != nil {
			if err := r.guard(b, now); err != nil {
				return Rule{}, fmt.Errorf("%w: %s -> %s: %s", ErrInvalidTransition, b.Status, target, err.Error())
			}
		}
		return r, nil
	}
	return Rule{}, fmt.Errorf("%w: %s may not move a booking %s -> %s", ErrPermissionDenied, actor.Role, b.Status, target)
}

// Can reports whether Decide would admit the transition.
func Can(b *Booking, actor Actor, target Status, now Moment) bool {
	_, err := Decide(b, actor, target, now)
	return err == nil
}

// TransitionRequest carries the optional inputs of a status change.
type TransitionRequest struct {
	Target Status
	Reason string
	// RefundAmount is only read for DISPUTED -> REFUNDED; nil refunds the
	// full paid amount.
	RefundAmount *money.Money
}

// Outcome describes what a transition did.
type Outcome struct {
	From       Status
	To         Status
	Settlement *settlement.Result
}

// Transition applies req for actor. On error the booking is left untouched.
func (b *Booking) Transition(actor Actor, req TransitionRequest, now Moment) (Outcome, error) {
	from := b.Status
	switch req.Target {
	case StatusConfirmed:
		return b.simple(actor, req.Target, now, func(at time.Time) {
			b.Record(BookingConfirmed{BookingID: b.ID, SupplierID: b.SupplierID, EventDate: b.EventDate.String(), At: at})
		})
	case StatusInProgress:
		return b.simple(actor, req.Target, now, func(at time.Time) {
			b.Record(BookingStarted{BookingID: b.ID, At: at})
		})
	case StatusCompleted:
		return b.simple(actor, req.Target, now, func(at time.Time) {
			completed := at
			b.CompletedAt = &completed
			b.Record(BookingCompleted{BookingID: b.ID, At: at})
		})
	case StatusDisputed:
		return b.simple(actor, req.Target, now, func(at time.Time) {
			disputed := at
			b.DisputedAt = &disputed
			b.DisputeReason = req.Reason
			b.Record(BookingDisputed{BookingID: b.ID, ClientID: actor.ID, Reason: req.Reason, At: at})
		})
	case StatusRefunded:
		if err := b.refund(actor, req, now); err != nil {
			return Outcome{}, err
		}
		return Outcome{From: from, To: b.Status}, nil
	case StatusCancelled:
		res, err := b.Cancel(actor, req.Reason, now)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{From: from, To: b.Status, Settlement: &res}, nil
	case StatusPending:
		return Outcome{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, req.Target)
	default:
		return Outcome{}, fmt.Errorf("%w: unknown target status %q", ErrValidation, req.Target)
	}
}

func (b *Booking) simple(actor Actor, target Status, now Moment, apply func(at time.Time)) (Outcome, error) {
	from := b.Status
	if _, err := Decide(b, actor, target, now); err != nil {
		return Outcome{}, err
	}
	at := now.At.UTC()
	b.Status = target
	b.UpdatedAt = at
	apply(at)
	return Outcome{From: from, To: target}, nil
}

// PreviewCancellation computes the split a cancellation by actor would
// produce at now without changing the booking.
func (b *Booking) PreviewCancellation(actor Actor, now Moment) (settlement.Result, error) {
	if _, err := Decide(b, actor, StatusCancelled, now); err != nil {
		return settlement.Result{}, err
	}
	return b.settle(actor, now)
}

// Cancel moves the booking to CANCELLED and records the settlement. The slot
// is released afterwards by the caller, once this state is durable.
func (b *Booking) Cancel(actor Actor, reason string, now Moment) (settlement.Result, error) {
	r, err := Decide(b, actor, StatusCancelled, now)
	if err != nil {
		return settlement.Result{}, err
	}
	res, err := b.settle(actor, now)
	if err != nil {
		return settlement.Result{}, err
	}
	at := now.At.UTC()
	b.Status = StatusCancelled
	b.UpdatedAt = at
	b.Cancellation = &Cancellation{
		ByID:     actor.ID,
		ByRole:   actor.Role,
		Reason:   reason,
		Rejected: r.reject,
		Result:   res,
		At:       at,
	}
	b.Record(BookingCancelled{
		BookingID:      b.ID,
		SupplierID:     b.SupplierID,
		EventDate:      b.EventDate.String(),
		CancelledBy:    actor.ID,
		CancelledRole:  actor.Role,
		Rejected:       r.reject,
		Reason:         reason,
		PaidAmount:     b.PaidAmount,
		RefundAmount:   res.RefundAmount,
		PlatformFee:    res.PlatformFee,
		SupplierPayout: res.SupplierPayout,
		Message:        res.Message,
		At:             at,
	})
	return res, nil
}

func (b *Booking) settle(actor Actor, now Moment) (settlement.Result, error) {
	initiator := settlement.InitiatorClient
	if actor.Role == RoleSupplier {
		initiator = settlement.InitiatorSupplier
	}
	res, err := settlement.Compute(b.Policy, settlement.Input{
		TotalPrice: b.TotalPrice,
		PaidAmount: b.PaidAmount,
		EventDate:  b.EventDate,
		Today:      now.Today,
		Initiator:  initiator,
	})
	if err != nil {
		return settlement.Result{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return res, nil
}

func (b *Booking) refund(actor Actor, req TransitionRequest, now Moment) error {
	if _, err := Decide(b, actor, StatusRefunded, now); err != nil {
		return err
	}
	amount := b.PaidAmount
	if req.RefundAmount != nil {
		amount = *req.RefundAmount
		if amount.Currency == "" {
			amount.Currency = b.PaidAmount.Currency
		}
		if amount.Currency != b.PaidAmount.Currency {
			return fmt.Errorf("%w: refund currency %s differs from %s", ErrValidation, amount.Currency, b.PaidAmount.Currency)
		}
		if amount.Amount < 0 || amount.Amount > b.PaidAmount.Amount {
			return fmt.Errorf("%w: refund must be between 0 and %s", ErrValidation, b.PaidAmount)
		}
	}
	at := now.At.UTC()
	b.Status = StatusRefunded
	b.UpdatedAt = at
	b.Resolution = &Resolution{ByID: actor.ID, Refunded: amount, Note: req.Reason, At: at}
	b.Record(BookingRefunded{BookingID: b.ID, OperatorID: actor.ID, Amount: amount, Note: req.Reason, At: at})
	return nil
}
