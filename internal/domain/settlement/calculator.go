package settlement

import (
	"errors"
	"fmt"
	"strings"

	"eventbook/internal/domain/shared/calendar"
	"eventbook/internal/domain/shared/money"
)

var ErrInvalidInput = errors.New("settlement: invalid input")

// Initiator is the party cancelling the booking.
type Initiator string

const (
	InitiatorClient   Initiator = "client"
	InitiatorSupplier Initiator = "supplier"
)

// Input carries everything the split depends on. Identical inputs always
// produce identical results.
type Input struct {
	TotalPrice money.Money
	PaidAmount money.Money
	EventDate  calendar.Date
	Today      calendar.Date
	Initiator  Initiator
}

// Result is the refund/fee/payout split of a cancellation.
//
// RefundAmount + PlatformFee + SupplierPayout == PaidAmount holds for every
// result. The unpaid balance (TotalPrice - PaidAmount) is reported as
// Forfeited and belongs to none of the three buckets.
type Result struct {
	RefundAmount   money.Money
	PlatformFee    money.Money
	SupplierPayout money.Money
	Forfeited      money.Money
	RefundRate     money.Rate
	FeeRate        money.Rate
	DaysToEvent    int
	TierDays       int
	TierMatched    bool
	Message        string
}

// Compute splits the paid amount of a cancelled booking. It has no side effects.
func Compute(policy Policy, in Input) (Result, error) {
	if err := policy.Validate(); err != nil {
		return Result{}, err
	}
	if err := in.validate(); err != nil {
		return Result{}, err
	}
	days := in.Today.DaysUntil(in.EventDate)
	if days < 0 {
		days = 0
	}
	res := Result{
		DaysToEvent: days,
		FeeRate:     policy.PlatformFee,
	}

	switch in.Initiator {
	case InitiatorSupplier:
		res.RefundRate = money.Rate(money.BasisPointsScale)
		res.FeeRate = 0
	default:
		tier, ok := policy.TierFor(days)
		if ok {
			res.RefundRate = tier.Refund
			res.TierDays = tier.DaysBeforeEvent
			res.TierMatched = true
		}
	}

	refund, err := in.PaidAmount.Apply(res.RefundRate)
	if err != nil {
		return Result{}, err
	}
	retained, err := in.PaidAmount.Sub(refund)
	if err != nil {
		return Result{}, err
	}
	fee, err := retained.Apply(res.FeeRate)
	if err != nil {
		return Result{}, err
	}
	payout, err := retained.Sub(fee)
	if err != nil {
		return Result{}, err
	}
	forfeited, err := in.TotalPrice.Sub(in.PaidAmount)
	if err != nil {
		return Result{}, err
	}

	res.RefundAmount = refund
	res.PlatformFee = fee
	res.SupplierPayout = payout
	res.Forfeited = forfeited
	res.Message = describe(in, res, retained)
	return res, nil
}

// Balanced reports whether the accounting identity holds for paid.
func (r Result) Balanced(paid money.Money) bool {
	sum := r.RefundAmount.Amount + r.PlatformFee.Amount + r.SupplierPayout.Amount
	return sum == paid.Amount &&
		r.RefundAmount.Amount >= 0 && r.PlatformFee.Amount >= 0 && r.SupplierPayout.Amount >= 0
}

func (in Input) validate() error {
	if in.EventDate.IsZero() || in.Today.IsZero() {
		return fmt.Errorf("%w: event date and current date are required", ErrInvalidInput)
	}
	if in.PaidAmount.Amount < 0 || in.TotalPrice.Amount < 0 {
		return fmt.Errorf("%w: negative amounts", ErrInvalidInput)
	}
	if len(in.TotalPrice.Currency) != 3 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, money.ErrInvalidCurrency)
	}
	if in.PaidAmount.Currency != in.TotalPrice.Currency {
		return fmt.Errorf("%w: %w", ErrInvalidInput, money.ErrCurrencyMismatch)
	}
	if in.PaidAmount.Amount > in.TotalPrice.Amount {
		return fmt.Errorf("%w: paid amount exceeds total price", ErrInvalidInput)
	}
	return nil
}

func describe(in Input, res Result, retained money.Money) string {
	var b strings.Builder
	if in.Initiator == InitiatorSupplier {
		b.WriteString("Cancelled by the supplier: the client is refunded in full.")
	} else {
		fmt.Fprintf(&b, "Cancelled %d day(s) before the event", res.DaysToEvent)
		if res.TierMatched {
			fmt.Fprintf(&b, "; the %d-day tier refunds %s of the amount paid.", res.TierDays, res.RefundRate.Percent())
		} else {
			b.WriteString("; no refund tier applies.")
		}
	}
	if in.PaidAmount.IsZero() {
		b.WriteString(" Nothing was paid, so no refund, fee or payout is due.")
	} else {
		fmt.Fprintf(&b, " Refund %s, platform fee %s (%s of %s retained), supplier payout %s.",
			res.RefundAmount, res.PlatformFee, res.FeeRate.Percent(), retained, res.SupplierPayout)
	}
	if res.Forfeited.Amount > 0 {
		fmt.Fprintf(&b, " The unpaid balance of %s will not be collected.", res.Forfeited)
	}
	return b.String()
}
