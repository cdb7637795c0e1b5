package settlement

import (
	"errors"
	"fmt"

	"eventbook/internal/domain/shared/money"
)

var ErrInvalidPolicy = errors.New("settlement: invalid cancellation policy")

// Tier refunds Refund of the paid amount when the cancellation happens at
// least DaysBeforeEvent days ahead of the event.
type Tier struct {
	DaysBeforeEvent int        `json:"days_before_event" bson:"days_before_event"`
	Refund          money.Rate `json:"refund_bps" bson:"refund_bps"`
}

// Policy is the supplier- or platform-level cancellation configuration.
// Tiers are ordered by DaysBeforeEvent, strictly descending.
type Policy struct {
	ID          string     `json:"id" bson:"id"`
	Tiers       []Tier     `json:"tiers" bson:"tiers"`
	PlatformFee money.Rate `json:"platform_fee_bps" bson:"platform_fee_bps"`
}

// PlatformDefault applies when a supplier did not configure a policy.
func PlatformDefault() Policy {
	return Policy{
		ID: "platform-default",
		Tiers: []Tier{
			{DaysBeforeEvent: 30, Refund: 10000},
			{DaysBeforeEvent: 7, Refund: 5000},
			{DaysBeforeEvent: 0, Refund: 0},
		},
		PlatformFee: 1000,
	}
}

func (p Policy) Validate() error {
	if !p.PlatformFee.Valid() {
		return fmt.Errorf("%w: platform fee %d bps", ErrInvalidPolicy, p.PlatformFee)
	}
	for i, tier := range p.Tiers {
		if tier.DaysBeforeEvent < 0 {
			return fmt.Errorf("%w: tier %d has negative days", ErrInvalidPolicy, i)
		}
		if !tier.Refund.Valid() {
			return fmt.Errorf("%w: tier %d refund %d bps", ErrInvalidPolicy, i, tier.Refund)
		}
		if i > 0 && tier.DaysBeforeEvent >= p.Tiers[i-1].DaysBeforeEvent {
			return fmt.Errorf("%w: tiers must be sorted by days descending", ErrInvalidPolicy)
		}
	}
	return nil
}

// TierFor picks the first tier whose DaysBeforeEvent <= daysToEvent.
func (p Policy) TierFor(daysToEvent int) (Tier, bool) {
	for _, tier := range p.Tiers {
		if tier.DaysBeforeEvent <= daysToEvent {
			return tier, true
		}
	}
	return Tier{}, false
}

// Clone copies the tier list so snapshots never alias configuration.
func (p Policy) Clone() Policy {
	out := p
	out.Tiers = append([]Tier(nil), p.Tiers...)
	return out
}
