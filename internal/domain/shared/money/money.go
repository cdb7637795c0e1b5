package money

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	ErrNegativeAmount   = errors.New("money: negative amount")
	ErrInvalidRate      = errors.New("money: rate out of range")
	ErrOverflow         = errors.New("money: amount overflows int64")
)

// BasisPointsScale is the denominator of Rate: 10000 bps == 100%.
const BasisPointsScale int64 = 10000

// Money keeps amounts in integer minor units to avoid floating point issues.
type Money struct {
	Amount   int64  `json:"amount" bson:"amount"`
	Currency string `json:"currency" bson:"currency"`
}

// Rate is a fraction expressed in basis points (0..10000).
type Rate int64

// New constructs a Money value validating minimal invariants.
func New(amount int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	currency = strings.ToUpper(currency)
	return Money{Amount: amount, Currency: currency}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns an empty amount in the given currency.
func Zero(currency string) Money {
	return Money{Amount: 0, Currency: strings.ToUpper(currency)}
}

// Add adds two money values ensuring currencies match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	sum := m.Amount + other.Amount
	if (other.Amount > 0 && sum < m.Amount) || (other.Amount < 0 && sum > m.Amount) {
		return Money{}, ErrOverflow
	}
	return Money{Amount: sum, Currency: m.Currency}, nil
}

// Sub subtracts other from the receiver.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	diff := m.Amount - other.Amount
	if (other.Amount > 0 && diff > m.Amount) || (other.Amount < 0 && diff < m.Amount) {
		return Money{}, ErrOverflow
	}
	return Money{Amount: diff, Currency: m.Currency}, nil
}

// Apply returns round-half-up(m × rate) in the same currency.
// Only non-negative amounts are supported.
func (m Money) Apply(rate Rate) (Money, error) {
	if m.Amount < 0 {
		return Money{}, ErrNegativeAmount
	}
	if !rate.Valid() {
		return Money{}, ErrInvalidRate
	}
	scaled := m.Amount*int64(rate) + BasisPointsScale/2
	return Money{Amount: scaled / BasisPointsScale, Currency: m.Currency}, nil
}

// IsZero returns true if the amount equals zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.Currency)
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}

// RateFromFraction converts 0.5 into 5000 bps, rounding to the nearest basis point.
func RateFromFraction(f float64) (Rate, error) {
	if f < 0 || f > 1 {
		return 0, ErrInvalidRate
	}
	bps := int64(f*float64(BasisPointsScale) + 0.5)
	return Rate(bps), nil
}

// Valid reports whether the rate lies within [0%, 100%].
func (r Rate) Valid() bool {
	return r >= 0 && int64(r) <= BasisPointsScale
}

// Percent formats the rate as a percentage string, e.g. "12.5%".
func (r Rate) Percent() string {
	whole := int64(r) / 100
	frac := int64(r) % 100
	if frac == 0 {
		return fmt.Sprintf("%d%%", whole)
	}
	if frac%10 == 0 {
		return fmt.Sprintf("%d.%d%%", whole, frac/10)
	}
	return fmt.Sprintf("%d.%02d%%", whole, frac)
}
