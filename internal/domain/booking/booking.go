package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventbook/internal/domain/availability"
	"eventbook/internal/domain/settlement"
	"eventbook/internal/domain/shared/calendar"
	"eventbook/internal/domain/shared/events"
	"eventbook/internal/domain/shared/money"
)

var (
	ErrValidation        = errors.New("booking: validation failed")
	ErrInvalidTransition = errors.New("booking: invalid transition")
	ErrPermissionDenied  = errors.New("booking: permission denied")
	ErrStorageConflict   = errors.New("booking: concurrent update detected")
	ErrBookingNotFound   = errors.New("booking: not found")
	ErrBookingExists     = errors.New("booking: already exists")
	// ErrDateConflict is returned when the requested date is blocked or full.
	ErrDateConflict = availability.ErrSlotUnavailable
)

type BookingID string

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusDisputed   Status = "DISPUTED"
	StatusRefunded   Status = "REFUNDED"
)

// ParseStatus accepts the canonical upper-case names as well as the
// camelCase spelling used by mobile clients ("inProgress").
func ParseStatus(raw string) (Status, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if normalized == "INPROGRESS" {
		normalized = string(StatusInProgress)
	}
	switch st := Status(normalized); st {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted,
		StatusCancelled, StatusDisputed, StatusRefunded:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
}

type Role string

const (
	RoleClient   Role = "client"
	RoleSupplier Role = "supplier"
	RoleOperator Role = "operator"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleSupplier, RoleOperator:
		return true
	}
	return false
}

// Actor is the caller of a booking operation.
type Actor struct {
	ID   string
	Role Role
}

// Moment is the instant an operation runs at, together with the calendar day
// it falls on in the business timezone.
type Moment struct {
	At    time.Time
	Today calendar.Date
}

// MomentIn derives the business-calendar day of at in loc.
func MomentIn(at time.Time, loc *time.Location) Moment {
	if loc == nil {
		loc = time.UTC
	}
	return Moment{At: at.UTC(), Today: calendar.DateOf(at.In(loc))}
}

// Clock yields Moments in the business timezone.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

func (c Clock) Moment() Moment {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return MomentIn(now(), c.Location)
}

// Customization is a selected extra with its price captured at booking time.
type Customization struct {
	Name  string      `json:"name"`
	Price money.Money `json:"price"`
}

// Cancellation is the audit record of a committed cancellation.
type Cancellation struct {
	ByID     string
	ByRole   Role
	Reason   string
	Rejected bool
	Result   settlement.Result
	At       time.Time
}

// Resolution is the operator's decision on a dispute.
type Resolution struct {
	ByID     string
	Refunded money.Money
	Note     string
	At       time.Time
}

type Booking struct {
	ID             BookingID
	ClientID       string
	SupplierID     string
	PackageID      string
	EventName      string
	EventLocation  string
	EventDate      calendar.Date
	EventTime      string
	GuestCount     int
	Status         Status
	TotalPrice     money.Money
	PaidAmount     money.Money
	Customizations []Customization
	Policy         settlement.Policy
	DisputeWindow  time.Duration
	Cancellation   *Cancellation
	DisputeReason  string
	DisputedAt     *time.Time
	Resolution     *Resolution
	CompletedAt    *time.Time
	SlotReleased   bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int64
	events.EventRecorder
}

// Repository persists bookings. Save is conditioned on Version: it fails with
// ErrStorageConflict when the stored version differs and bumps Version on success.
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, b *Booking) error
	ListByClient(ctx context.Context, clientID string) ([]*Booking, error)
	ListBySupplier(ctx context.Context, supplierID string) ([]*Booking, error)
}

type CreateParams struct {
	ID             BookingID
	ClientID       string
	SupplierID     string
	PackageID      string
	EventName      string
	EventLocation  string
	EventDate      calendar.Date
	EventTime      string
	GuestCount     int
	TotalPrice     money.Money
	Customizations []Customization
	Policy         settlement.Policy
	DisputeWindow  time.Duration
	Now            Moment
}

// Validate checks a creation request against the rules shared by every
// storage backend.
func (p CreateParams) Validate() error {
	var problems []string
	if strings.TrimSpace(string(p.ID)) == "" {
		problems = append(problems, "booking id is required")
	}
	if strings.TrimSpace(p.ClientID) == "" {
		problems = append(problems, "client id is required")
	}
	if strings.TrimSpace(p.SupplierID) == "" {
		problems = append(problems, "supplier id is required")
	}
	if strings.TrimSpace(p.EventName) == "" {
		problems = append(problems, "event name is required")
	}
	if strings.TrimSpace(p.EventLocation) == "" {
		problems = append(problems, "event location is required")
	}
	if p.EventDate.IsZero() {
		problems = append(problems, "event date is required")
	} else if !p.Now.Today.IsZero() && p.EventDate.Before(p.Now.Today) {
		problems = append(problems, "event date is in the past")
	}
	if p.GuestCount <= 0 {
		problems = append(problems, "guest count must be positive")
	}
	if p.TotalPrice.Amount < 0 || len(p.TotalPrice.Currency) != 3 {
		problems = append(problems, "total price is invalid")
	}
	if err := p.Policy.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// New builds a pending booking with nothing paid.
func New(params CreateParams) (*Booking, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	now := params.Now.At.UTC()
	customizations := make([]Customization, len(params.Customizations))
	copy(customizations, params.Customizations)
	b := &Booking{
		ID:             params.ID,
		ClientID:       params.ClientID,
		SupplierID:     params.SupplierID,
		PackageID:      params.PackageID,
		EventName:      strings.TrimSpace(params.EventName),
		EventLocation:  strings.TrimSpace(params.EventLocation),
		EventDate:      params.EventDate,
		EventTime:      params.EventTime,
		GuestCount:     params.GuestCount,
		Status:         StatusPending,
		TotalPrice:     params.TotalPrice,
		PaidAmount:     money.Zero(params.TotalPrice.Currency),
		Customizations: customizations,
		Policy:         params.Policy.Clone(),
		DisputeWindow:  params.DisputeWindow,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	b.Record(BookingRequested{
		BookingID:  b.ID,
		ClientID:   b.ClientID,
		SupplierID: b.SupplierID,
		PackageID:  b.PackageID,
		EventDate:  b.EventDate.String(),
		TotalPrice: b.TotalPrice,
		At:         now,
	})
	return b, nil
}

// SlotKey identifies the availability slot this booking holds.
func (b *Booking) SlotKey() availability.SlotKey {
	return availability.SlotKey{SupplierID: b.SupplierID, Date: b.EventDate}
}

// Terminal reports whether no transition other than a dispute can leave the
// current status.
func (b *Booking) Terminal() bool {
	return IsTerminal(b.Status)
}

func IsTerminal(st Status) bool {
	switch st {
	case StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// NeedsSlotRelease reports whether the booking reached a status that frees
// its date and the release has not been recorded yet.
func (b *Booking) NeedsSlotRelease() bool {
	if b.SlotReleased {
		return false
	}
	switch b.Status {
	case StatusCancelled, StatusCompleted, StatusRefunded:
		return true
	}
	return false
}

// MarkSlotReleased records that the ledger released this booking's slot.
func (b *Booking) MarkSlotReleased(now time.Time) {
	b.SlotReleased = true
	b.UpdatedAt = now.UTC()
}

// Outstanding is the amount still to be paid.
func (b *Booking) Outstanding() money.Money {
	return money.Money{Amount: b.TotalPrice.Amount - b.PaidAmount.Amount, Currency: b.TotalPrice.Currency}
}

// RecordPayment raises PaidAmount. Only the booking's client pays, only while
// the booking is confirmed, and never beyond TotalPrice.
func (b *Booking) RecordPayment(actor Actor, amount money.Money, now Moment) error {
	if err := b.authorize(actor); err != nil {
		return err
	}
	if actor.Role != RoleClient {
		return fmt.Errorf("%w: only the client records payments", ErrPermissionDenied)
	}
	if b.Status != StatusConfirmed {
		return fmt.Errorf("%w: payments are accepted for confirmed bookings, booking is %s", ErrInvalidTransition, b.Status)
	}
	if amount.Amount <= 0 {
		return fmt.Errorf("%w: payment amount must be positive", ErrValidation)
	}
	if amount.Currency != b.TotalPrice.Currency {
		return fmt.Errorf("%w: %w", ErrValidation, money.ErrCurrencyMismatch)
	}
	if outstanding := b.Outstanding(); amount.Amount > outstanding.Amount {
		return fmt.Errorf("%w: payment of %s exceeds outstanding %s", ErrValidation, amount, outstanding)
	}
	paid, err := b.PaidAmount.Add(amount)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	b.PaidAmount = paid
	b.UpdatedAt = now.At.UTC()
	b.Record(PaymentRecorded{BookingID: b.ID, Amount: amount, PaidAmount: paid, At: b.UpdatedAt})
	return nil
}

// Clone returns a deep copy without pending events.
func (b *Booking) Clone() *Booking {
	out := *b
	out.EventRecorder = events.EventRecorder{}
	out.Customizations = append([]Customization(nil), b.Customizations...)
	out.Policy = b.Policy.Clone()
	if b.Cancellation != nil {
		c := *b.Cancellation
		out.Cancellation = &c
	}
	if b.Resolution != nil {
		r := *b.Resolution
		out.Resolution = &r
	}
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		out.CompletedAt = &t
	}
	if b.DisputedAt != nil {
		t := *b.DisputedAt
		out.DisputedAt = &t
	}
	return &out
}

// VisibleTo reports whether actor is a party to the booking or an operator.
func (b *Booking) VisibleTo(actor Actor) bool {
	return b.authorize(actor) == nil
}

func (b *Booking) authorize(actor Actor) error {
	switch actor.Role {
	case RoleClient:
		if actor.ID == "" || actor.ID != b.ClientID {
			return fmt.Errorf("%w: booking belongs to another client", ErrPermissionDenied)
		}
	case RoleSupplier:
		if actor.ID == "" || actor.ID != b.SupplierID {
			return fmt.Errorf("%w: booking belongs to another supplier", ErrPermissionDenied)
		}
	case RoleOperator:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrPermissionDenied, actor.Role)
	}
	return nil
}
