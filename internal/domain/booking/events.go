package booking

import (
	"time"

	"eventbook/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID  BookingID   `json:"booking_id"`
	ClientID   string      `json:"client_id"`
	SupplierID string      `json:"supplier_id"`
	PackageID  string      `json:"package_id"`
	EventDate  string      `json:"event_date"`
	TotalPrice money.Money `json:"total_price"`
	At         time.Time   `json:"at"`
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID  BookingID `json:"booking_id"`
	SupplierID string    `json:"supplier_id"`
	EventDate  string    `json:"event_date"`
	At         time.Time `json:"at"`
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingStarted struct {
	BookingID BookingID `json:"booking_id"`
	At        time.Time `json:"at"`
}

func (e BookingStarted) EventName() string     { return "booking.started" }
func (e BookingStarted) AggregateID() string   { return string(e.BookingID) }
func (e BookingStarted) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID BookingID `json:"booking_id"`
	At        time.Time `json:"at"`
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }

// BookingCancelled carries the committed settlement; the archiver stores it
// as the cancellation receipt.
type BookingCancelled struct {
	BookingID      BookingID   `json:"booking_id"`
	SupplierID     string      `json:"supplier_id"`
	EventDate      string      `json:"event_date"`
	CancelledBy    string      `json:"cancelled_by"`
	CancelledRole  Role        `json:"cancelled_role"`
	Rejected       bool        `json:"rejected"`
	Reason         string      `json:"reason,omitempty"`
	PaidAmount     money.Money `json:"paid_amount"`
	RefundAmount   money.Money `json:"refund_amount"`
	PlatformFee    money.Money `json:"platform_fee"`
	SupplierPayout money.Money `json:"supplier_payout"`
	Message        string      `json:"message"`
	At             time.Time   `json:"at"`
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingDisputed struct {
	BookingID BookingID `json:"booking_id"`
	ClientID  string    `json:"client_id"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

func (e BookingDisputed) EventName() string     { return "booking.disputed" }
func (e BookingDisputed) AggregateID() string   { return string(e.BookingID) }
func (e BookingDisputed) OccurredAt() time.Time { return e.At }

type BookingRefunded struct {
	BookingID  BookingID   `json:"booking_id"`
	OperatorID string      `json:"operator_id"`
	Amount     money.Money `json:"amount"`
	Note       string      `json:"note,omitempty"`
	At         time.Time   `json:"at"`
}

func (e BookingRefunded) EventName() string     { return "booking.refunded" }
func (e BookingRefunded) AggregateID() string   { return string(e.BookingID) }
func (e BookingRefunded) OccurredAt() time.Time { return e.At }

type PaymentRecorded struct {
	BookingID  BookingID   `json:"booking_id"`
	Amount     money.Money `json:"amount"`
	PaidAmount money.Money `json:"paid_amount"`
	At         time.Time   `json:"at"`
}

func (e PaymentRecorded) EventName() string     { return "booking.payment_recorded" }
func (e PaymentRecorded) AggregateID() string   { return string(e.BookingID) }
func (e PaymentRecorded) OccurredAt() time.Time { return e.At }
