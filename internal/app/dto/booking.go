package dto

import (
	"time"

	domainbooking "eventbook/internal/domain/booking"
	"eventbook/internal/domain/settlement"
	"eventbook/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   value.Amount,
		Currency: value.Currency,
	}
}

type Customization struct {
	Name  string   `json:"name"`
	Price MoneyDTO `json:"price"`
}

// Settlement is a CancellationResult as shown to clients.
type Settlement struct {
	PaidAmount     MoneyDTO `json:"paid_amount"`
	RefundAmount   MoneyDTO `json:"refund_amount"`
	PlatformFee    MoneyDTO `json:"platform_fee"`
	SupplierPayout MoneyDTO `json:"supplier_payout"`
	Forfeited      MoneyDTO `json:"forfeited"`
	RefundPercent  string   `json:"refund_percent"`
	FeePercent     string   `json:"fee_percent"`
	DaysToEvent    int      `json:"days_to_event"`
	Message        string   `json:"message"`
}

func MapSettlement(paid money.Money, res settlement.Result) Settlement {
	return Settlement{
		PaidAmount:     MapMoney(paid),
		RefundAmount:   MapMoney(res.RefundAmount),
		PlatformFee:    MapMoney(res.PlatformFee),
		SupplierPayout: MapMoney(res.SupplierPayout),
		Forfeited:      MapMoney(res.Forfeited),
		RefundPercent:  res.RefundRate.Percent(),
		FeePercent:     res.FeeRate.Percent(),
		DaysToEvent:    res.DaysToEvent,
		Message:        res.Message,
	}
}

type CancellationRecord struct {
	CancelledBy string     `json:"cancelled_by"`
	Role        string     `json:"role"`
	Rejected    bool       `json:"rejected"`
	Reason      string     `json:"reason,omitempty"`
	Settlement  Settlement `json:"settlement"`
	At          time.Time  `json:"at"`
}

type Booking struct {
	ID             string               `json:"id"`
	ClientID       string               `json:"client_id"`
	SupplierID     string               `json:"supplier_id"`
	PackageID      string               `json:"package_id"`
	EventName      string               `json:"event_name"`
	EventLocation  string               `json:"event_location"`
	EventDate      string               `json:"event_date"`
	EventTime      string               `json:"event_time,omitempty"`
	GuestCount     int                  `json:"guest_count"`
	Status         string               `json:"status"`
	TotalPrice     MoneyDTO             `json:"total_price"`
	PaidAmount     MoneyDTO             `json:"paid_amount"`
	Customizations []Customization      `json:"customizations"`
	Cancellation   *CancellationRecord  `json:"cancellation,omitempty"`
	DisputeReason  string               `json:"dispute_reason,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	Flags          *domainbooking.Flags `json:"flags,omitempty"`
}

type BookingCollection struct {
	Items []Booking `json:"items"`
}

// MapBooking renders b; flags are attached only when the caller projected them.
func MapBooking(b *domainbooking.Booking, flags *domainbooking.Flags) Booking {
	out := Booking{
		ID:             string(b.ID),
		ClientID:       b.ClientID,
		SupplierID:     b.SupplierID,
		PackageID:      b.PackageID,
		EventName:      b.EventName,
		EventLocation:  b.EventLocation,
		EventDate:      b.EventDate.String(),
		EventTime:      b.EventTime,
		GuestCount:     b.GuestCount,
		Status:         string(b.Status),
		TotalPrice:     MapMoney(b.TotalPrice),
		PaidAmount:     MapMoney(b.PaidAmount),
		Customizations: make([]Customization, 0, len(b.Customizations)),
		DisputeReason:  b.DisputeReason,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
		Flags:          flags,
	}
	for _, c := range b.Customizations {
		out.Customizations = append(out.Customizations, Customization{Name: c.Name, Price: MapMoney(c.Price)})
	}
	if c := b.Cancellation; c != nil {
		out.Cancellation = &CancellationRecord{
			CancelledBy: c.ByID,
			Role:        string(c.ByRole),
			Rejected:    c.Rejected,
			Reason:      c.Reason,
			Settlement:  MapSettlement(b.PaidAmount, c.Result),
			At:          c.At,
		}
	}
	return out
}
