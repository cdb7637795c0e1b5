package availability

import (
	"time"
)

type SlotBlockChanged struct {
	SupplierID string    `json:"supplier_id"`
	Date       string    `json:"date"`
	Blocked    bool      `json:"blocked"`
	At         time.Time `json:"at"`
}

func (e SlotBlockChanged) EventName() string {
	if e.Blocked {
		return "slot.blocked"
	}
	return "slot.unblocked"
}
func (e SlotBlockChanged) AggregateID() string   { return e.SupplierID + "/" + e.Date }
func (e SlotBlockChanged) OccurredAt() time.Time { return e.At }

type SlotCapacityChanged struct {
	SupplierID string    `json:"supplier_id"`
	Date       string    `json:"date"`
	Capacity   int       `json:"capacity"`
	At         time.Time `json:"at"`
}

func (e SlotCapacityChanged) EventName() string     { return "slot.capacity_changed" }
func (e SlotCapacityChanged) AggregateID() string   { return e.SupplierID + "/" + e.Date }
func (e SlotCapacityChanged) OccurredAt() time.Time { return e.At }

// OverbookingPrevented is raised when a reservation loses the race for the
// last unit of capacity.
type OverbookingPrevented struct {
	SupplierID string    `json:"supplier_id"`
	Date       string    `json:"date"`
	BookingID  string    `json:"booking_id"`
	At         time.Time `json:"at"`
}

func (e OverbookingPrevented) EventName() string     { return "slot.overbooking_prevented" }
func (e OverbookingPrevented) AggregateID() string   { return e.SupplierID + "/" + e.Date }
func (e OverbookingPrevented) OccurredAt() time.Time { return e.At }

func BlockChangedEvent(key SlotKey, blocked bool, at time.Time) SlotBlockChanged {
	return SlotBlockChanged{SupplierID: key.SupplierID, Date: key.Date.String(), Blocked: blocked, At: at.UTC()}
}

func CapacityChangedEvent(key SlotKey, capacity int, at time.Time) SlotCapacityChanged {
	return SlotCapacityChanged{SupplierID: key.SupplierID, Date: key.Date.String(), Capacity: capacity, At: at.UTC()}
}

func OverbookingPreventedEvent(key SlotKey, bookingID string, at time.Time) OverbookingPrevented {
	return OverbookingPrevented{SupplierID: key.SupplierID, Date: key.Date.String(), BookingID: bookingID, At: at.UTC()}
}
