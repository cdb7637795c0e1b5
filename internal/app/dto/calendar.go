package dto

import (
	"eventbook/internal/domain/availability"
	"eventbook/internal/domain/shared/calendar"
)

type Slot struct {
	SupplierID  string `json:"supplier_id"`
	Date        string `json:"date"`
	State       string `json:"state"`
	Capacity    int    `json:"capacity"`
	BookedCount int    `json:"booked_count"`
	Remaining   int    `json:"remaining"`
	Blocked     bool   `json:"blocked"`
}

func MapSlot(s availability.Slot) Slot {
	return Slot{
		SupplierID:  s.Key.SupplierID,
		Date:        s.Key.Date.String(),
		State:       string(s.State()),
		Capacity:    s.Capacity,
		BookedCount: s.BookedCount,
		Remaining:   s.Remaining(),
		Blocked:     s.Blocked,
	}
}

type BlockedDates struct {
	SupplierID string   `json:"supplier_id"`
	From       string   `json:"from"`
	To         string   `json:"to"`
	Dates      []string `json:"dates"`
}

func MapBlockedDates(supplierID string, from, to calendar.Date, dates []calendar.Date) BlockedDates {
	out := BlockedDates{SupplierID: supplierID, From: from.String(), To: to.String(), Dates: make([]string, 0, len(dates))}
	for _, d := range dates {
		out.Dates = append(out.Dates, d.String())
	}
	return out
}
