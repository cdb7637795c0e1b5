package availability

import (
	"context"
	"errors"
	"fmt"

	"eventbook/internal/app/commands"
	"eventbook/internal/app/dto"
	"eventbook/internal/app/queries"
	"eventbook/internal/app/services/auth"
	domainavailability "eventbook/internal/domain/availability"
	domainbooking "eventbook/internal/domain/booking"
	"eventbook/internal/domain/shared/calendar"
)

const (
	getSlotKey          = "availability.slot.get"
	listBlockedDatesKey = "availability.blocked.list"
	setBlockedKey       = "availability.slot.block"
	setCapacityKey      = "availability.slot.capacity"
)

var calendarManagers = []domainbooking.Role{domainbooking.RoleSupplier, domainbooking.RoleOperator}

// Ledger is the availability ledger as seen by the handlers.
type Ledger interface {
	GetSlot(ctx context.Context, key domainavailability.SlotKey) (domainavailability.Slot, error)
	ListBlockedDates(ctx context.Context, supplierID string, from, to calendar.Date) ([]calendar.Date, error)
	SetBlocked(ctx context.Context, actor domainbooking.Actor, key domainavailability.SlotKey, blocked bool) (domainavailability.Slot, error)
	SetCapacity(ctx context.Context, actor domainbooking.Actor, key domainavailability.SlotKey, capacity int) (domainavailability.Slot, error)
}

var ErrLedgerRequired = errors.New("availability: ledger required")

type GetSlotQuery struct {
	SupplierID string `validate:"required"`
	Date       string `validate:"required,datetime=2006-01-02"`
}

func (q GetSlotQuery) Key() string { return getSlotKey }

type ListBlockedDatesQuery struct {
	SupplierID string `validate:"required"`
	From       string `validate:"required,datetime=2006-01-02"`
	To         string `validate:"omitempty,datetime=2006-01-02"`
}

// DefaultBlockedWindowDays is added to From when a blocked-dates query has no To.
const DefaultBlockedWindowDays = 30

func (q ListBlockedDatesQuery) Key() string { return listBlockedDatesKey }

type SetBlockedCommand struct {
	SupplierID string `validate:"required"`
	Date       string `validate:"required,datetime=2006-01-02"`
	Blocked    bool
}

func (c SetBlockedCommand) Key() string { return setBlockedKey }

func (c SetBlockedCommand) AllowedRoles() []domainbooking.Role { return calendarManagers }

type SetCapacityCommand struct {
	SupplierID string `validate:"required"`
	Date       string `validate:"required,datetime=2006-01-02"`
	Capacity   int    `validate:"min=1"`
}

func (c SetCapacityCommand) Key() string { return setCapacityKey }

func (c SetCapacityCommand) AllowedRoles() []domainbooking.Role { return calendarManagers }

type Handler struct {
	Ledger Ledger
}

func (h *Handler) GetSlot(ctx context.Context, q GetSlotQuery) (dto.Slot, error) {
	if h.Ledger == nil {
		return dto.Slot{}, ErrLedgerRequired
	}
	key, err := slotKey(q.SupplierID, q.Date)
	if err != nil {
		return dto.Slot{}, err
	}
	slot, err := h.Ledger.GetSlot(ctx, key)
	if err != nil {
		return dto.Slot{}, err
	}
	return dto.MapSlot(slot), nil
}

func (h *Handler) ListBlockedDates(ctx context.Context, q ListBlockedDatesQuery) (dto.BlockedDates, error) {
	if h.Ledger == nil {
		return dto.BlockedDates{}, ErrLedgerRequired
	}
	from, err := parseDate("from", q.From)
	if err != nil {
		return dto.BlockedDates{}, err
	}
	to := from.AddDays(DefaultBlockedWindowDays)
	if q.To != "" {
		if to, err = parseDate("to", q.To); err != nil {
			return dto.BlockedDates{}, err
		}
	}
	dates, err := h.Ledger.ListBlockedDates(ctx, q.SupplierID, from, to)
	if err != nil {
		return dto.BlockedDates{}, err
	}
	return dto.MapBlockedDates(q.SupplierID, from, to, dates), nil
}

func (h *Handler) SetBlocked(ctx context.Context, cmd SetBlockedCommand) (*dto.Slot, error) {
	actor, key, err := h.manage(ctx, cmd.SupplierID, cmd.Date)
	if err != nil {
		return nil, err
	}
	slot, err := h.Ledger.SetBlocked(ctx, actor, key, cmd.Blocked)
	if err != nil {
		return nil, err
	}
	out := dto.MapSlot(slot)
	return &out, nil
}

func (h *Handler) SetCapacity(ctx context.Context, cmd SetCapacityCommand) (*dto.Slot, error) {
	actor, key, err := h.manage(ctx, cmd.SupplierID, cmd.Date)
	if err != nil {
		return nil, err
	}
	slot, err := h.Ledger.SetCapacity(ctx, actor, key, cmd.Capacity)
	if err != nil {
		if errors.Is(err, domainavailability.ErrInvalidCapacity) || errors.Is(err, domainavailability.ErrCapacityBelowBooked) {
			return nil, fmt.Errorf("%w: %w", domainbooking.ErrValidation, err)
		}
		return nil, err
	}
	out := dto.MapSlot(slot)
	return &out, nil
}

func (h *Handler) manage(ctx context.Context, supplierID, rawDate string) (domainbooking.Actor, domainavailability.SlotKey, error) {
	if h.Ledger == nil {
		return domainbooking.Actor{}, domainavailability.SlotKey{}, ErrLedgerRequired
	}
	actor, ok := auth.ActorFrom(ctx)
	if !ok {
		return domainbooking.Actor{}, domainavailability.SlotKey{}, auth.ErrUnauthorized
	}
	key, err := slotKey(supplierID, rawDate)
	if err != nil {
		return domainbooking.Actor{}, domainavailability.SlotKey{}, err
	}
	return actor, key, nil
}

// Register attaches the calendar commands and queries.
func (h *Handler) Register(cmds *commands.InMemoryBus, qs *queries.InMemoryBus) {
	queries.RegisterHandler[GetSlotQuery, dto.Slot](qs, getSlotKey, queries.HandlerFunc[GetSlotQuery, dto.Slot](h.GetSlot))
	queries.RegisterHandler[ListBlockedDatesQuery, dto.BlockedDates](qs, listBlockedDatesKey, queries.HandlerFunc[ListBlockedDatesQuery, dto.BlockedDates](h.ListBlockedDates))
	commands.RegisterHandler[SetBlockedCommand, *dto.Slot](cmds, setBlockedKey, commands.HandlerFunc[SetBlockedCommand, *dto.Slot](h.SetBlocked))
	commands.RegisterHandler[SetCapacityCommand, *dto.Slot](cmds, setCapacityKey, commands.HandlerFunc[SetCapacityCommand, *dto.Slot](h.SetCapacity))
}

func slotKey(supplierID, rawDate string) (domainavailability.SlotKey, error) {
	date, err := parseDate("date", rawDate)
	if err != nil {
		return domainavailability.SlotKey{}, err
	}
	key, err := domainavailability.NewSlotKey(supplierID, date)
	if err != nil {
		return domainavailability.SlotKey{}, fmt.Errorf("%w: %w", domainbooking.ErrValidation, err)
	}
	return key, nil
}

func parseDate(field, raw string) (calendar.Date, error) {
	d, err := calendar.Parse(raw)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", domainbooking.ErrValidation, field)
	}
	return d, nil
}
