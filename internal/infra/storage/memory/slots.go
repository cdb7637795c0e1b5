package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"eventbook/internal/domain/availability"
	"eventbook/internal/domain/shared/calendar"
)

type slotEntry struct {
	mu     sync.Mutex
	slot   availability.Slot
	stored bool
}

// SlotRepository locks per slot key; operations on different keys never
// contend.
type SlotRepository struct {
	entries sync.Map // availability.SlotKey -> *slotEntry
	now     func() time.Time
}

func NewSlotRepository() *SlotRepository {
	return &SlotRepository{now: time.Now}
}

func (r *SlotRepository) entry(key availability.SlotKey, capacity int) *slotEntry {
	if existing, ok := r.entries.Load(key); ok {
		return existing.(*slotEntry)
	}
	fresh := &slotEntry{slot: availability.NewSlot(key, capacity)}
	actual, _ := r.entries.LoadOrStore(key, fresh)
	return actual.(*slotEntry)
}

func (r *SlotRepository) Slot(ctx context.Context, key availability.SlotKey, defaultCapacity int) (availability.Slot, error) {
	value, ok := r.entries.Load(key)
	if !ok {
		return availability.NewSlot(key, defaultCapacity), nil
	}
	e := value.(*slotEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.stored {
		return availability.NewSlot(key, defaultCapacity), nil
	}
	return e.slot.Clone(), nil
}

func (r *SlotRepository) Reserve(ctx context.Context, key availability.SlotKey, ref string, defaultCapacity int) (availability.Slot, error) {
	return r.mutate(key, defaultCapacity, func(s *availability.Slot, now time.Time) error {
		return s.Reserve(ref, now)
	})
}

func (r *SlotRepository) Release(ctx context.Context, key availability.SlotKey, ref string) (availability.Slot, bool, error) {
	value, ok := r.entries.Load(key)
	if !ok {
		return availability.NewSlot(key, availability.DefaultCapacity), false, nil
	}
	e := value.(*slotEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	released := e.slot.Release(ref, r.now())
	if released {
		e.slot.Version++
	}
	return e.slot.Clone(), released, nil
}

func (r *SlotRepository) SetBlocked(ctx context.Context, key availability.SlotKey, blocked bool, defaultCapacity int) (availability.Slot, error) {
	return r.mutate(key, defaultCapacity, func(s *availability.Slot, now time.Time) error {
		s.SetBlocked(blocked, now)
		return nil
	})
}

func (r *SlotRepository) SetCapacity(ctx context.Context, key availability.SlotKey, capacity int) (availability.Slot, error) {
	return r.mutate(key, capacity, func(s *availability.Slot, now time.Time) error {
		return s.SetCapacity(capacity, now)
	})
}

func (r *SlotRepository) BlockedDates(ctx context.Context, supplierID string, span calendar.Range) ([]calendar.Date, error) {
	dates := make([]calendar.Date, 0)
	r.entries.Range(func(k, v any) bool {
		key := k.(availability.SlotKey)
		if key.SupplierID != supplierID || !span.Contains(key.Date) {
			return true
		}
		e := v.(*slotEntry)
		e.mu.Lock()
		blocked := e.stored && e.slot.Blocked
		e.mu.Unlock()
		if blocked {
			dates = append(dates, key.Date)
		}
		return true
	})
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// mutate applies fn under the key's lock and persists the result only when
// fn succeeds.
func (r *SlotRepository) mutate(key availability.SlotKey, capacity int, fn func(*availability.Slot, time.Time) error) (availability.Slot, error) {
	e := r.entry(key, capacity)
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.slot.Clone()
	if err := fn(&next, r.now()); err != nil {
		return availability.Slot{}, err
	}
	next.Version++
	e.slot = next
	e.stored = true
	return next.Clone(), nil
}

var _ availability.Repository = (*SlotRepository)(nil)
