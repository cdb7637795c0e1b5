// Package redis keeps the availability ledger in Redis. Each slot is a hash
// plus a set of holders and is only ever mutated by a Lua script, which makes
// every operation atomic per slot.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"eventbook/internal/domain/availability"
	"eventbook/internal/domain/shared/calendar"
)

const DefaultPrefix = "eventbook:"

var ErrMalformedReply = errors.New("redis ledger: malformed script reply")

type SlotRepository struct {
	client goredis.Scripter
	reader goredis.Cmdable
	prefix string
	now    func() time.Time
}

// NewSlotRepository works against a single Redis node; the blocked-dates set
// is touched in the same script as the slot keys.
func NewSlotRepository(client goredis.UniversalClient, prefix string) *SlotRepository {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SlotRepository{client: client, reader: client, prefix: prefix, now: time.Now}
}

func (r *SlotRepository) Slot(ctx context.Context, key availability.SlotKey, defaultCapacity int) (availability.Slot, error) {
	reply, err := slotScript.Run(ctx, r.client, r.keys(key)).Slice()
	if err != nil {
		return availability.Slot{}, err
	}
	_, slot, err := decodeSnapshot(key, reply)
	if err != nil {
		return availability.Slot{}, err
	}
	if slot.Capacity == 0 {
		return availability.NewSlot(key, defaultCapacity), nil
	}
	return slot, nil
}

func (r *SlotRepository) Reserve(ctx context.Context, key availability.SlotKey, ref string, defaultCapacity int) (availability.Slot, error) {
	reply, err := reserveScript.Run(ctx, r.client, r.keys(key), ref, capacityOrDefault(defaultCapacity), r.nowMillis()).Slice()
	if err != nil {
		return availability.Slot{}, err
	}
	ok, slot, err := decodeSnapshot(key, reply)
	if err != nil {
		return availability.Slot{}, err
	}
	if !ok {
		return availability.Slot{}, availability.ErrSlotUnavailable
	}
	return slot, nil
}

func (r *SlotRepository) Release(ctx context.Context, key availability.SlotKey, ref string) (availability.Slot, bool, error) {
	reply, err := releaseScript.Run(ctx, r.client, r.keys(key), ref, r.nowMillis()).Slice()
	if err != nil {
		return availability.Slot{}, false, err
	}
	released, slot, err := decodeSnapshot(key, reply)
	if err != nil {
		return availability.Slot{}, false, err
	}
	if slot.Capacity == 0 {
		slot = availability.NewSlot(key, availability.DefaultCapacity)
	}
	return slot, released, nil
}

func (r *SlotRepository) SetBlocked(ctx context.Context, key availability.SlotKey, blocked bool, defaultCapacity int) (availability.Slot, error) {
	flag := 0
	if blocked {
		flag = 1
	}
	reply, err := blockScript.Run(ctx, r.client, r.keys(key),
		flag, capacityOrDefault(defaultCapacity), r.nowMillis(), key.Date.String(), dayNumber(key.Date)).Slice()
	if err != nil {
		return availability.Slot{}, err
	}
	_, slot, err := decodeSnapshot(key, reply)
	return slot, err
}

func (r *SlotRepository) SetCapacity(ctx context.Context, key availability.SlotKey, capacity int) (availability.Slot, error) {
	if capacity < 1 {
		return availability.Slot{}, availability.ErrInvalidCapacity
	}
	reply, err := capacityScript.Run(ctx, r.client, r.keys(key), capacity, r.nowMillis()).Slice()
	if err != nil {
		return availability.Slot{}, err
	}
	ok, slot, err := decodeSnapshot(key, reply)
	if err != nil {
		return availability.Slot{}, err
	}
	if !ok {
		return availability.Slot{}, availability.ErrCapacityBelowBooked
	}
	return slot, nil
}

func (r *SlotRepository) BlockedDates(ctx context.Context, supplierID string, rng calendar.Range) ([]calendar.Date, error) {
	members, err := r.reader.ZRangeByScore(ctx, r.blockedKey(supplierID), &goredis.ZRangeBy{
		Min: strconv.FormatInt(dayNumber(rng.From), 10),
		Max: strconv.FormatInt(dayNumber(rng.To), 10),
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]calendar.Date, 0, len(members))
	for _, m := range members {
		d, err := calendar.Parse(m)
		if err != nil {
			return nil, fmt.Errorf("%w: blocked date %q", ErrMalformedReply, m)
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *SlotRepository) keys(key availability.SlotKey) []string {
	base := r.prefix + "slot:" + key.String()
	return []string{base, base + ":holders", r.blockedKey(key.SupplierID)}
}

func (r *SlotRepository) blockedKey(supplierID string) string {
	return r.prefix + "blocked:" + supplierID
}

func (r *SlotRepository) nowMillis() int64 {
	return r.now().UTC().UnixMilli()
}

func capacityOrDefault(c int) int {
	if c < 1 {
		return availability.DefaultCapacity
	}
	return c
}

// dayNumber orders dates in the blocked-dates set.
func dayNumber(d calendar.Date) int64 {
	return d.Time().Unix() / 86400
}

func decodeSnapshot(key availability.SlotKey, reply []any) (bool, availability.Slot, error) {
	if len(reply) < 6 {
		return false, availability.Slot{}, ErrMalformedReply
	}
	nums := make([]int64, 6)
	for i := 0; i < 6; i++ {
		n, ok := reply[i].(int64)
		if !ok {
			return false, availability.Slot{}, fmt.Errorf("%w: field %d is %T", ErrMalformedReply, i, reply[i])
		}
		nums[i] = n
	}
	holders := make([]string, 0, len(reply)-6)
	for _, h := range reply[6:] {
		s, ok := h.(string)
		if !ok {
			return false, availability.Slot{}, fmt.Errorf("%w: holder is %T", ErrMalformedReply, h)
		}
		holders = append(holders, s)
	}
	slot := availability.Slot{
		Key:         key,
		Capacity:    int(nums[1]),
		BookedCount: int(nums[2]),
		Blocked:     nums[3] == 1,
		Holders:     holders,
		Version:     nums[4],
	}
	if nums[5] > 0 {
		slot.UpdatedAt = time.UnixMilli(nums[5]).UTC()
	}
	return nums[0] == 1, slot, nil
}

var _ availability.Repository = (*SlotRepository)(nil)
