package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eventbook/internal/domain/availability"
	"eventbook/internal/domain/shared/calendar"
)

const slotCollection = "agg_slot"

// SlotRepository keeps one document per supplier and day. Every mutation is
// a single conditional findAndModify on that document.
type SlotRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewSlotRepository(db *mongo.Database) *SlotRepository {
	return &SlotRepository{col: db.Collection(slotCollection), now: time.Now}
}

func (r *SlotRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "supplier_id", Value: 1}, {Key: "blocked", Value: 1}, {Key: "date", Value: 1}},
	})
	return err
}

type slotDocument struct {
	ID          string    `bson:"_id"`
	SupplierID  string    `bson:"supplier_id"`
	Date        string    `bson:"date"`
	Capacity    int       `bson:"capacity"`
	BookedCount int       `bson:"booked_count"`
	Blocked     bool      `bson:"blocked"`
	Holders     []string  `bson:"holders"`
	Version     int64     `bson:"version"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d slotDocument) toSlot() (availability.Slot, error) {
	date, err := calendar.Parse(d.Date)
	if err != nil {
		return availability.Slot{}, err
	}
	holders := d.Holders
	if holders == nil {
		holders = []string{}
	}
	return availability.Slot{
		Key:         availability.SlotKey{SupplierID: d.SupplierID, Date: date},
		Capacity:    d.Capacity,
		BookedCount: d.BookedCount,
		Blocked:     d.Blocked,
		Holders:     holders,
		Version:     d.Version,
		UpdatedAt:   d.UpdatedAt.UTC(),
	}, nil
}

func slotID(key availability.SlotKey) string {
	return key.String()
}

func (r *SlotRepository) Slot(ctx context.Context, key availability.SlotKey, defaultCapacity int) (availability.Slot, error) {
	var doc slotDocument
	err := r.col.FindOne(ctx, bson.M{"_id": slotID(key)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return availability.NewSlot(key, defaultCapacity), nil
	}
	if err != nil {
		return availability.Slot{}, err
	}
	return doc.toSlot()
}

func (r *SlotRepository) Reserve(ctx context.Context, key availability.SlotKey, ref string, defaultCapacity int) (availability.Slot, error) {
	if err := r.ensure(ctx, key, defaultCapacity); err != nil {
		return availability.Slot{}, err
	}
	filter := bson.M{
		"_id":     slotID(key),
		"blocked": false,
		"holders": bson.M{"$ne": ref},
		"$expr":   bson.M{"$lt": bson.A{"$booked_count", "$capacity"}},
	}
	update := bson.M{
		"$inc":  bson.M{"booked_count": 1, "version": 1},
		"$push": bson.M{"holders": ref},
		"$set":  bson.M{"updated_at": r.now().UTC()},
	}
	slot, err := r.findAndModify(ctx, filter, update, false)
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return availability.Slot{}, err
	}
	current, err := r.Slot(ctx, key, defaultCapacity)
	if err != nil {
		return availability.Slot{}, err
	}
	if current.HeldBy(ref) {
		return current, nil
	}
	return availability.Slot{}, availability.ErrSlotUnavailable
}

func (r *SlotRepository) Release(ctx context.Context, key availability.SlotKey, ref string) (availability.Slot, bool, error) {
	filter := bson.M{"_id": slotID(key), "holders": ref}
	update := bson.M{
		"$inc":  bson.M{"booked_count": -1, "version": 1},
		"$pull": bson.M{"holders": ref},
		"$set":  bson.M{"updated_at": r.now().UTC()},
	}
	slot, err := r.findAndModify(ctx, filter, update, false)
	if err == nil {
		return slot, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return availability.Slot{}, false, err
	}
	current, err := r.Slot(ctx, key, availability.DefaultCapacity)
	return current, false, err
}

func (r *SlotRepository) SetBlocked(ctx context.Context, key availability.SlotKey, blocked bool, defaultCapacity int) (availability.Slot, error) {
	filter := bson.M{"_id": slotID(key)}
	update := bson.M{
		"$set":         bson.M{"blocked": blocked, "updated_at": r.now().UTC()},
		"$inc":         bson.M{"version": 1},
		"$setOnInsert": insertFields(key, defaultCapacity, false),
	}
	return r.findAndModify(ctx, filter, update, true)
}

func (r *SlotRepository) SetCapacity(ctx context.Context, key availability.SlotKey, capacity int) (availability.Slot, error) {
	if capacity < 1 {
		return availability.Slot{}, availability.ErrInvalidCapacity
	}
	if err := r.ensure(ctx, key, capacity); err != nil {
		return availability.Slot{}, err
	}
	filter := bson.M{"_id": slotID(key), "booked_count": bson.M{"$lte": capacity}}
	update := bson.M{
		"$set": bson.M{"capacity": capacity, "updated_at": r.now().UTC()},
		"$inc": bson.M{"version": 1},
	}
	slot, err := r.findAndModify(ctx, filter, update, false)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return availability.Slot{}, availability.ErrCapacityBelowBooked
	}
	return slot, err
}

func (r *SlotRepository) BlockedDates(ctx context.Context, supplierID string, rng calendar.Range) ([]calendar.Date, error) {
	filter := bson.M{
		"supplier_id": supplierID,
		"blocked":     true,
		"date":        bson.M{"$gte": rng.From.String(), "$lte": rng.To.String()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}}).SetProjection(bson.M{"date": 1})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]calendar.Date, 0)
	for cur.Next(ctx) {
		var doc struct {
			Date string `bson:"date"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		d, err := calendar.Parse(doc.Date)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, cur.Err()
}

// ensure creates the slot document if it does not exist yet.
func (r *SlotRepository) ensure(ctx context.Context, key availability.SlotKey, capacity int) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": slotID(key)},
		bson.M{"$setOnInsert": insertFields(key, capacity, true)},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return err
	}
	return nil
}

func insertFields(key availability.SlotKey, capacity int, withBlocked bool) bson.M {
	if capacity < 1 {
		capacity = availability.DefaultCapacity
	}
	fields := bson.M{
		"supplier_id":  key.SupplierID,
		"date":         key.Date.String(),
		"capacity":     capacity,
		"booked_count": 0,
		"holders":      bson.A{},
	}
	if withBlocked {
		fields["blocked"] = false
		fields["version"] = int64(0)
	}
	return fields
}

func (r *SlotRepository) findAndModify(ctx context.Context, filter, update bson.M, upsert bool) (availability.Slot, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After).SetUpsert(upsert)
	var doc slotDocument
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return availability.Slot{}, err
	}
	return doc.toSlot()
}

var _ availability.Repository = (*SlotRepository)(nil)
