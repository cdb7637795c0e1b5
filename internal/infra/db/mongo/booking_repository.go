package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "eventbook/internal/domain/booking"
	"eventbook/internal/domain/settlement"
	"eventbook/internal/domain/shared/calendar"
	"eventbook/internal/domain/shared/money"
)

const bookingCollection = "agg_booking"

// BookingRepository stores bookings with a version field; Save only matches
// the version the caller read.
type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingCollection)}
}

func (r *BookingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "event_date", Value: 1}}},
		{Keys: bson.D{{Key: "supplier_id", Value: 1}, {Key: "event_date", Value: 1}}},
	})
	return err
}

func (r *BookingRepository) Create(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	doc.Version = 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrBookingExists
		}
		return err
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainbooking.ErrStorageConflict
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByClient(ctx context.Context, clientID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"client_id": clientID})
}

func (r *BookingRepository) ListBySupplier(ctx context.Context, supplierID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"supplier_id": supplierID})
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "event_date", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainbooking.Booking, 0)
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		b, err := doc.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, cur.Err()
}

type customizationDocument struct {
	Name  string      `bson:"name"`
	Price money.Money `bson:"price"`
}

type settlementDocument struct {
	Refund      money.Money `bson:"refund"`
	Fee         money.Money `bson:"fee"`
	Payout      money.Money `bson:"payout"`
	Forfeited   money.Money `bson:"forfeited"`
	RefundRate  int64       `bson:"refund_bps"`
	FeeRate     int64       `bson:"fee_bps"`
	DaysToEvent int         `bson:"days_to_event"`
	TierDays    int         `bson:"tier_days"`
	TierMatched bool        `bson:"tier_matched"`
	Message     string      `bson:"message"`
}

type cancellationDocument struct {
	ByID     string             `bson:"by_id"`
	ByRole   string             `bson:"by_role"`
	Reason   string             `bson:"reason"`
	Rejected bool               `bson:"rejected"`
	Result   settlementDocument `bson:"result"`
	At       time.Time          `bson:"at"`
}

type resolutionDocument struct {
	ByID     string      `bson:"by_id"`
	Refunded money.Money `bson:"refunded"`
	Note     string      `bson:"note"`
	At       time.Time   `bson:"at"`
}

type bookingDocument struct {
	ID             string                  `bson:"_id"`
	ClientID       string                  `bson:"client_id"`
	SupplierID     string                  `bson:"supplier_id"`
	PackageID      string                  `bson:"package_id"`
	EventName      string                  `bson:"event_name"`
	EventLocation  string                  `bson:"event_location"`
	EventDate      string                  `bson:"event_date"`
	EventTime      string                  `bson:"event_time"`
	GuestCount     int                     `bson:"guest_count"`
	Status         string                  `bson:"status"`
	TotalPrice     money.Money             `bson:"total_price"`
	PaidAmount     money.Money             `bson:"paid_amount"`
	Customizations []customizationDocument `bson:"customizations"`
	Policy         settlement.Policy       `bson:"policy"`
	DisputeWindow  int64                   `bson:"dispute_window_ms"`
	Cancellation   *cancellationDocument   `bson:"cancellation,omitempty"`
	DisputeReason  string                  `bson:"dispute_reason,omitempty"`
	DisputedAt     *time.Time              `bson:"disputed_at,omitempty"`
	Resolution     *resolutionDocument     `bson:"resolution,omitempty"`
	CompletedAt    *time.Time              `bson:"completed_at,omitempty"`
	SlotReleased   bool                    `bson:"slot_released"`
	CreatedAt      time.Time               `bson:"created_at"`
	UpdatedAt      time.Time               `bson:"updated_at"`
	Version        int64                   `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	doc := bookingDocument{
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
		TotalPrice:     b.TotalPrice,
		PaidAmount:     b.PaidAmount,
		Customizations: make([]customizationDocument, 0, len(b.Customizations)),
		Policy:         b.Policy,
		DisputeWindow:  b.DisputeWindow.Milliseconds(),
		DisputeReason:  b.DisputeReason,
		DisputedAt:     b.DisputedAt,
		CompletedAt:    b.CompletedAt,
		SlotReleased:   b.SlotReleased,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
		Version:        b.Version,
	}
	for _, c := range b.Customizations {
		doc.Customizations = append(doc.Customizations, customizationDocument{Name: c.Name, Price: c.Price})
	}
	if c := b.Cancellation; c != nil {
		doc.Cancellation = &cancellationDocument{
			ByID:     c.ByID,
			ByRole:   string(c.ByRole),
			Reason:   c.Reason,
			Rejected: c.Rejected,
			Result: settlementDocument{
				Refund:      c.Result.RefundAmount,
				Fee:         c.Result.PlatformFee,
				Payout:      c.Result.SupplierPayout,
				Forfeited:   c.Result.Forfeited,
				RefundRate:  int64(c.Result.RefundRate),
				FeeRate:     int64(c.Result.FeeRate),
				DaysToEvent: c.Result.DaysToEvent,
				TierDays:    c.Result.TierDays,
				TierMatched: c.Result.TierMatched,
				Message:     c.Result.Message,
			},
			At: c.At,
		}
	}
	if r := b.Resolution; r != nil {
		doc.Resolution = &resolutionDocument{ByID: r.ByID, Refunded: r.Refunded, Note: r.Note, At: r.At}
	}
	return doc
}

func (d bookingDocument) toAggregate() (*domainbooking.Booking, error) {
	date, err := calendar.Parse(d.EventDate)
	if err != nil {
		return nil, err
	}
	b := &domainbooking.Booking{
		ID:             domainbooking.BookingID(d.ID),
		ClientID:       d.ClientID,
		SupplierID:     d.SupplierID,
		PackageID:      d.PackageID,
		EventName:      d.EventName,
		EventLocation:  d.EventLocation,
		EventDate:      date,
		EventTime:      d.EventTime,
		GuestCount:     d.GuestCount,
		Status:         domainbooking.Status(d.Status),
		TotalPrice:     d.TotalPrice,
		PaidAmount:     d.PaidAmount,
		Customizations: make([]domainbooking.Customization, 0, len(d.Customizations)),
		Policy:         d.Policy,
		DisputeWindow:  time.Duration(d.DisputeWindow) * time.Millisecond,
		DisputeReason:  d.DisputeReason,
		DisputedAt:     utcPtr(d.DisputedAt),
		CompletedAt:    utcPtr(d.CompletedAt),
		SlotReleased:   d.SlotReleased,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
		Version:        d.Version,
	}
	for _, c := range d.Customizations {
		b.Customizations = append(b.Customizations, domainbooking.Customization{Name: c.Name, Price: c.Price})
	}
	if c := d.Cancellation; c != nil {
		b.Cancellation = &domainbooking.Cancellation{
			ByID:     c.ByID,
			ByRole:   domainbooking.Role(c.ByRole),
			Reason:   c.Reason,
			Rejected: c.Rejected,
			Result: settlement.Result{
				RefundAmount:   c.Result.Refund,
				PlatformFee:    c.Result.Fee,
				SupplierPayout: c.Result.Payout,
				Forfeited:      c.Result.Forfeited,
				RefundRate:     money.Rate(c.Result.RefundRate),
				FeeRate:        money.Rate(c.Result.FeeRate),
				DaysToEvent:    c.Result.DaysToEvent,
				TierDays:       c.Result.TierDays,
				TierMatched:    c.Result.TierMatched,
				Message:        c.Result.Message,
			},
			At: c.At.UTC(),
		}
	}
	if r := d.Resolution; r != nil {
		b.Resolution = &domainbooking.Resolution{ByID: r.ByID, Refunded: r.Refunded, Note: r.Note, At: r.At.UTC()}
	}
	return b, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
