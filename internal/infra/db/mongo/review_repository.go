package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "eventbook/internal/domain/booking"
	"eventbook/internal/domain/reviews"
)

const reviewCollection = "agg_review"

type ReviewRepository struct {
	col *mongo.Collection
}

func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{col: db.Collection(reviewCollection)}
}

func (r *ReviewRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "booking_id", Value: 1}, {Key: "author_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "supplier_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

type reviewDocument struct {
	ID         string    `bson:"_id"`
	BookingID  string    `bson:"booking_id"`
	AuthorID   string    `bson:"author_id"`
	SupplierID string    `bson:"supplier_id"`
	Rating     int       `bson:"rating"`
	Text       string    `bson:"text"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (d reviewDocument) toReview() *reviews.Review {
	return &reviews.Review{
		ID:         reviews.ReviewID(d.ID),
		BookingID:  domainbooking.BookingID(d.BookingID),
		AuthorID:   d.AuthorID,
		SupplierID: d.SupplierID,
		Rating:     d.Rating,
		Text:       d.Text,
		CreatedAt:  d.CreatedAt.UTC(),
	}
}

func (r *ReviewRepository) ByBooking(ctx context.Context, bookingID domainbooking.BookingID, authorID string) (*reviews.Review, error) {
	var doc reviewDocument
	err := r.col.FindOne(ctx, bson.M{"booking_id": string(bookingID), "author_id": authorID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, reviews.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toReview(), nil
}

func (r *ReviewRepository) ListBySupplier(ctx context.Context, supplierID string, limit, offset int) ([]*reviews.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, bson.M{"supplier_id": supplierID}, opts)
	if err != nil {
		return nil, err
	}
	var docs []reviewDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*reviews.Review, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toReview())
	}
	return out, nil
}

func (r *ReviewRepository) Create(ctx context.Context, review *reviews.Review) error {
	doc := reviewDocument{
		ID:         string(review.ID),
		BookingID:  string(review.BookingID),
		AuthorID:   review.AuthorID,
		SupplierID: review.SupplierID,
		Rating:     review.Rating,
		Text:       review.Text,
		CreatedAt:  review.CreatedAt.UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return reviews.ErrAlreadyReviewed
		}
		return err
	}
	return nil
}

var _ reviews.Repository = (*ReviewRepository)(nil)
