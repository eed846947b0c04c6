package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "flightbook/internal/bookings/errors"
	"flightbook/pkg/config"
	mongotx "flightbook/pkg/db/mongo"
	"flightbook/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

// Transition describes a compare-and-set on a booking's status. The update
// applies only while the booking is in one of From and the hold guards hold.
type Transition struct {
	To     string
	From   []string
	At     time.Time
	Reason string
	// HoldLiveAt requires hold_expires_at > HoldLiveAt.
	HoldLiveAt *time.Time
	// HoldLapsedAt requires hold_expires_at <= HoldLapsedAt.
	HoldLapsedAt *time.Time
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByReference(ctx context.Context, reference string) (*model.Booking, error)
	FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error)
	// Apply performs t. When the booking exists but does not match, it returns
	// the current booking together with ErrTransitionRejected.
	Apply(ctx context.Context, id string, t Transition) (*model.Booking, error)
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// Create inserts the booking, drawing a fresh reference whenever the unique
// reference index rejects one.
func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	ts := time.Now().UTC().Truncate(time.Millisecond)
	booking.CreatedAt = ts
	booking.UpdatedAt = ts

	for attempt := 0; attempt < referenceAttempts; attempt++ {
		ref, err := newReference()
		if err != nil {
			return fmt.Errorf("failed to generate booking reference: %w", err)
		}
		booking.Reference = ref

		_, err = r.collection.InsertOne(ctx, booking)
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to create booking: %w", err)
		}
	}
	return bookingserrors.ErrReferenceExhausted
}

func (r *mongoBookingRepository) findOne(ctx context.Context, filter bson.M) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, filter).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoBookingRepository) FindByReference(ctx context.Context, reference string) (*model.Booking, error) {
	return r.findOne(ctx, bson.M{"reference": reference})
}

func (r *mongoBookingRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":          model.BookingPending,
		"hold_expires_at": bson.M{"$lte": now},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "hold_expires_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode expired bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) Apply(ctx context.Context, id string, t Transition) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	at := t.At.UTC().Truncate(time.Millisecond)

	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": t.From},
	}
	switch {
	case t.HoldLiveAt != nil:
		filter["hold_expires_at"] = bson.M{"$gt": *t.HoldLiveAt}
	case t.HoldLapsedAt != nil:
		filter["hold_expires_at"] = bson.M{"$lte": *t.HoldLapsedAt}
	}

	set := bson.M{"status": t.To, "updated_at": at}
	switch t.To {
	case model.BookingConfirmed:
		set["confirmed_at"] = at
	case model.BookingCancelled:
		set["cancelled_at"] = at
		if t.Reason != "" {
			set["cancel_reason"] = t.Reason
		}
	case model.BookingCompleted:
		set["completed_at"] = at
	}

	var booking model.Booking
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&booking)
	if err == nil {
		return &booking, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	current, findErr := r.FindByID(ctx, id)
	if findErr != nil {
		return nil, findErr
	}
	return current, bookingserrors.ErrTransitionRejected
}
