package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	paymentserrors "flightbook/internal/payments/errors"
	"flightbook/pkg/config"
	mongotx "flightbook/pkg/db/mongo"
	"flightbook/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Payments"
)

// Transition is a compare-and-set of a payment's status from From to To.
type Transition struct {
	To            string
	From          string
	At            time.Time
	TransactionID string
	FailureReason string
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	FindByID(ctx context.Context, id string) (*model.Payment, error)
	FindByBooking(ctx context.Context, bookingID string) ([]*model.Payment, error)
	// Apply performs t. When the payment exists but is not in t.From, it
	// returns the current payment together with ErrTransitionRejected.
	Apply(ctx context.Context, id string, t Transition) (*model.Payment, error)
}

type mongoPaymentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPaymentRepository(cfg *config.Config) PaymentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPaymentRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoPaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	ts := time.Now().UTC().Truncate(time.Millisecond)
	payment.CreatedAt = ts
	payment.UpdatedAt = ts

	if _, err := r.collection.InsertOne(ctx, payment); err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *mongoPaymentRepository) FindByID(ctx context.Context, id string) (*model.Payment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var payment model.Payment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&payment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, paymentserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	return &payment, nil
}

func (r *mongoPaymentRepository) FindByBooking(ctx context.Context, bookingID string) ([]*model.Payment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"booking_id": bookingID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find payments: %w", err)
	}
	defer cursor.Close(ctx)

	payments := []*model.Payment{}
	if err = cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("failed to decode payments: %w", err)
	}
	return payments, nil
}

// Apply relies on the partial unique index over paid payments to reject a
// second paid payment for the same booking.
func (r *mongoPaymentRepository) Apply(ctx context.Context, id string, t Transition) (*model.Payment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	at := t.At.UTC().Truncate(time.Millisecond)
	set := bson.M{"status": t.To, "updated_at": at}
	if t.TransactionID != "" {
		set["transaction_id"] = t.TransactionID
	}
	switch t.To {
	case model.PaymentPaid:
		set["paid_at"] = at
	case model.PaymentFailed:
		if t.FailureReason != "" {
			set["failure_reason"] = t.FailureReason
		}
	case model.PaymentRefunded:
		set["refunded_at"] = at
	}

	var payment model.Payment
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": t.From},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&payment)
	if err == nil {
		return &payment, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return nil, paymentserrors.ErrAlreadyPaid
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	current, findErr := r.FindByID(ctx, id)
	if findErr != nil {
		return nil, findErr
	}
	return current, paymentserrors.ErrTransitionRejected
}
