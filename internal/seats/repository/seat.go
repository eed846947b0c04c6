package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	seatserrors "flightbook/internal/seats/errors"
	"flightbook/pkg/config"
	mongotx "flightbook/pkg/db/mongo"
	"flightbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Seats"
)

type SeatRepository interface {
	InsertMany(ctx context.Context, seats []*model.Seat) error
	FindByFlight(ctx context.Context, flightID string, onlyAvailable bool) ([]*model.Seat, error)
	FindOne(ctx context.Context, flightID, number string) (*model.Seat, error)
	// Hold takes every seat in numbers for holdID or none of them.
	Hold(ctx context.Context, flightID string, numbers []string, holdID string, expiresAt time.Time) ([]*model.Seat, error)
	Commit(ctx context.Context, flightID string, numbers []string, holdID string) error
	Release(ctx context.Context, flightID string, numbers []string, holdID string) (int64, error)
	ReleaseExpired(ctx context.Context, cutoff time.Time) (int64, error)
	SetBlocked(ctx context.Context, flightID, number string, blocked bool, reason string) (*model.Seat, error)
}

type mongoSeatRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoSeatRepository(cfg *config.Config) SeatRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSeatRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (r *mongoSeatRepository) InsertMany(ctx context.Context, seats []*model.Seat) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	ts := now()
	docs := make([]any, 0, len(seats))
	for _, seat := range seats {
		seat.CreatedAt = ts
		seat.UpdatedAt = ts
		docs = append(docs, seat)
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return seatserrors.ErrDuplicateSeat
		}
		return fmt.Errorf("failed to insert seats: %w", err)
	}
	return nil
}

func (r *mongoSeatRepository) FindByFlight(ctx context.Context, flightID string, onlyAvailable bool) ([]*model.Seat, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"flight_id": flightID}
	if onlyAvailable {
		filter["available"] = true
		filter["blocked"] = false
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "number", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find seats: %w", err)
	}
	defer cursor.Close(ctx)

	seats := []*model.Seat{}
	if err = cursor.All(ctx, &seats); err != nil {
		return nil, fmt.Errorf("failed to decode seats: %w", err)
	}
	return seats, nil
}

func (r *mongoSeatRepository) FindOne(ctx context.Context, flightID, number string) (*model.Seat, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var seat model.Seat
	err := r.collection.FindOne(ctx, bson.M{"flight_id": flightID, "number": number}).Decode(&seat)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, seatserrors.ErrSeatNotFound
		}
		return nil, fmt.Errorf("failed to find seat: %w", err)
	}
	return &seat, nil
}

// Hold runs one conditional update per seat inside a transaction. A seat that
// is missing, held or blocked does not match the filter; any miss aborts the
// transaction so no seat stays held. Write conflicts with a concurrent holder
// carry the transient transaction label and are retried by the driver, which
// then observes the seat as taken.
func (r *mongoSeatRepository) Hold(ctx context.Context, flightID string, numbers []string, holdID string, expiresAt time.Time) ([]*model.Seat, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	var held []*model.Seat
	err := r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		held = held[:0]
		var missing []string

		for _, number := range numbers {
			filter := bson.M{
				"flight_id": flightID,
				"number":    number,
				"available": true,
				"blocked":   false,
			}
			update := bson.M{
				"$set": bson.M{
					"available":       false,
					"hold_id":         holdID,
					"hold_expires_at": expiresAt,
					"updated_at":      now(),
				},
			}

			var seat model.Seat
			err := r.collection.FindOneAndUpdate(sessCtx, filter, update,
				options.FindOneAndUpdate().SetReturnDocument(options.After),
			).Decode(&seat)
			if err != nil {
				if errors.Is(err, mongo.ErrNoDocuments) {
					missing = append(missing, number)
					continue
				}
				return err
			}
			held = append(held, &seat)
		}

		if len(missing) > 0 {
			return &seatserrors.UnavailableError{Seats: missing}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return held, nil
}

func (r *mongoSeatRepository) Commit(ctx context.Context, flightID string, numbers []string, holdID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"flight_id": flightID,
		"number":    bson.M{"$in": numbers},
		"available": false,
		"hold_id":   holdID,
	}
	update := bson.M{
		"$set":   bson.M{"updated_at": now()},
		"$unset": bson.M{"hold_expires_at": ""},
	}

	err := r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		result, err := r.collection.UpdateMany(sessCtx, filter, update)
		if err != nil {
			return err
		}
		if result.MatchedCount != int64(len(numbers)) {
			return seatserrors.ErrHoldExpired
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, seatserrors.ErrHoldExpired) {
			return err
		}
		return fmt.Errorf("failed to commit seats: %w", err)
	}
	return nil
}

func (r *mongoSeatRepository) Release(ctx context.Context, flightID string, numbers []string, holdID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"flight_id": flightID,
		"number":    bson.M{"$in": numbers},
		"available": false,
	}
	if holdID != "" {
		filter["hold_id"] = holdID
	}

	result, err := r.collection.UpdateMany(ctx, filter, releaseUpdate())
	if err != nil {
		return 0, fmt.Errorf("failed to release seats: %w", err)
	}
	return result.ModifiedCount, nil
}

// ReleaseExpired frees holds that lapsed at or before cutoff. Committed seats
// carry no expiry and never match.
func (r *mongoSeatRepository) ReleaseExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"available":       false,
		"hold_expires_at": bson.M{"$lte": cutoff},
	}

	result, err := r.collection.UpdateMany(ctx, filter, releaseUpdate())
	if err != nil {
		return 0, fmt.Errorf("failed to release expired holds: %w", err)
	}
	return result.ModifiedCount, nil
}

func releaseUpdate() bson.M {
	return bson.M{
		"$set":   bson.M{"available": true, "updated_at": now()},
		"$unset": bson.M{"hold_id": "", "hold_expires_at": ""},
	}
}

func (r *mongoSeatRepository) SetBlocked(ctx context.Context, flightID, number string, blocked bool, reason string) (*model.Seat, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"blocked": true, "block_reason": reason, "updated_at": now()}}
	if !blocked {
		update = bson.M{
			"$set":   bson.M{"blocked": false, "updated_at": now()},
			"$unset": bson.M{"block_reason": ""},
		}
	}

	var seat model.Seat
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"flight_id": flightID, "number": number},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&seat)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, seatserrors.ErrSeatNotFound
		}
		return nil, fmt.Errorf("failed to update seat block: %w", err)
	}
	return &seat, nil
}
