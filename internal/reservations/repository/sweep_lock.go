package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"flightbook/pkg/config"
	mongotx "flightbook/pkg/db/mongo"
	"flightbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Sweep_locks"
)

// SweepLockRepository hands out named leases. A lease is held by one owner
// until it expires or is released.
type SweepLockRepository interface {
	Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name, owner string) error
}

type mongoSweepLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSweepLockRepository(cfg *config.Config) SweepLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSweepLockRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// Acquire takes the lease when it is free, expired or already ours. When
// another owner holds a live lease the upsert collides on _id and reports
// a duplicate key.
func (r *mongoSweepLockRepository) Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	filter := bson.M{
		"_id": name,
		"$or": bson.A{
			bson.M{"owner": owner},
			bson.M{"expires_at": bson.M{"$lte": now}},
		},
	}
	update := bson.M{
		"$set":         bson.M{"owner": owner, "expires_at": now.Add(ttl)},
		"$setOnInsert": bson.M{"created_at": now},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire sweep lock: %w", err)
	}
	return true, nil
}

func (r *mongoSweepLockRepository) Release(ctx context.Context, name, owner string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": name, "owner": owner}); err != nil {
		return fmt.Errorf("failed to release sweep lock: %w", err)
	}
	return nil
}

type memorySweepLockRepository struct {
	mu    sync.Mutex
	locks map[string]model.SweepLock
}

func NewMemorySweepLockRepository() SweepLockRepository {
	return &memorySweepLockRepository{locks: make(map[string]model.SweepLock)}
}

func (r *memorySweepLockRepository) Acquire(_ context.Context, name, owner string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if lock, held := r.locks[name]; held && lock.Owner != owner && lock.ExpiresAt.After(now) {
		return false, nil
	}
	r.locks[name] = model.SweepLock{ID: name, Owner: owner, ExpiresAt: now.Add(ttl), CreatedAt: now}
	return true, nil
}

func (r *memorySweepLockRepository) Release(_ context.Context, name, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lock, held := r.locks[name]; held && lock.Owner == owner {
		delete(r.locks, name)
	}
	return nil
}
