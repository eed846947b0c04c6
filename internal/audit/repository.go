package audit

import (
	"context"
	"fmt"

	"flightbook/pkg/config"
	mongotx "flightbook/pkg/db/mongo"
	"flightbook/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "Audit_logs"

// MongoRepository appends entries to the Audit_logs collection. Entry ids are
// event ids, so a redelivered event is stored once.
type MongoRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRepository(cfg *config.Config) *MongoRepository {
	return &MongoRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
	}
}

func (r *MongoRepository) Write(ctx context.Context, entry *model.AuditLog) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}
