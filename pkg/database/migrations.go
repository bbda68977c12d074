package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"miniola/pkg/logger"
)

type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, db *mongo.Database) error
}

// Migrator applies index migrations in version order and records the
// highest applied version in the migrations collection.
type Migrator struct {
	db         *mongo.Database
	migrations []Migration
	logger     *logger.Logger
}

func NewMigrator(db *mongo.Database, log *logger.Logger) *Migrator {
	return &Migrator{
		db:         db,
		migrations: getMigrations(),
		logger:     log,
	}
}

func (m *Migrator) Up(ctx context.Context) error {
	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if migration.Version <= currentVersion {
			continue
		}

		m.logger.WithFields(map[string]interface{}{
			"version":     migration.Version,
			"description": migration.Description,
		}).Info("Running migration")

		if err := migration.Up(ctx, m.db); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if err := m.updateVersion(ctx, migration.Version); err != nil {
			return fmt.Errorf("failed to update migration version: %w", err)
		}
	}

	return nil
}

func (m *Migrator) getCurrentVersion(ctx context.Context) (int, error) {
	var result struct {
		Version int `bson:"version"`
	}

	err := m.db.Collection(MigrationsCollection).FindOne(ctx, bson.D{}).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read migration version: %w", err)
	}

	return result.Version, nil
}

func (m *Migrator) updateVersion(ctx context.Context, version int) error {
	_, err := m.db.Collection(MigrationsCollection).ReplaceOne(
		ctx,
		bson.D{},
		bson.D{{Key: "version", Value: version}, {Key: "updated_at", Value: time.Now()}},
		options.Replace().SetUpsert(true),
	)
	return err
}

// notDeleted restricts unique indexes to live accounts so a tombstoned
// email or phone can be registered again.
var notDeleted = bson.D{{Key: "deleted_at", Value: bson.D{{Key: "$type", Value: "null"}}}}

func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create riders indexes",
			Up: func(ctx context.Context, db *mongo.Database) error {
				return createIndexes(ctx, db.Collection(RidersCollection), accountIndexes())
			},
		},
		{
			Version:     2,
			Description: "Create drivers indexes",
			Up: func(ctx context.Context, db *mongo.Database) error {
				indexes := append(accountIndexes(),
					mongo.IndexModel{
						Keys:    bson.D{{Key: "license_number", Value: 1}},
						Options: options.Index().SetUnique(true).SetPartialFilterExpression(notDeleted),
					},
					mongo.IndexModel{
						Keys:    bson.D{{Key: "vehicle.number", Value: 1}},
						Options: options.Index().SetUnique(true).SetPartialFilterExpression(notDeleted),
					},
					mongo.IndexModel{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
					mongo.IndexModel{Keys: bson.D{
						{Key: "is_available", Value: 1},
						{Key: "kyc_status", Value: 1},
						{Key: "vehicle.type", Value: 1},
					}},
				)
				return createIndexes(ctx, db.Collection(DriversCollection), indexes)
			},
		},
		{
			Version:     3,
			Description: "Create rides indexes",
			Up: func(ctx context.Context, db *mongo.Database) error {
				return createIndexes(ctx, db.Collection(RidesCollection), []mongo.IndexModel{
					{Keys: bson.D{{Key: "rider_id", Value: 1}, {Key: "created_at", Value: -1}}},
					{Keys: bson.D{{Key: "driver_id", Value: 1}, {Key: "created_at", Value: -1}}},
					{Keys: bson.D{{Key: "status", Value: 1}}},
					{Keys: bson.D{{Key: "pickup.location", Value: "2dsphere"}}},
				})
			},
		},
		{
			Version:     4,
			Description: "Create payments indexes",
			Up: func(ctx context.Context, db *mongo.Database) error {
				return createIndexes(ctx, db.Collection(PaymentsCollection), []mongo.IndexModel{
					{
						Keys:    bson.D{{Key: "ride_id", Value: 1}},
						Options: options.Index().SetUnique(true),
					},
					{
						Keys:    bson.D{{Key: "receipt_number", Value: 1}},
						Options: options.Index().SetUnique(true),
					},
					{
						Keys: bson.D{{Key: "transaction_id", Value: 1}},
						Options: options.Index().SetUnique(true).SetPartialFilterExpression(
							bson.D{{Key: "transaction_id", Value: bson.D{{Key: "$type", Value: "string"}}}},
						),
					},
					{Keys: bson.D{{Key: "rider_id", Value: 1}}},
					{Keys: bson.D{{Key: "driver_id", Value: 1}}},
				})
			},
		},
		{
			Version:     5,
			Description: "Create refresh token indexes",
			Up: func(ctx context.Context, db *mongo.Database) error {
				return createIndexes(ctx, db.Collection(RefreshTokensCollection), refreshTokenIndexes())
			},
		},
	}
}

// refreshTokenIndexes has no TTL: revoked and expired records are the
// rotation audit trail and are kept.
func refreshTokenIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "revoked_at", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
	}
}

func accountIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(notDeleted),
		},
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(notDeleted),
		},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
}

func createIndexes(ctx context.Context, collection *mongo.Collection, indexes []mongo.IndexModel) error {
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes on %s: %w", collection.Name(), err)
	}
	return nil
}
