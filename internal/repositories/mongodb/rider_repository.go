package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"miniola/internal/models"
	"miniola/internal/repositories/interfaces"
	"miniola/pkg/database"
)

type riderRepository struct {
	accountCollection
}

func NewRiderRepository(db *mongo.Database) interfaces.RiderRepository {
	return &riderRepository{
		accountCollection: accountCollection{collection: db.Collection(database.RidersCollection)},
	}
}

func (r *riderRepository) Create(ctx context.Context, rider *models.Rider) error {
	now := time.Now()
	rider.ID = primitive.NewObjectID()
	rider.Role = models.RoleRider
	rider.CreatedAt = now
	rider.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, rider); err != nil {
		return insertErr(err, "rider")
	}
	return nil
}

func (r *riderRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Rider, error) {
	var rider models.Rider
	if err := r.collection.FindOne(ctx, liveByID(id)).Decode(&rider); err != nil {
		return nil, findErr(err, "rider")
	}
	return &rider, nil
}

func (r *riderRepository) IncrementCompletedRides(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, byID(id), bson.M{
		"$inc": bson.M{"completed_rides": 1},
		"$set": bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to increment completed rides: %w", err)
	}
	return nil
}
