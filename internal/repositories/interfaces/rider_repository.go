package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"miniola/internal/models"
)

type RiderRepository interface {
	AccountRepository

	Create(ctx context.Context, rider *models.Rider) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Rider, error)
	IncrementCompletedRides(ctx context.Context, id primitive.ObjectID) error
}
