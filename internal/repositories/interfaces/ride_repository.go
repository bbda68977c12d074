package interfaces

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"miniola/internal/models"
	"miniola/internal/utils"
)

// RideRepository transitions are conditional single-document updates. When
// the ride exists but its status (or driver) does not satisfy the
// precondition, ErrConflict is returned and nothing is written.
type RideRepository interface {
	Create(ctx context.Context, ride *models.Ride) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error)

	AssignDriver(ctx context.Context, id, driverID primitive.ObjectID, at time.Time) (*models.Ride, error)
	// UnassignDriver undoes AssignDriver while the ride is still accepted.
	UnassignDriver(ctx context.Context, id, driverID primitive.ObjectID) error
	MarkArrived(ctx context.Context, id, driverID primitive.ObjectID, at time.Time) (*models.Ride, error)
	Start(ctx context.Context, id, driverID primitive.ObjectID, at time.Time) (*models.Ride, error)
	Complete(ctx context.Context, id, driverID primitive.ObjectID, finalFare float64, endTime time.Time, actualMinutes int) (*models.Ride, error)
	Cancel(ctx context.Context, id primitive.ObjectID, reason string, actor models.CancelActor, at time.Time) (*models.Ride, error)
	// Rate stores the rider's rating once, on a completed ride.
	Rate(ctx context.Context, id, riderID primitive.ObjectID, rating models.RideRating) (*models.Ride, error)
	// ClearRating removes the rating stored at ratedAt, undoing Rate.
	ClearRating(ctx context.Context, id primitive.ObjectID, ratedAt time.Time) error
	UpdatePaymentStatus(ctx context.Context, id primitive.ObjectID, status models.PaymentStatus) error

	ListByRider(ctx context.Context, riderID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error)
	ListByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error)
	// ListOpenNear returns unassigned requested rides of class whose pickup
	// lies within radiusKM of point, nearest first.
	ListOpenNear(ctx context.Context, point models.GeoPoint, class models.RideClass, radiusKM float64, limit int) ([]*models.Ride, error)
	CountActive(ctx context.Context) (int64, error)
}
