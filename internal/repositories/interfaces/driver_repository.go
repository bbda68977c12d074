package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"miniola/internal/models"
)

type DriverRepository interface {
	AccountRepository

	Create(ctx context.Context, driver *models.Driver) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error)
	ExistsByLicense(ctx context.Context, licenseNumber string) (bool, error)
	ExistsByVehicleNumber(ctx context.Context, number string) (bool, error)

	// FindNearbyAvailable returns up to limit approved, free drivers of the
	// given class within radiusKM of point, nearest first.
	FindNearbyAvailable(ctx context.Context, point models.GeoPoint, class models.RideClass, radiusKM float64, limit int) ([]*models.Driver, error)
	CountAvailable(ctx context.Context) (int64, error)

	// ClaimForRide binds the driver to rideID if the driver is available,
	// approved and not on another ride. ErrConflict otherwise.
	ClaimForRide(ctx context.Context, driverID, rideID primitive.ObjectID) error
	// ReleaseFromRide frees the driver if still bound to rideID. A driver
	// already released is not an error.
	ReleaseFromRide(ctx context.Context, driverID, rideID primitive.ObjectID) error

	// ToggleAvailability flips is_available. ErrConflict while on a ride.
	ToggleAvailability(ctx context.Context, id primitive.ObjectID) (*models.Driver, error)
	UpdateLocation(ctx context.Context, id primitive.ObjectID, point models.GeoPoint, address string) (*models.Driver, error)
	UpdateKYCStatus(ctx context.Context, id primitive.ObjectID, status models.KYCStatus) (*models.Driver, error)

	// RecordCompletedRide adds amount to total earnings, bumps the ride count
	// and recomputes experience and level in one update.
	RecordCompletedRide(ctx context.Context, id primitive.ObjectID, amount float64) (*models.Driver, error)
	// AwardBadge appends the badge unless one with the same name exists.
	// It reports whether the badge was added.
	AwardBadge(ctx context.Context, id primitive.ObjectID, badge models.Badge) (bool, error)
	// ApplyRating folds score into the running average.
	ApplyRating(ctx context.Context, id primitive.ObjectID, score int) error
}
