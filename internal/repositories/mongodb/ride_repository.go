package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"miniola/internal/models"
	"miniola/internal/repositories/interfaces"
	"miniola/internal/utils"
	"miniola/pkg/database"
)

type rideRepository struct {
	collection *mongo.Collection
}

func NewRideRepository(db *mongo.Database) interfaces.RideRepository {
	return &rideRepository{
		collection: db.Collection(database.RidesCollection),
	}
}

func (r *rideRepository) Create(ctx context.Context, ride *models.Ride) error {
	now := time.Now()
	ride.ID = primitive.NewObjectID()
	ride.CreatedAt = now
	ride.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, ride); err != nil {
		return insertErr(err, "ride")
	}
	return nil
}

func (r *rideRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	var ride models.Ride
	if err := r.collection.FindOne(ctx, byID(id)).Decode(&ride); err != nil {
		return nil, findErr(err, "ride")
	}
	return &ride, nil
}

// enter moves the ride into status `to` when it sits in one of the statuses
// that may precede it and matches the extra conditions.
func (r *rideRepository) enter(ctx context.Context, id primitive.ObjectID, to models.RideStatus, conditions, set bson.M) (*models.Ride, error) {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": models.TransitionSources(to)},
	}
	for k, v := range conditions {
		filter[k] = v
	}

	set["status"] = to
	set["updated_at"] = time.Now()

	var ride models.Ride
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, afterUpdate()).Decode(&ride)
	if err == mongo.ErrNoDocuments {
		return nil, missOrConflict(ctx, r.collection, byID(id), "ride")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to move ride to %s: %w", to, err)
	}
	return &ride, nil
}

func (r *rideRepository) AssignDriver(ctx context.Context, id, driverID primitive.ObjectID, at time.Time) (*models.Ride, error) {
	return r.enter(ctx, id, models.RideStatusAccepted,
		bson.M{"driver_id": nil},
		bson.M{"driver_id": driverID, "accepted_at": at},
	)
}

func (r *rideRepository) UnassignDriver(ctx context.Context, id, driverID primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "driver_id": driverID, "status": models.RideStatusAccepted},
		bson.M{
			"$set":   bson.M{"status": models.RideStatusRequested, "driver_id": nil, "updated_at": time.Now()},
			"$unset": bson.M{"accepted_at": ""},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to unassign driver: %w", err)
	}
	if result.MatchedCount == 0 {
		return missOrConflict(ctx, r.collection, byID(id), "ride")
	}
	return nil
}

func (r *rideRepository) MarkArrived(ctx context.Context, id, driverID primitive.ObjectID, at time.Time) (*models.Ride, error) {
	return r.enter(ctx, id, models.RideStatusDriverArrived,
		bson.M{"driver_id": driverID},
		bson.M{"arrived_at": at},
	)
}

func (r *rideRepository) Start(ctx context.Context, id, driverID primitive.ObjectID, at time.Time) (*models.Ride, error) {
	return r.enter(ctx, id, models.RideStatusInProgress,
		bson.M{"driver_id": driverID},
		bson.M{"start_time": at},
	)
}

func (r *rideRepository) Complete(ctx context.Context, id, driverID primitive.ObjectID, finalFare float64, endTime time.Time, actualMinutes int) (*models.Ride, error) {
	return r.enter(ctx, id, models.RideStatusCompleted,
		bson.M{"driver_id": driverID},
		bson.M{
			"fare.final_fare": finalFare,
			"end_time":        endTime,
			"duration.actual": actualMinutes,
		},
	)
}

func (r *rideRepository) Cancel(ctx context.Context, id primitive.ObjectID, reason string, actor models.CancelActor, at time.Time) (*models.Ride, error) {
	return r.enter(ctx, id, models.RideStatusCancelled, nil, bson.M{
		"cancellation_reason": reason,
		"cancelled_by":        actor,
		"cancelled_at":        at,
	})
}

func (r *rideRepository) Rate(ctx context.Context, id, riderID primitive.ObjectID, rating models.RideRating) (*models.Ride, error) {
	filter := bson.M{
		"_id":      id,
		"rider_id": riderID,
		"status":   models.RideStatusCompleted,
		"rating":   nil,
	}

	var ride models.Ride
	err := r.collection.FindOneAndUpdate(ctx, filter,
		bson.M{"$set": bson.M{"rating": rating, "updated_at": time.Now()}},
		afterUpdate(),
	).Decode(&ride)
	if err == mongo.ErrNoDocuments {
		return nil, missOrConflict(ctx, r.collection, byID(id), "ride")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rate ride: %w", err)
	}
	return &ride, nil
}

func (r *rideRepository) ClearRating(ctx context.Context, id primitive.ObjectID, ratedAt time.Time) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "rating.rated_at": ratedAt},
		bson.M{
			"$set":   bson.M{"updated_at": time.Now()},
			"$unset": bson.M{"rating": ""},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to clear ride rating: %w", err)
	}
	if result.MatchedCount == 0 {
		return missOrConflict(ctx, r.collection, byID(id), "ride")
	}
	return nil
}

func (r *rideRepository) UpdatePaymentStatus(ctx context.Context, id primitive.ObjectID, status models.PaymentStatus) error {
	result, err := r.collection.UpdateOne(ctx, byID(id), bson.M{"$set": bson.M{
		"payment_status": status,
		"updated_at":     time.Now(),
	}})
	if err != nil {
		return fmt.Errorf("failed to update ride payment status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("ride: %w", interfaces.ErrNotFound)
	}
	return nil
}

func (r *rideRepository) ListByRider(ctx context.Context, riderID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	return r.findRidesWithFilter(ctx, bson.M{"rider_id": riderID}, params)
}

func (r *rideRepository) ListByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	return r.findRidesWithFilter(ctx, bson.M{"driver_id": driverID}, params)
}

func (r *rideRepository) ListOpenNear(ctx context.Context, point models.GeoPoint, class models.RideClass, radiusKM float64, limit int) ([]*models.Ride, error) {
	filter := bson.M{
		"status":     models.RideStatusRequested,
		"driver_id":  nil,
		"ride_class": class,
		"pickup.location": bson.M{
			"$near": bson.M{
				"$geometry":    point,
				"$maxDistance": radiusKM * 1000,
			},
		},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to find open rides: %w", err)
	}
	return decodeRides(ctx, cursor)
}

func (r *rideRepository) CountActive(ctx context.Context) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"status": bson.M{"$in": models.ActiveRideStatuses}})
	if err != nil {
		return 0, fmt.Errorf("failed to count active rides: %w", err)
	}
	return n, nil
}

func (r *rideRepository) findRidesWithFilter(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count rides: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find rides: %w", err)
	}

	rides, err := decodeRides(ctx, cursor)
	if err != nil {
		return nil, 0, err
	}
	return rides, total, nil
}

func decodeRides(ctx context.Context, cursor *mongo.Cursor) ([]*models.Ride, error) {
	defer cursor.Close(ctx)

	rides := make([]*models.Ride, 0)
	for cursor.Next(ctx) {
		var ride models.Ride
		if err := cursor.Decode(&ride); err != nil {
			return nil, fmt.Errorf("failed to decode ride: %w", err)
		}
		rides = append(rides, &ride)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rides: %w", err)
	}
	return rides, nil
}
