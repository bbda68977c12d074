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
	"miniola/pkg/database"
)

type driverRepository struct {
	accountCollection
}

func NewDriverRepository(db *mongo.Database) interfaces.DriverRepository {
	return &driverRepository{
		accountCollection: accountCollection{collection: db.Collection(database.DriversCollection)},
	}
}

// matchable is the filter every assignable driver satisfies.
func matchable() bson.M {
	return bson.M{
		"is_available": true,
		"kyc_status":   models.KYCStatusApproved,
		"current_ride": nil,
		"deleted_at":   nil,
	}
}

func (r *driverRepository) Create(ctx context.Context, driver *models.Driver) error {
	now := time.Now()
	driver.ID = primitive.NewObjectID()
	driver.Role = models.RoleDriver
	driver.CreatedAt = now
	driver.UpdatedAt = now
	if driver.Badges == nil {
		driver.Badges = []models.Badge{}
	}

	if _, err := r.collection.InsertOne(ctx, driver); err != nil {
		return insertErr(err, "driver")
	}
	return nil
}

func (r *driverRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	var driver models.Driver
	if err := r.collection.FindOne(ctx, liveByID(id)).Decode(&driver); err != nil {
		return nil, findErr(err, "driver")
	}
	return &driver, nil
}

func (r *driverRepository) ExistsByLicense(ctx context.Context, licenseNumber string) (bool, error) {
	found, err := exists(ctx, r.collection, bson.M{"license_number": licenseNumber, "deleted_at": nil})
	if err != nil {
		return false, fmt.Errorf("failed to check license: %w", err)
	}
	return found, nil
}

func (r *driverRepository) ExistsByVehicleNumber(ctx context.Context, number string) (bool, error) {
	found, err := exists(ctx, r.collection, bson.M{"vehicle.number": number, "deleted_at": nil})
	if err != nil {
		return false, fmt.Errorf("failed to check vehicle number: %w", err)
	}
	return found, nil
}

func (r *driverRepository) FindNearbyAvailable(ctx context.Context, point models.GeoPoint, class models.RideClass, radiusKM float64, limit int) ([]*models.Driver, error) {
	filter := matchable()
	filter["vehicle.type"] = class
	filter["location"] = bson.M{
		"$near": bson.M{
			"$geometry":    point,
			"$maxDistance": radiusKM * 1000,
		},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to find nearby drivers: %w", err)
	}
	defer cursor.Close(ctx)

	var drivers []*models.Driver
	for cursor.Next(ctx) {
		var driver models.Driver
		if err := cursor.Decode(&driver); err != nil {
			return nil, fmt.Errorf("failed to decode driver: %w", err)
		}
		drivers = append(drivers, &driver)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate drivers: %w", err)
	}

	return drivers, nil
}

func (r *driverRepository) CountAvailable(ctx context.Context) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, matchable())
	if err != nil {
		return 0, fmt.Errorf("failed to count available drivers: %w", err)
	}
	return n, nil
}

func (r *driverRepository) ClaimForRide(ctx context.Context, driverID, rideID primitive.ObjectID) error {
	filter := matchable()
	filter["_id"] = driverID

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"current_ride": rideID,
		"is_available": false,
		"updated_at":   time.Now(),
	}})
	if err != nil {
		return fmt.Errorf("failed to claim driver: %w", err)
	}
	if result.MatchedCount == 0 {
		return missOrConflict(ctx, r.collection, liveByID(driverID), "driver")
	}
	return nil
}

func (r *driverRepository) ReleaseFromRide(ctx context.Context, driverID, rideID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": driverID, "current_ride": rideID}, bson.M{"$set": bson.M{
		"current_ride": nil,
		"is_available": true,
		"updated_at":   time.Now(),
	}})
	if err != nil {
		return fmt.Errorf("failed to release driver: %w", err)
	}
	return nil
}

func (r *driverRepository) ToggleAvailability(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	filter := liveByID(id)
	filter["current_ride"] = nil

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"is_available": bson.M{"$not": bson.A{"$is_available"}},
			"updated_at":   time.Now(),
		}}},
	}

	var driver models.Driver
	err := r.collection.FindOneAndUpdate(ctx, filter, update, afterUpdate()).Decode(&driver)
	if err == mongo.ErrNoDocuments {
		return nil, missOrConflict(ctx, r.collection, liveByID(id), "driver")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to toggle availability: %w", err)
	}
	return &driver, nil
}

func (r *driverRepository) UpdateLocation(ctx context.Context, id primitive.ObjectID, point models.GeoPoint, address string) (*models.Driver, error) {
	now := time.Now()
	set := bson.M{
		"location":             point,
		"last_location_update": now,
		"updated_at":           now,
	}
	if address != "" {
		set["address"] = address
	}

	return r.findAndSet(ctx, id, set, "failed to update driver location")
}

func (r *driverRepository) UpdateKYCStatus(ctx context.Context, id primitive.ObjectID, status models.KYCStatus) (*models.Driver, error) {
	return r.findAndSet(ctx, id, bson.M{
		"kyc_status": status,
		"updated_at": time.Now(),
	}, "failed to update kyc status")
}

func (r *driverRepository) findAndSet(ctx context.Context, id primitive.ObjectID, set bson.M, failure string) (*models.Driver, error) {
	var driver models.Driver
	err := r.collection.FindOneAndUpdate(ctx, liveByID(id), bson.M{"$set": set}, afterUpdate()).Decode(&driver)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("driver: %w", interfaces.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", failure, err)
	}
	return &driver, nil
}

func (r *driverRepository) RecordCompletedRide(ctx context.Context, id primitive.ObjectID, amount float64) (*models.Driver, error) {
	// The second stage sees the incremented ride count.
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"total_earnings": bson.M{"$round": bson.A{bson.M{"$add": bson.A{"$total_earnings", amount}}, 2}},
			"total_rides":    bson.M{"$add": bson.A{"$total_rides", 1}},
			"updated_at":     time.Now(),
		}}},
		{{Key: "$set", Value: bson.M{
			"experience": bson.M{"$multiply": bson.A{"$total_rides", 10}},
			"level": bson.M{"$toInt": bson.M{"$add": bson.A{
				bson.M{"$floor": bson.M{"$divide": bson.A{"$total_rides", 10}}},
				1,
			}}},
		}}},
	}

	var driver models.Driver
	err := r.collection.FindOneAndUpdate(ctx, byID(id), update, afterUpdate()).Decode(&driver)
	if err != nil {
		return nil, findErr(err, "driver")
	}
	return &driver, nil
}

func (r *driverRepository) AwardBadge(ctx context.Context, id primitive.ObjectID, badge models.Badge) (bool, error) {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "badges.name": bson.M{"$ne": badge.Name}},
		bson.M{"$push": bson.M{"badges": badge}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to award badge: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *driverRepository) ApplyRating(ctx context.Context, id primitive.ObjectID, score int) error {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"rating": bson.M{"$divide": bson.A{
				bson.M{"$add": bson.A{bson.M{"$multiply": bson.A{"$rating", "$total_ratings"}}, score}},
				bson.M{"$add": bson.A{"$total_ratings", 1}},
			}},
			"total_ratings": bson.M{"$add": bson.A{"$total_ratings", 1}},
			"updated_at":    time.Now(),
		}}},
	}

	result, err := r.collection.UpdateOne(ctx, byID(id), update)
	if err != nil {
		return fmt.Errorf("failed to apply rating: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("driver: %w", interfaces.ErrNotFound)
	}
	return nil
}

// SoftDelete also takes the driver out of matching.
func (r *driverRepository) SoftDelete(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return r.softDelete(ctx, id, at, bson.M{"is_available": false})
}
