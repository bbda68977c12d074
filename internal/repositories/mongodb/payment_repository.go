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

type paymentRepository struct {
	collection *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) interfaces.PaymentRepository {
	return &paymentRepository{
		collection: db.Collection(database.PaymentsCollection),
	}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	now := time.Now()
	payment.ID = primitive.NewObjectID()
	payment.CreatedAt = now
	payment.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, payment); err != nil {
		return insertErr(err, "payment")
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.collection.FindOne(ctx, byID(id)).Decode(&payment); err != nil {
		return nil, findErr(err, "payment")
	}
	return &payment, nil
}

func (r *paymentRepository) GetByRideID(ctx context.Context, rideID primitive.ObjectID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.collection.FindOne(ctx, bson.M{"ride_id": rideID}).Decode(&payment); err != nil {
		return nil, findErr(err, "payment")
	}
	return &payment, nil
}

func (r *paymentRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.PaymentStatus, update interfaces.PaymentUpdate) (*models.Payment, error) {
	set := bson.M{
		"status":     to,
		"updated_at": time.Now(),
	}
	if update.PlatformFee != nil {
		set["platform_fee"] = *update.PlatformFee
	}
	if update.DriverEarnings != nil {
		set["driver_earnings"] = *update.DriverEarnings
	}
	if update.TransactionID != "" {
		set["transaction_id"] = update.TransactionID
	}
	if update.FailureReason != "" {
		set["failure_reason"] = update.FailureReason
	}
	if update.RefundAmount != nil {
		set["refund_amount"] = *update.RefundAmount
	}
	if update.RefundReason != "" {
		set["refund_reason"] = update.RefundReason
	}
	if update.ProcessedAt != nil {
		set["processed_at"] = *update.ProcessedAt
	}
	if update.RefundedAt != nil {
		set["refunded_at"] = *update.RefundedAt
	}

	change := bson.M{"$set": set}
	if update.ClearRefund {
		change["$unset"] = bson.M{"refund_amount": "", "refund_reason": "", "refunded_at": ""}
	}

	var payment models.Payment
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		change,
		afterUpdate(),
	).Decode(&payment)
	if err == mongo.ErrNoDocuments {
		return nil, missOrConflict(ctx, r.collection, byID(id), "payment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}
	return &payment, nil
}
