package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"miniola/internal/models"
	"miniola/internal/repositories/interfaces"
)

// accountCollection implements interfaces.AccountRepository over one role's
// collection. The rider and driver repositories embed it.
type accountCollection struct {
	collection *mongo.Collection
}

func liveByID(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "deleted_at": nil}
}

func (r *accountCollection) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.collection.FindOne(ctx, bson.M{"email": email, "deleted_at": nil}).Decode(&account)
	if err != nil {
		return nil, findErr(err, "account")
	}
	return &account, nil
}

func (r *accountCollection) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	found, err := exists(ctx, r.collection, bson.M{"email": email, "deleted_at": nil})
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return found, nil
}

func (r *accountCollection) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	found, err := exists(ctx, r.collection, bson.M{"phone": phone, "deleted_at": nil})
	if err != nil {
		return false, fmt.Errorf("failed to check phone: %w", err)
	}
	return found, nil
}

func (r *accountCollection) CreditWallet(ctx context.Context, id primitive.ObjectID, amount float64) (float64, error) {
	return r.adjustWallet(ctx, liveByID(id), amount)
}

func (r *accountCollection) DebitWallet(ctx context.Context, id primitive.ObjectID, amount float64) (float64, error) {
	filter := liveByID(id)
	filter["wallet_balance"] = bson.M{"$gte": amount}

	balance, err := r.adjustWallet(ctx, filter, -amount)
	if errors.Is(err, interfaces.ErrNotFound) {
		found, existsErr := exists(ctx, r.collection, liveByID(id))
		if existsErr != nil {
			return 0, fmt.Errorf("failed to check account: %w", existsErr)
		}
		if found {
			return 0, interfaces.ErrInsufficientFunds
		}
	}
	return balance, err
}

// adjustWallet adds delta and rounds the balance to paise in one write.
func (r *accountCollection) adjustWallet(ctx context.Context, filter bson.M, delta float64) (float64, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"wallet_balance": bson.M{"$round": bson.A{bson.M{"$add": bson.A{"$wallet_balance", delta}}, 2}},
			"updated_at":     time.Now(),
		}}},
	}

	var result struct {
		WalletBalance float64 `bson:"wallet_balance"`
	}
	err := r.collection.FindOneAndUpdate(ctx, filter, update, afterUpdate()).Decode(&result)
	if err != nil {
		return 0, findErr(err, "account")
	}
	return result.WalletBalance, nil
}

func (r *accountCollection) TouchLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx, liveByID(id), bson.M{"$set": bson.M{"last_login_at": at}})
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

func (r *accountCollection) SoftDelete(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return r.softDelete(ctx, id, at, nil)
}

func (r *accountCollection) softDelete(ctx context.Context, id primitive.ObjectID, at time.Time, extra bson.M) error {
	set := bson.M{
		"deleted_at": at,
		"is_active":  false,
		"updated_at": at,
	}
	for k, v := range extra {
		set[k] = v
	}

	result, err := r.collection.UpdateOne(ctx, liveByID(id), bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("account: %w", interfaces.ErrNotFound)
	}
	return nil
}
