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

type refreshTokenRepository struct {
	collection *mongo.Collection
}

func NewRefreshTokenRepository(db *mongo.Database) interfaces.RefreshTokenRepository {
	return &refreshTokenRepository{
		collection: db.Collection(database.RefreshTokensCollection),
	}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	token.ID = primitive.NewObjectID()
	token.CreatedAt = time.Now()

	if _, err := r.collection.InsertOne(ctx, token); err != nil {
		return insertErr(err, "refresh token")
	}
	return nil
}

func (r *refreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.collection.FindOne(ctx, bson.M{"token_hash": tokenHash}).Decode(&token); err != nil {
		return nil, findErr(err, "refresh token")
	}
	return &token, nil
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, tokenHash, reason, replacedByHash string, at time.Time) error {
	set := bson.M{
		"revoked_at":     at,
		"revoked_reason": reason,
	}
	if replacedByHash != "" {
		set["replaced_by_hash"] = replacedByHash
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"token_hash": tokenHash, "revoked_at": nil},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if result.MatchedCount == 0 {
		return missOrConflict(ctx, r.collection, bson.M{"token_hash": tokenHash}, "refresh token")
	}
	return nil
}

func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID primitive.ObjectID, reason string, at time.Time) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"user_id": userID, "revoked_at": nil},
		bson.M{"$set": bson.M{"revoked_at": at, "revoked_reason": reason}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return result.ModifiedCount, nil
}
