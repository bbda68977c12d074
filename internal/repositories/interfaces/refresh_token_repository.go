package interfaces

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"miniola/internal/models"
)

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	// Revoke marks the token revoked if it is not already. ErrConflict when
	// another request revoked it first.
	Revoke(ctx context.Context, tokenHash, reason, replacedByHash string, at time.Time) error
	// RevokeAllForUser revokes every unrevoked token of the user and returns
	// how many were affected.
	RevokeAllForUser(ctx context.Context, userID primitive.ObjectID, reason string, at time.Time) (int64, error)
}
