package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RevokeReasonRotated = "rotated"
	RevokeReasonLogout  = "logout"
	RevokeReasonReuse   = "reuse detected"
	RevokeReasonDeleted = "account deleted"
)

// RefreshToken is the persisted side of an opaque refresh token. Only the
// SHA-256 hash of the raw value is stored.
type RefreshToken struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID         primitive.ObjectID `json:"user_id" bson:"user_id"`
	Role           UserRole           `json:"role" bson:"role"`
	TokenHash      string             `json:"-" bson:"token_hash"`
	ExpiresAt      time.Time          `json:"expires_at" bson:"expires_at"`
	RevokedAt      *time.Time         `json:"revoked_at,omitempty" bson:"revoked_at"`
	RevokedReason  string             `json:"revoked_reason,omitempty" bson:"revoked_reason,omitempty"`
	ReplacedByHash string             `json:"-" bson:"replaced_by_hash,omitempty"`
	CreatedByIP    string             `json:"created_by_ip,omitempty" bson:"created_by_ip,omitempty"`
	UserAgent      string             `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}
