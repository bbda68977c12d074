package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRole string

const (
	RoleRider  UserRole = "rider"
	RoleDriver UserRole = "driver"
)

func (r UserRole) IsValid() bool {
	return r == RoleRider || r == RoleDriver
}

// Account holds the identity, credential and wallet fields shared by riders
// and drivers. Each role lives in its own collection.
type Account struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name          string             `json:"name" bson:"name"`
	Email         string             `json:"email" bson:"email"`
	Phone         string             `json:"phone" bson:"phone"`
	Password      string             `json:"-" bson:"password"`
	Role          UserRole           `json:"role" bson:"role"`
	WalletBalance float64            `json:"wallet_balance" bson:"wallet_balance"`
	Rating        float64            `json:"rating" bson:"rating"`
	TotalRatings  int64              `json:"total_ratings" bson:"total_ratings"`
	Location      *GeoPoint          `json:"location,omitempty" bson:"location,omitempty"`
	Address       string             `json:"address,omitempty" bson:"address,omitempty"`
	IsActive      bool               `json:"is_active" bson:"is_active"`
	LastLoginAt   *time.Time         `json:"last_login_at,omitempty" bson:"last_login_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
	DeletedAt     *time.Time         `json:"-" bson:"deleted_at"`
}

func (a *Account) IsDeleted() bool {
	return a.DeletedAt != nil
}

// Principal is the caller identity carried by an access token.
type Principal struct {
	ID   primitive.ObjectID `json:"id"`
	Role UserRole           `json:"role"`
}

func (p Principal) IsRider() bool {
	return p.Role == RoleRider
}

func (p Principal) IsDriver() bool {
	return p.Role == RoleDriver
}
