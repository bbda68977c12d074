package interfaces

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"miniola/internal/models"
)

// AccountRepository covers the fields riders and drivers share. Every lookup
// ignores tombstoned accounts.
type AccountRepository interface {
	FindAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)

	// CreditWallet adds amount and returns the new balance.
	CreditWallet(ctx context.Context, id primitive.ObjectID, amount float64) (float64, error)
	// DebitWallet subtracts amount only when the balance covers it; otherwise
	// ErrInsufficientFunds is returned and nothing changes.
	DebitWallet(ctx context.Context, id primitive.ObjectID, amount float64) (float64, error)

	TouchLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	SoftDelete(ctx context.Context, id primitive.ObjectID, at time.Time) error
}
