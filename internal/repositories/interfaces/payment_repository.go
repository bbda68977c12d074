package interfaces

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"miniola/internal/models"
)

// PaymentUpdate carries the fields written alongside a status change.
type PaymentUpdate struct {
	PlatformFee    *float64
	DriverEarnings *float64
	TransactionID  string
	FailureReason  string
	RefundAmount   *float64
	RefundReason   string
	ProcessedAt    *time.Time
	RefundedAt     *time.Time
	// ClearRefund removes the refund fields, used when a refund is rolled back.
	ClearRefund    bool
}

type PaymentRepository interface {
	// Create returns ErrDuplicate when the ride already has a payment or the
	// receipt number is taken.
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error)
	GetByRideID(ctx context.Context, rideID primitive.ObjectID) (*models.Payment, error)

	// TransitionStatus moves the payment from -> to and applies update in the
	// same write. ErrConflict if the payment is no longer in from.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.PaymentStatus, update PaymentUpdate) (*models.Payment, error)
}
