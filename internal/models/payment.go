package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentStatus string
type PaymentMethod string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"

	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodUPI    PaymentMethod = "upi"
	PaymentMethodCash   PaymentMethod = "cash"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodWallet, PaymentMethodUPI, PaymentMethodCash:
		return true
	}
	return false
}

type Payment struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RideID         primitive.ObjectID `json:"ride_id" bson:"ride_id"`
	RiderID        primitive.ObjectID `json:"rider_id" bson:"rider_id"`
	DriverID       primitive.ObjectID `json:"driver_id" bson:"driver_id"`
	Amount         float64            `json:"amount" bson:"amount"`
	Method         PaymentMethod      `json:"method" bson:"method"`
	Status         PaymentStatus      `json:"status" bson:"status"`
	PlatformFee    float64            `json:"platform_fee" bson:"platform_fee"`
	DriverEarnings float64            `json:"driver_earnings" bson:"driver_earnings"`
	TransactionID  string             `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	ReceiptNumber  string             `json:"receipt_number" bson:"receipt_number"`
	FailureReason  string             `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	RefundAmount   *float64           `json:"refund_amount,omitempty" bson:"refund_amount,omitempty"`
	RefundReason   string             `json:"refund_reason,omitempty" bson:"refund_reason,omitempty"`
	RefundedAt     *time.Time         `json:"refunded_at,omitempty" bson:"refunded_at,omitempty"`
	ProcessedAt    *time.Time         `json:"processed_at,omitempty" bson:"processed_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}

func (p *Payment) IsParticipant(userID primitive.ObjectID) bool {
	return p.RiderID == userID || p.DriverID == userID
}
