package validators

type CreatePaymentRequest struct {
	RideID string `json:"ride_id" validate:"required,object_id"`
	Method string `json:"method" validate:"required,payment_method"`
}

type RefundPaymentRequest struct {
	Reason string   `json:"reason" validate:"required,min=3,max=255"`
	Amount *float64 `json:"amount" validate:"omitempty,gt=0"`
}
