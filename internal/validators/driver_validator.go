package validators

type UpdateLocationRequest struct {
	LocationRequest
}

type KYCReviewRequest struct {
	Status string `json:"status" validate:"required,kyc_status"`
}
