package validators

type AccountRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Phone    string `json:"phone" validate:"required,phone_number"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type RegisterRiderRequest struct {
	AccountRequest
}

type VehicleRequest struct {
	Type   string `json:"type" validate:"required,ride_class"`
	Make   string `json:"make" validate:"required,max=50"`
	Model  string `json:"model" validate:"required,max=50"`
	Color  string `json:"color" validate:"omitempty,max=30"`
	Number string `json:"number" validate:"required,min=4,max=16"`
}

type RegisterDriverRequest struct {
	AccountRequest
	LicenseNumber string         `json:"license_number" validate:"required,min=5,max=32"`
	Vehicle       VehicleRequest `json:"vehicle" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=rider driver"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,hexadecimal,len=64"`
}

type TopUpRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0,lte=100000"`
}
