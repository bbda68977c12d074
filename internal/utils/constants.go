package utils

const (
	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// OTP handed to the rider and checked at pickup
	OTPLength = 4

	// Refresh tokens are this many random bytes, hex encoded
	RefreshTokenBytes = 32

	EarthRadiusKM = 6371.0

	// Response Status
	StatusSuccess = "success"
	StatusError   = "error"

	// Context keys set by the middleware
	ContextKeyPrincipal = "principal"
	ContextKeyRequestID = "request_id"

	// Headers
	HeaderRequestID = "X-Request-ID"
	HeaderAdminKey  = "X-Admin-Key"
)
