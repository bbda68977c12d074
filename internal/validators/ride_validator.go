package validators

import (
	"time"

	"miniola/internal/models"
)

type LocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Address   string  `json:"address" validate:"omitempty,max=255"`
}

func (l LocationRequest) Point() models.GeoPoint {
	return models.NewGeoPoint(l.Latitude, l.Longitude)
}

func (l LocationRequest) Place() models.Place {
	return models.Place{Location: l.Point(), Address: l.Address}
}

type FareEstimateRequest struct {
	Pickup      LocationRequest `json:"pickup" validate:"required"`
	Dropoff     LocationRequest `json:"dropoff" validate:"required"`
	RideClass   string          `json:"ride_class" validate:"required,ride_class"`
	IsGroupRide bool            `json:"is_group_ride"`
}

type RideRequest struct {
	FareEstimateRequest
	ScheduledTime *time.Time `json:"scheduled_time"`
}

type StartRideRequest struct {
	OTP string `json:"otp" validate:"required,otp"`
}

type CompleteRideRequest struct {
	FinalFare *float64 `json:"final_fare" validate:"omitempty,gte=0"`
}

type CancelRideRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=255"`
}

type RateRideRequest struct {
	Score   int    `json:"score" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=500"`
}
