package models

import (
	"crypto/subtle"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideStatus string
type RideClass string
type CancelActor string

const (
	RideStatusRequested     RideStatus = "requested"
	RideStatusAccepted      RideStatus = "accepted"
	RideStatusDriverArrived RideStatus = "driver_arrived"
	RideStatusInProgress    RideStatus = "in_progress"
	RideStatusCompleted     RideStatus = "completed"
	RideStatusCancelled     RideStatus = "cancelled"

	RideClassBike  RideClass = "bike"
	RideClassMini  RideClass = "mini"
	RideClassSedan RideClass = "sedan"
	RideClassSUV   RideClass = "suv"

	CancelledByRider  CancelActor = "rider"
	CancelledByDriver CancelActor = "driver"
	CancelledBySystem CancelActor = "system"
)

const (
	NoDriversAvailableReason = "No drivers available"
	MatchingFailedReason     = "Driver matching failed"
)

func (c RideClass) IsValid() bool {
	switch c {
	case RideClassBike, RideClassMini, RideClassSedan, RideClassSUV:
		return true
	}
	return false
}

// rideTransitions lists, per target status, the statuses it may be entered from.
var rideTransitions = map[RideStatus][]RideStatus{
	RideStatusAccepted:      {RideStatusRequested},
	RideStatusDriverArrived: {RideStatusAccepted},
	RideStatusInProgress:    {RideStatusAccepted, RideStatusDriverArrived},
	RideStatusCompleted:     {RideStatusInProgress},
	RideStatusCancelled:     {RideStatusRequested, RideStatusAccepted, RideStatusDriverArrived, RideStatusInProgress},
}

// TransitionSources returns the statuses from which to is reachable.
func TransitionSources(to RideStatus) []RideStatus {
	return rideTransitions[to]
}

func (s RideStatus) CanTransitionTo(to RideStatus) bool {
	for _, from := range rideTransitions[to] {
		if from == s {
			return true
		}
	}
	return false
}

func (s RideStatus) IsTerminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// ActiveRideStatuses are the statuses counted as demand for surge pricing.
var ActiveRideStatuses = []RideStatus{
	RideStatusRequested,
	RideStatusAccepted,
	RideStatusDriverArrived,
	RideStatusInProgress,
}

type Fare struct {
	EstimatedFare   float64  `json:"estimated_fare" bson:"estimated_fare"`
	FinalFare       *float64 `json:"final_fare,omitempty" bson:"final_fare,omitempty"`
	BaseFare        float64  `json:"base_fare" bson:"base_fare"`
	DistanceFare    float64  `json:"distance_fare" bson:"distance_fare"`
	TimeFare        float64  `json:"time_fare" bson:"time_fare"`
	SurgeMultiplier float64  `json:"surge_multiplier" bson:"surge_multiplier"`
	GroupDiscount   float64  `json:"group_discount" bson:"group_discount"`
}

type RideDuration struct {
	Estimated int  `json:"estimated" bson:"estimated"`
	Actual    *int `json:"actual,omitempty" bson:"actual,omitempty"`
}

type RideRating struct {
	Score   int       `json:"score" bson:"score"`
	Comment string    `json:"comment,omitempty" bson:"comment,omitempty"`
	RatedAt time.Time `json:"rated_at" bson:"rated_at"`
}

type Ride struct {
	ID                 primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	RiderID            primitive.ObjectID  `json:"rider_id" bson:"rider_id"`
	DriverID           *primitive.ObjectID `json:"driver_id" bson:"driver_id"`
	RideClass          RideClass           `json:"ride_class" bson:"ride_class"`
	Pickup             Place               `json:"pickup" bson:"pickup"`
	Dropoff            Place               `json:"dropoff" bson:"dropoff"`
	Status             RideStatus          `json:"status" bson:"status"`
	Fare               Fare                `json:"fare" bson:"fare"`
	Distance           float64             `json:"distance" bson:"distance"`
	Duration           RideDuration        `json:"duration" bson:"duration"`
	OTP                string              `json:"otp,omitempty" bson:"otp"`
	IsGroupRide        bool                `json:"is_group_ride" bson:"is_group_ride"`
	ScheduledTime      *time.Time          `json:"scheduled_time,omitempty" bson:"scheduled_time,omitempty"`
	AcceptedAt         *time.Time          `json:"accepted_at,omitempty" bson:"accepted_at,omitempty"`
	ArrivedAt          *time.Time          `json:"arrived_at,omitempty" bson:"arrived_at,omitempty"`
	StartTime          *time.Time          `json:"start_time,omitempty" bson:"start_time,omitempty"`
	EndTime            *time.Time          `json:"end_time,omitempty" bson:"end_time,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CancellationReason string              `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	CancelledBy        CancelActor         `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`
	Rating             *RideRating         `json:"rating,omitempty" bson:"rating"`
	PaymentStatus      PaymentStatus       `json:"payment_status" bson:"payment_status"`
	CreatedAt          time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" bson:"updated_at"`
}

// VerifyOTP reports whether otp equals the ride's stored code exactly.
func (r *Ride) VerifyOTP(otp string) bool {
	if len(otp) != len(r.OTP) || r.OTP == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(otp), []byte(r.OTP)) == 1
}

func (r *Ride) IsAssignedTo(driverID primitive.ObjectID) bool {
	return r.DriverID != nil && *r.DriverID == driverID
}

// ChargeableFare is the final fare once set, otherwise the estimate.
func (r *Ride) ChargeableFare() float64 {
	if r.Fare.FinalFare != nil {
		return *r.Fare.FinalFare
	}
	return r.Fare.EstimatedFare
}

// ForDriver returns a copy safe to show the driver: the OTP is withheld.
func (r *Ride) ForDriver() *Ride {
	c := *r
	c.OTP = ""
	return &c
}
