package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type KYCStatus string

const (
	KYCStatusPending  KYCStatus = "pending"
	KYCStatusApproved KYCStatus = "approved"
	KYCStatusRejected KYCStatus = "rejected"
)

func (s KYCStatus) IsValid() bool {
	switch s {
	case KYCStatusPending, KYCStatusApproved, KYCStatusRejected:
		return true
	}
	return false
}

const (
	BadgeRookie      = "Rookie"
	BadgeExperienced = "Experienced"
	BadgeExpert      = "Expert"
)

// BadgeThresholds maps completed ride counts to the badge earned there.
var BadgeThresholds = []struct {
	Rides int64
	Name  string
}{
	{Rides: 10, Name: BadgeRookie},
	{Rides: 50, Name: BadgeExperienced},
	{Rides: 100, Name: BadgeExpert},
}

type Vehicle struct {
	Type   RideClass `json:"type" bson:"type"`
	Make   string    `json:"make" bson:"make"`
	Model  string    `json:"model" bson:"model"`
	Color  string    `json:"color" bson:"color"`
	Number string    `json:"number" bson:"number"`
}

type Badge struct {
	Name      string    `json:"name" bson:"name"`
	AwardedAt time.Time `json:"awarded_at" bson:"awarded_at"`
}

type Driver struct {
	Account            `bson:",inline"`
	Vehicle            Vehicle             `json:"vehicle" bson:"vehicle"`
	LicenseNumber      string              `json:"license_number" bson:"license_number"`
	KYCStatus          KYCStatus           `json:"kyc_status" bson:"kyc_status"`
	CurrentRide        *primitive.ObjectID `json:"current_ride" bson:"current_ride"`
	IsAvailable        bool                `json:"is_available" bson:"is_available"`
	TotalEarnings      float64             `json:"total_earnings" bson:"total_earnings"`
	TotalRides         int64               `json:"total_rides" bson:"total_rides"`
	Level              int                 `json:"level" bson:"level"`
	Experience         int64               `json:"experience" bson:"experience"`
	Badges             []Badge             `json:"badges" bson:"badges"`
	LastLocationUpdate *time.Time          `json:"last_location_update,omitempty" bson:"last_location_update,omitempty"`
}

func (d *Driver) HasBadge(name string) bool {
	for _, b := range d.Badges {
		if b.Name == name {
			return true
		}
	}
	return false
}

// Progression returns experience and level for a completed ride count.
func Progression(totalRides int64) (experience int64, level int) {
	return totalRides * 10, int(totalRides/10) + 1
}

// BadgesDue lists every badge whose threshold totalRides has reached.
func BadgesDue(totalRides int64) []string {
	var names []string
	for _, t := range BadgeThresholds {
		if totalRides >= t.Rides {
			names = append(names, t.Name)
		}
	}
	return names
}
