package models

type Rider struct {
	Account        `bson:",inline"`
	CompletedRides int64 `json:"completed_rides" bson:"completed_rides"`
}
