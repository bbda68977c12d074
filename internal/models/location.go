package models

// GeoPoint is a GeoJSON point. Coordinates are stored as [lng, lat] so the
// field can back a 2dsphere index.
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates" validate:"required,len=2"`
}

func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{
		Type:        "Point",
		Coordinates: []float64{lng, lat},
	}
}

func (p GeoPoint) Latitude() float64 {
	if len(p.Coordinates) >= 2 {
		return p.Coordinates[1]
	}
	return 0
}

func (p GeoPoint) Longitude() float64 {
	if len(p.Coordinates) >= 1 {
		return p.Coordinates[0]
	}
	return 0
}

// Place is a point plus the human readable address it was picked from.
type Place struct {
	Location GeoPoint `json:"location" bson:"location"`
	Address  string   `json:"address" bson:"address"`
}
