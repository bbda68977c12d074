package config

// RideConfig carries the pricing and matching tunables.
type RideConfig struct {
	SearchRadiusKM    float64 `yaml:"search_radius_km"`
	MaxCandidates     int     `yaml:"max_candidates"`
	CommissionRate    float64 `yaml:"commission_rate"`
	GroupDiscountRate float64 `yaml:"group_discount_rate"`
	AverageSpeedKMH   float64 `yaml:"average_speed_kmh"`
}

func loadRideConfig() *RideConfig {
	return &RideConfig{
		SearchRadiusKM:    getEnvAsFloat64("RIDE_SEARCH_RADIUS_KM", 5),
		MaxCandidates:     getEnvAsInt("RIDE_MAX_CANDIDATES", 10),
		CommissionRate:    getEnvAsFloat64("RIDE_COMMISSION_RATE", 0.20),
		GroupDiscountRate: getEnvAsFloat64("RIDE_GROUP_DISCOUNT_RATE", 0.20),
		AverageSpeedKMH:   getEnvAsFloat64("RIDE_AVERAGE_SPEED_KMH", 25),
	}
}

// DefaultRideConfig returns the tunables without reading the environment.
func DefaultRideConfig() *RideConfig {
	return &RideConfig{
		SearchRadiusKM:    5,
		MaxCandidates:     10,
		CommissionRate:    0.20,
		GroupDiscountRate: 0.20,
		AverageSpeedKMH:   25,
	}
}
