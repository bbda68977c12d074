package utils

import (
	"math"
)

// CalculateDistance returns the great-circle distance in kilometres.
func CalculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lon1Rad := lon1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lon2Rad := lon2 * math.Pi / 180

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKM * c
}

func EstimateETAMinutes(distanceKM float64, averageSpeedKMH float64) int {
	if averageSpeedKMH <= 0 {
		averageSpeedKMH = 25
	}

	return int(math.Ceil(distanceKM / averageSpeedKMH * 60))
}

// RoundMoney rounds to two decimals, half away from zero.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// SplitCommission divides amount into the platform fee and the driver's
// share in whole paise, so the two always add back up to amount.
func SplitCommission(amount, rate float64) (fee, earnings float64) {
	paise := math.Round(amount * 100)
	feePaise := math.Round(paise * rate)
	return feePaise / 100, (paise - feePaise) / 100
}

func RoundKM(distance float64) float64 {
	return math.Round(distance*1000) / 1000
}
