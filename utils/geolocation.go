package utils

import (
	"fmt"
	"math"
	"time"
)

const (
	EarthRadiusKm = 6371.0
	DegToRad      = math.Pi / 180.0
)

// DistanceKm computes the great-circle distance between two coordinates
// using the Haversine formula, in kilometers rounded to one decimal place.
// The value is advisory only and must never drive eligibility or ranking.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * DegToRad
	lat2Rad := lat2 * DegToRad

	dlat := (lat2 - lat1) * DegToRad
	dlon := (lon2 - lon1) * DegToRad

	a := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return math.Round(EarthRadiusKm*c*10) / 10
}

// EstimateETA converts a road distance into a coarse travel-time string,
// assuming the given average speed. Sub-minute estimates round up to 1 min.
func EstimateETA(distanceKm, avgSpeedKmh float64) string {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = 40
	}

	minutes := int(math.Ceil(distanceKm / avgSpeedKmh * 60))
	if minutes < 1 {
		minutes = 1
	}

	if minutes >= 60 {
		d := time.Duration(minutes) * time.Minute
		return fmt.Sprintf("%dh %dmin", int(d.Hours()), minutes%60)
	}
	return fmt.Sprintf("%d min", minutes)
}

// IsValidCoordinate checks if latitude and longitude values are valid
func IsValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
