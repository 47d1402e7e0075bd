package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKmIsPure(t *testing.T) {
	a := DistanceKm(19.076, 72.8777, 28.7041, 77.1025)
	b := DistanceKm(19.076, 72.8777, 28.7041, 77.1025)
	assert.Equal(t, a, b)
}

func TestDistanceKmSymmetry(t *testing.T) {
	forward := DistanceKm(19.076, 72.8777, 28.7041, 77.1025)
	backward := DistanceKm(28.7041, 77.1025, 19.076, 72.8777)
	assert.Equal(t, forward, backward)
}

func TestDistanceKmZeroForSamePoint(t *testing.T) {
	assert.Equal(t, 0.0, DistanceKm(19.076, 72.8777, 19.076, 72.8777))
	assert.Equal(t, 0.0, DistanceKm(0, 0, 0, 0))
}

func TestDistanceKmKnownPair(t *testing.T) {
	// Mumbai to Delhi great-circle distance is roughly 1153 km.
	d := DistanceKm(19.076, 72.8777, 28.7041, 77.1025)
	assert.InDelta(t, 1153, d, 10)
}

func TestDistanceKmRoundedToOneDecimal(t *testing.T) {
	d := DistanceKm(19.076, 72.8777, 19.08, 72.88)
	assert.Equal(t, d, float64(int(d*10))/10)
	assert.Greater(t, d, 0.0)
	assert.Less(t, d, 1.0)
}

func TestEstimateETA(t *testing.T) {
	tests := []struct {
		name       string
		distanceKm float64
		speedKmh   float64
		expected   string
	}{
		{name: "short hop rounds up to a minute", distanceKm: 0.2, speedKmh: 40, expected: "1 min"},
		{name: "ten kilometers at forty", distanceKm: 10, speedKmh: 40, expected: "15 min"},
		{name: "long haul formats hours", distanceKm: 100, speedKmh: 40, expected: "2h 30min"},
		{name: "zero speed falls back to default", distanceKm: 10, speedKmh: 0, expected: "15 min"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, EstimateETA(tc.distanceKm, tc.speedKmh))
		})
	}
}

func TestIsValidCoordinate(t *testing.T) {
	assert.True(t, IsValidCoordinate(0, 0))
	assert.True(t, IsValidCoordinate(90, 180))
	assert.True(t, IsValidCoordinate(-90, -180))
	assert.False(t, IsValidCoordinate(90.1, 0))
	assert.False(t, IsValidCoordinate(0, -180.5))
}
