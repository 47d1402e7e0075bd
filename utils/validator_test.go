package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lifeline/models"
)

func TestValidateLocationBounds(t *testing.T) {
	vs := NewValidationService()

	tests := []struct {
		name    string
		lat     float64
		lng     float64
		wantErr bool
	}{
		{"valid", 19.076, 72.8777, false},
		{"equator prime meridian", 0, 0, false},
		{"latitude too high", 150, 72.8777, true},
		{"latitude too low", -91, 72.8777, true},
		{"longitude too high", 19.076, 181, true},
		{"longitude too low", 19.076, -180.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := vs.Validate(models.UpdateLocationRequest{
				Location: models.Location{Latitude: tt.lat, Longitude: tt.lng},
			})
			if tt.wantErr {
				assert.True(t, IsMalformedInput(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFoldsAllFailures(t *testing.T) {
	vs := NewValidationService()

	err := vs.Validate(models.NewEmergencyRequest{
		Location: models.Location{Latitude: 99, Longitude: 72.88},
		Severity: "catastrophic",
	})
	assert.True(t, IsMalformedInput(err))

	serviceErr, ok := GetServiceError(err)
	assert.True(t, ok)
	assert.Contains(t, serviceErr.Details, "Severity")
	assert.Contains(t, serviceErr.Details, "Type")
}
