package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeline/models"
)

func TestRegisterResponderReplacesRecord(t *testing.T) {
	registry := NewConnectionRegistry()

	first := registry.RegisterResponder("conn-1", "Unit 7", "MH-01-1234", models.Location{Latitude: 19, Longitude: 72})
	registry.SetAvailability("conn-1", models.AvailabilityBusy)

	// A fresh registration on the same connection replaces the record
	// entirely, availability included.
	second := registry.RegisterResponder("conn-1", "Unit 7B", "MH-01-9999", models.Location{Latitude: 20, Longitude: 73})
	require.NotEqual(t, first.ID, second.ID)

	current, ok := registry.ResponderByConnection("conn-1")
	require.True(t, ok)
	assert.Equal(t, "Unit 7B", current.Name)
	assert.Equal(t, models.AvailabilityAvailable, current.Availability)
	assert.Len(t, registry.Responders(), 1)
}

func TestUpdateResponderLocation(t *testing.T) {
	registry := NewConnectionRegistry()
	registry.RegisterResponder("conn-1", "Unit 7", "MH-01-1234", models.Location{Latitude: 19, Longitude: 72})

	registry.UpdateResponderLocation("conn-1", models.Location{Latitude: 19.5, Longitude: 72.5})

	responder, ok := registry.ResponderByConnection("conn-1")
	require.True(t, ok)
	assert.Equal(t, 19.5, responder.Location.Latitude)

	// Unknown connections are silently ignored.
	registry.UpdateResponderLocation("no-such-conn", models.Location{Latitude: 1, Longitude: 1})
}

func TestAvailableRespondersFiltersBusy(t *testing.T) {
	registry := NewConnectionRegistry()
	registry.RegisterResponder("conn-1", "Unit 1", "V1", models.Location{})
	registry.RegisterResponder("conn-2", "Unit 2", "V2", models.Location{})
	registry.SetAvailability("conn-2", models.AvailabilityBusy)

	available := registry.AvailableResponders()
	require.Len(t, available, 1)
	assert.Equal(t, "Unit 1", available[0].Name)
	assert.Len(t, registry.Responders(), 2)
}

func TestTrySetBusyClaimsOnce(t *testing.T) {
	registry := NewConnectionRegistry()
	responder := registry.RegisterResponder("conn-1", "Unit 1", "V1", models.Location{})

	require.True(t, registry.TrySetBusy("conn-1"))
	assert.False(t, registry.TrySetBusy("conn-1"))
	assert.False(t, registry.TrySetBusy("no-such-conn"))

	registry.FreeResponder("conn-1", responder.ID)
	assert.True(t, registry.TrySetBusy("conn-1"))
}

func TestFreeResponderRequiresMatchingID(t *testing.T) {
	registry := NewConnectionRegistry()
	stale := registry.RegisterResponder("conn-1", "Unit 1", "V1", models.Location{})

	replacement := registry.RegisterResponder("conn-1", "Unit 1", "V1", models.Location{})
	require.True(t, registry.TrySetBusy("conn-1"))

	// Releasing under the replaced record's ID must not touch the
	// replacement's claim.
	registry.FreeResponder("conn-1", stale.ID)
	current, ok := registry.ResponderByConnection("conn-1")
	require.True(t, ok)
	assert.Equal(t, models.AvailabilityBusy, current.Availability)

	registry.FreeResponder("conn-1", replacement.ID)
	current, ok = registry.ResponderByConnection("conn-1")
	require.True(t, ok)
	assert.Equal(t, models.AvailabilityAvailable, current.Availability)
}

func TestDetachIsIdempotentAndTotal(t *testing.T) {
	registry := NewConnectionRegistry()
	registry.RegisterResponder("conn-1", "Unit 1", "V1", models.Location{})
	registry.RegisterFacility("conn-2", "City General", 40, 8)

	removed := registry.Detach("conn-1")
	require.NotNil(t, removed)
	assert.Equal(t, "Unit 1", removed.Name)
	assert.Empty(t, registry.AvailableResponders())

	assert.Nil(t, registry.Detach("conn-1"))
	assert.Nil(t, registry.Detach("never-attached"))

	registry.Detach("conn-2")
	assert.Empty(t, registry.Facilities())
}

func TestSnapshotsDoNotAliasRegistryState(t *testing.T) {
	registry := NewConnectionRegistry()
	registry.RegisterResponder("conn-1", "Unit 1", "V1", models.Location{Latitude: 10, Longitude: 10})

	snapshot := registry.AvailableResponders()
	require.Len(t, snapshot, 1)
	snapshot[0].Availability = models.AvailabilityBusy

	fresh, ok := registry.ResponderByConnection("conn-1")
	require.True(t, ok)
	assert.Equal(t, models.AvailabilityAvailable, fresh.Availability)
}
