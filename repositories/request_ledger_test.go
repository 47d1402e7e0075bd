package repositories

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeline/models"
	"lifeline/utils"
)

func testLocation() models.Location {
	return models.Location{Latitude: 19.08, Longitude: 72.88}
}

func testResponder(id string) *models.Responder {
	return &models.Responder{
		ID:           id,
		ConnectionID: "conn-" + id,
		Name:         "Unit " + id,
		Vehicle:      "MH-01-" + id,
		Availability: models.AvailabilityAvailable,
	}
}

func TestCreateStartsSearching(t *testing.T) {
	ledger := NewRequestLedger()

	req := ledger.Create("requester-1", testLocation(), models.SeverityHigh, "cardiac")

	require.NotEmpty(t, req.ID)
	assert.Equal(t, models.RequestStateSearching, req.State)
	assert.Nil(t, req.AssignedResponder)
	assert.Equal(t, 1, ledger.Len())

	got, err := ledger.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)
}

func TestGetUnknownReturnsNotFound(t *testing.T) {
	ledger := NewRequestLedger()

	_, err := ledger.Get("no-such-request")
	assert.True(t, utils.IsNotFound(err))
}

func TestTryAcceptCommitsFirstOnly(t *testing.T) {
	ledger := NewRequestLedger()
	req := ledger.Create("requester-1", testLocation(), models.SeverityHigh, "cardiac")

	accepted, err := ledger.TryAccept(req.ID, testResponder("r1"))
	require.NoError(t, err)
	require.NotNil(t, accepted.AssignedResponder)
	assert.Equal(t, models.RequestStateAccepted, accepted.State)
	assert.Equal(t, "r1", accepted.AssignedResponder.ID)

	_, err = ledger.TryAccept(req.ID, testResponder("r2"))
	assert.True(t, utils.IsAlreadyResolved(err))

	got, err := ledger.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.AssignedResponder.ID)
}

func TestTryAcceptAtMostOneUnderContention(t *testing.T) {
	ledger := NewRequestLedger()
	req := ledger.Create("requester-1", testLocation(), models.SeverityHigh, "trauma")

	const contenders = 32
	var wg sync.WaitGroup
	var winners sync.Map

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			responder := testResponder(string(rune('a' + n%26)))
			if _, err := ledger.TryAccept(req.ID, responder); err == nil {
				winners.Store(n, true)
			} else if !utils.IsAlreadyResolved(err) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	won := 0
	winners.Range(func(_, _ interface{}) bool {
		won++
		return true
	})
	assert.Equal(t, 1, won)
}

func TestCancelIsIdempotent(t *testing.T) {
	ledger := NewRequestLedger()
	req := ledger.Create("requester-1", testLocation(), models.SeverityLow, "minor")

	cancelled, ok := ledger.Cancel(req.ID)
	require.True(t, ok)
	assert.Equal(t, models.RequestStateCancelled, cancelled.State)
	assert.NotNil(t, cancelled.ResolvedAt)
	assert.Equal(t, 0, ledger.Len())

	_, ok = ledger.Cancel(req.ID)
	assert.False(t, ok)

	_, ok = ledger.Cancel("never-existed")
	assert.False(t, ok)
}

func TestCancelReportsAssignedResponder(t *testing.T) {
	ledger := NewRequestLedger()
	req := ledger.Create("requester-1", testLocation(), models.SeverityHigh, "cardiac")

	_, err := ledger.TryAccept(req.ID, testResponder("r1"))
	require.NoError(t, err)

	cancelled, ok := ledger.Cancel(req.ID)
	require.True(t, ok)
	require.NotNil(t, cancelled.AssignedResponder)
	assert.Equal(t, "r1", cancelled.AssignedResponder.ID)
}

func TestAcceptAfterCancelFails(t *testing.T) {
	ledger := NewRequestLedger()
	req := ledger.Create("requester-1", testLocation(), models.SeverityMedium, "fall")

	_, ok := ledger.Cancel(req.ID)
	require.True(t, ok)

	// Terminal requests leave the table, so a late accept sees NotFound.
	_, err := ledger.TryAccept(req.ID, testResponder("r1"))
	assert.Error(t, err)
}

func TestCancelByRequester(t *testing.T) {
	ledger := NewRequestLedger()
	first := ledger.Create("requester-1", testLocation(), models.SeverityHigh, "cardiac")
	second := ledger.Create("requester-1", testLocation(), models.SeverityLow, "minor")
	other := ledger.Create("requester-2", testLocation(), models.SeverityLow, "minor")

	cancelled := ledger.CancelByRequester("requester-1")
	assert.Len(t, cancelled, 2)
	ids := map[string]bool{cancelled[0].ID: true, cancelled[1].ID: true}
	assert.True(t, ids[first.ID])
	assert.True(t, ids[second.ID])

	_, err := ledger.Get(other.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, ledger.Len())
}

func TestCancelByResponder(t *testing.T) {
	ledger := NewRequestLedger()
	req := ledger.Create("requester-1", testLocation(), models.SeverityHigh, "cardiac")

	_, err := ledger.TryAccept(req.ID, testResponder("r1"))
	require.NoError(t, err)

	cancelled, ok := ledger.CancelByResponder("r1")
	require.True(t, ok)
	assert.Equal(t, req.ID, cancelled.ID)

	_, ok = ledger.CancelByResponder("r1")
	assert.False(t, ok)
}

func TestDeclinedBookkeeping(t *testing.T) {
	ledger := NewRequestLedger()
	req := ledger.Create("requester-1", testLocation(), models.SeverityHigh, "cardiac")

	assert.False(t, ledger.HasDeclined(req.ID, "r1"))

	require.NoError(t, ledger.MarkDeclined(req.ID, "r1"))
	assert.True(t, ledger.HasDeclined(req.ID, "r1"))
	assert.False(t, ledger.HasDeclined(req.ID, "r2"))

	err := ledger.MarkDeclined("no-such-request", "r1")
	assert.True(t, utils.IsNotFound(err))

	_, err = ledger.TryAccept(req.ID, testResponder("r2"))
	require.NoError(t, err)
	err = ledger.MarkDeclined(req.ID, "r3")
	assert.True(t, utils.IsAlreadyResolved(err))
}

func TestActiveSnapshot(t *testing.T) {
	ledger := NewRequestLedger()
	ledger.Create("requester-1", testLocation(), models.SeverityHigh, "cardiac")
	ledger.Create("requester-2", testLocation(), models.SeverityLow, "minor")

	active := ledger.Active()
	assert.Len(t, active, 2)

	// Snapshot copies must not alias ledger state.
	active[0].State = models.RequestStateCancelled
	fresh, err := ledger.Get(active[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStateSearching, fresh.State)
}
