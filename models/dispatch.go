package models

import (
	"time"
)

type RequestState string
type Availability string
type Severity string
type ConnectionRole string

const (
	RequestStateSearching RequestState = "searching"
	RequestStateAccepted  RequestState = "accepted"
	RequestStateCancelled RequestState = "cancelled"

	AvailabilityAvailable Availability = "available"
	AvailabilityBusy      Availability = "busy"

	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"

	RoleRequester ConnectionRole = "requester"
	RoleResponder ConnectionRole = "responder"
	RoleFacility  ConnectionRole = "facility"
)

// Location is a plain WGS84 coordinate with an optional human-readable address.
type Location struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Address   string  `json:"address,omitempty"`
}

// Responder is an ambulance unit bound to a single live connection.
type Responder struct {
	ID           string       `json:"id"`
	ConnectionID string       `json:"connectionId"`
	Name         string       `json:"name"`
	Vehicle      string       `json:"vehicle"`
	Location     Location     `json:"location"`
	Availability Availability `json:"availability"`
	RegisteredAt time.Time    `json:"registeredAt"`
}

// Facility is a registered receiving site. It is only a broadcast target;
// no matching logic depends on it.
type Facility struct {
	ID           string    `json:"id"`
	ConnectionID string    `json:"connectionId"`
	Name         string    `json:"name"`
	Beds         int       `json:"beds"`
	ICUBeds      int       `json:"icuBeds"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// EmergencyRequest is the central dispatch entity. AssignedResponder is
// non-nil exactly when State is accepted.
type EmergencyRequest struct {
	ID                string       `json:"id"`
	RequesterConnID   string       `json:"requesterConnectionId"`
	Location          Location     `json:"location"`
	Severity          Severity     `json:"severity"`
	Type              string       `json:"type"`
	State             RequestState `json:"state"`
	AssignedResponder *Responder   `json:"assignedResponder,omitempty"`
	CreatedAt         time.Time    `json:"createdAt"`
	ResolvedAt        *time.Time   `json:"resolvedAt,omitempty"`

	// Declined holds responder IDs that rejected this request, so a
	// re-broadcast never re-offers to them.
	Declined map[string]bool `json:"-"`
}

func (r RequestState) Terminal() bool {
	return r == RequestStateCancelled
}

// Clone returns a copy safe to hand outside the ledger's lock.
func (e *EmergencyRequest) Clone() *EmergencyRequest {
	cp := *e
	if e.AssignedResponder != nil {
		responder := *e.AssignedResponder
		cp.AssignedResponder = &responder
	}
	cp.Declined = nil
	return &cp
}

// Request payloads carried inside WebSocket envelopes.

type RegisterResponderRequest struct {
	Name     string   `json:"name" validate:"required,min=1,max=120"`
	Vehicle  string   `json:"vehicle" validate:"required,min=1,max=60"`
	Location Location `json:"location"`
}

type RegisterFacilityRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=120"`
	Beds    int    `json:"beds" validate:"min=0"`
	ICUBeds int    `json:"icuBeds" validate:"min=0"`
}

type UpdateLocationRequest struct {
	Location Location `json:"location"`
}

type NewEmergencyRequest struct {
	Location Location `json:"location"`
	Severity Severity `json:"severity" validate:"required,oneof=high medium low"`
	Type     string   `json:"type" validate:"required,min=1,max=80"`
}

type AcceptRequest struct {
	RequestID string `json:"requestId" validate:"required"`
}

type RejectRequest struct {
	RequestID string `json:"requestId" validate:"required"`
}

type CancelRequest struct {
	RequestID string `json:"requestId" validate:"required"`
}

// DispatchStats are cumulative coordinator counters exposed on the ops API.
type DispatchStats struct {
	ActiveRequests    int   `json:"activeRequests"`
	RequestsCreated   int64 `json:"requestsCreated"`
	RequestsMatched   int64 `json:"requestsMatched"`
	RequestsCancelled int64 `json:"requestsCancelled"`
	OffersSent        int64 `json:"offersSent"`
	AcceptsLost       int64 `json:"acceptsLost"`
	EmptyBroadcasts   int64 `json:"emptyBroadcasts"`
}
