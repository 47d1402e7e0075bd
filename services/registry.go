package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"lifeline/models"
)

// ClientConn is one live bidirectional channel to a client process. The
// websocket layer implements it; Send is best-effort and reports whether the
// message was enqueued.
type ClientConn interface {
	ConnectionID() string
	Send(message models.WSMessage) bool
}

// ConnectionRegistry maps live connections to the role-specific record bound
// to each. A connection has no role until its first role-binding event, and
// at most one responder or facility record. Unknown connection IDs are
// no-ops everywhere, never errors, since disconnect races are routine.
type ConnectionRegistry struct {
	mutex      sync.RWMutex
	conns      map[string]ClientConn
	responders map[string]*models.Responder // keyed by connection ID
	facilities map[string]*models.Facility  // keyed by connection ID
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		conns:      make(map[string]ClientConn),
		responders: make(map[string]*models.Responder),
		facilities: make(map[string]*models.Facility),
	}
}

// Attach tracks a newly opened connection.
func (r *ConnectionRegistry) Attach(conn ClientConn) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.conns[conn.ConnectionID()] = conn
}

// Detach removes the connection and whatever role record was bound to it.
// It returns the removed responder record, if any, so the coordinator can
// clean up an in-flight assignment. Idempotent.
func (r *ConnectionRegistry) Detach(connID string) *models.Responder {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.conns, connID)
	delete(r.facilities, connID)

	responder, ok := r.responders[connID]
	if !ok {
		return nil
	}
	delete(r.responders, connID)

	cp := *responder
	return &cp
}

// Conn returns the live connection for an ID, if still attached.
func (r *ConnectionRegistry) Conn(connID string) (ClientConn, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	conn, ok := r.conns[connID]
	return conn, ok
}

// RegisterResponder creates or replaces the responder record for the
// connection. A fresh registration replaces the prior record entirely,
// including availability.
func (r *ConnectionRegistry) RegisterResponder(connID, name, vehicle string, location models.Location) *models.Responder {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	responder := &models.Responder{
		ID:           uuid.New().String(),
		ConnectionID: connID,
		Name:         name,
		Vehicle:      vehicle,
		Location:     location,
		Availability: models.AvailabilityAvailable,
		RegisteredAt: time.Now(),
	}
	r.responders[connID] = responder

	cp := *responder
	return &cp
}

// RegisterFacility creates or replaces the facility record for the connection.
func (r *ConnectionRegistry) RegisterFacility(connID, name string, beds, icuBeds int) *models.Facility {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	facility := &models.Facility{
		ID:           uuid.New().String(),
		ConnectionID: connID,
		Name:         name,
		Beds:         beds,
		ICUBeds:      icuBeds,
		RegisteredAt: time.Now(),
	}
	r.facilities[connID] = facility

	cp := *facility
	return &cp
}

// UpdateResponderLocation updates the last-known location in place. Silent
// no-op when the connection has no responder record.
func (r *ConnectionRegistry) UpdateResponderLocation(connID string, location models.Location) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if responder, ok := r.responders[connID]; ok {
		responder.Location = location
	}
}

// SetAvailability flips the availability flag of the connection's responder.
// Silent no-op when the record is gone (the responder may have disconnected
// or re-registered since).
func (r *ConnectionRegistry) SetAvailability(connID string, availability models.Availability) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if responder, ok := r.responders[connID]; ok {
		responder.Availability = availability
	}
}

// TrySetBusy atomically claims the connection's responder for an assignment.
// Returns false when there is no responder record or it is already busy, so
// a responder can hold at most one assignment at a time.
func (r *ConnectionRegistry) TrySetBusy(connID string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	responder, ok := r.responders[connID]
	if !ok || responder.Availability != models.AvailabilityAvailable {
		return false
	}
	responder.Availability = models.AvailabilityBusy
	return true
}

// FreeResponder flips the responder back to available, but only while the
// live record still matches the assignment's responder ID. A responder that
// re-registered since has a replacement record with its own state, which a
// stale assignment must not touch.
func (r *ConnectionRegistry) FreeResponder(connID, responderID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if responder, ok := r.responders[connID]; ok && responder.ID == responderID {
		responder.Availability = models.AvailabilityAvailable
	}
}

// ResponderByConnection returns a copy of the responder record bound to the
// connection, if any.
func (r *ConnectionRegistry) ResponderByConnection(connID string) (*models.Responder, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	responder, ok := r.responders[connID]
	if !ok {
		return nil, false
	}
	cp := *responder
	return &cp, true
}

// AvailableResponders returns a snapshot of responders currently available.
// Mutations after the snapshot may or may not be reflected in an in-flight
// broadcast; that is acceptable under best-effort fan-out.
func (r *ConnectionRegistry) AvailableResponders() []models.Responder {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	available := make([]models.Responder, 0, len(r.responders))
	for _, responder := range r.responders {
		if responder.Availability == models.AvailabilityAvailable {
			available = append(available, *responder)
		}
	}
	return available
}

// Responders returns a snapshot of every registered responder.
func (r *ConnectionRegistry) Responders() []models.Responder {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	all := make([]models.Responder, 0, len(r.responders))
	for _, responder := range r.responders {
		all = append(all, *responder)
	}
	return all
}

// Facilities returns a snapshot of every registered facility.
func (r *ConnectionRegistry) Facilities() []models.Facility {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	all := make([]models.Facility, 0, len(r.facilities))
	for _, facility := range r.facilities {
		all = append(all, *facility)
	}
	return all
}
