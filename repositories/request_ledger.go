package repositories

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"lifeline/models"
	"lifeline/utils"
)

// RequestLedger is the in-memory table of active emergency requests. A single
// mutex serializes every mutation, which is the whole concurrency argument
// for the one invariant that matters: TryAccept commits at most one responder
// per request. Terminal requests leave the table immediately, so matching
// logic never sees them.
type RequestLedger struct {
	mutex    sync.RWMutex
	requests map[string]*models.EmergencyRequest
}

func NewRequestLedger() *RequestLedger {
	return &RequestLedger{
		requests: make(map[string]*models.EmergencyRequest),
	}
}

// Create allocates a new request in the searching state and returns a copy.
func (l *RequestLedger) Create(requesterConnID string, location models.Location, severity models.Severity, reqType string) *models.EmergencyRequest {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	req := &models.EmergencyRequest{
		ID:              uuid.New().String(),
		RequesterConnID: requesterConnID,
		Location:        location,
		Severity:        severity,
		Type:            reqType,
		State:           models.RequestStateSearching,
		CreatedAt:       time.Now(),
		Declined:        make(map[string]bool),
	}
	l.requests[req.ID] = req

	return req.Clone()
}

// Get returns a copy of the request or ErrNotFound.
func (l *RequestLedger) Get(requestID string) (*models.EmergencyRequest, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	req, ok := l.requests[requestID]
	if !ok {
		return nil, utils.NewNotFoundError("request")
	}
	return req.Clone(), nil
}

// TryAccept is the compare-and-set commit: it transitions the request to
// accepted only if it is still searching. Every other outcome is
// ErrAlreadyResolved (lost race or cancelled in the interim) or ErrNotFound.
// First caller to reach the lock wins; there is no ordering reconstruction.
func (l *RequestLedger) TryAccept(requestID string, responder *models.Responder) (*models.EmergencyRequest, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	req, ok := l.requests[requestID]
	if !ok {
		return nil, utils.NewNotFoundError("request")
	}
	if req.State != models.RequestStateSearching {
		return nil, utils.NewAlreadyResolvedError(requestID)
	}

	assigned := *responder
	req.State = models.RequestStateAccepted
	req.AssignedResponder = &assigned

	return req.Clone(), nil
}

// Cancel transitions a request to cancelled from either live state and
// removes it from the table. It reports the request as it stood so the
// caller can free an assigned responder. Cancelling an unknown or already
// terminal request is a no-op.
func (l *RequestLedger) Cancel(requestID string) (*models.EmergencyRequest, bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.cancelLocked(requestID)
}

func (l *RequestLedger) cancelLocked(requestID string) (*models.EmergencyRequest, bool) {
	req, ok := l.requests[requestID]
	if !ok || req.State.Terminal() {
		return nil, false
	}

	now := time.Now()
	req.State = models.RequestStateCancelled
	req.ResolvedAt = &now
	delete(l.requests, requestID)

	return req.Clone(), true
}

// CancelByRequester cancels every non-terminal request owned by the
// connection. Used on requester disconnect.
func (l *RequestLedger) CancelByRequester(requesterConnID string) []*models.EmergencyRequest {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	var cancelled []*models.EmergencyRequest
	for id, req := range l.requests {
		if req.RequesterConnID != requesterConnID {
			continue
		}
		if c, ok := l.cancelLocked(id); ok {
			cancelled = append(cancelled, c)
		}
	}
	return cancelled
}

// CancelByResponder cancels the request currently assigned to the responder,
// if any. Used when a busy responder's connection drops.
func (l *RequestLedger) CancelByResponder(responderID string) (*models.EmergencyRequest, bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for id, req := range l.requests {
		if req.AssignedResponder != nil && req.AssignedResponder.ID == responderID {
			return l.cancelLocked(id)
		}
	}
	return nil, false
}

// MarkDeclined records that a responder rejected the request, so a
// re-broadcast round never re-offers to it.
func (l *RequestLedger) MarkDeclined(requestID, responderID string) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	req, ok := l.requests[requestID]
	if !ok {
		return utils.NewNotFoundError("request")
	}
	if req.State != models.RequestStateSearching {
		return utils.NewAlreadyResolvedError(requestID)
	}

	req.Declined[responderID] = true
	return nil
}

// HasDeclined reports whether the responder already rejected the request.
func (l *RequestLedger) HasDeclined(requestID, responderID string) bool {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	req, ok := l.requests[requestID]
	return ok && req.Declined[responderID]
}

// Active returns a snapshot of all non-terminal requests.
func (l *RequestLedger) Active() []*models.EmergencyRequest {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	active := make([]*models.EmergencyRequest, 0, len(l.requests))
	for _, req := range l.requests {
		active = append(active, req.Clone())
	}
	return active
}

// Len reports the number of active requests.
func (l *RequestLedger) Len() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return len(l.requests)
}
