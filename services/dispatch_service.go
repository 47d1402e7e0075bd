package services

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"lifeline/models"
	"lifeline/repositories"
	"lifeline/utils"
)

// DispatchService orchestrates the full request lifecycle: it ingests new
// emergency requests, fans offers out to available responders, commits the
// first acceptance, notifies all interested parties, and owns the cleanup
// paths for cancellation and disconnects. All request-state transitions go
// through the ledger's locked operations, so at most one responder is ever
// committed to a request.
type DispatchService struct {
	registry  *ConnectionRegistry
	ledger    *repositories.RequestLedger
	audit     repositories.AuditSink
	validator *utils.ValidationService

	avgSpeedKmh float64

	statsMutex sync.Mutex
	stats      models.DispatchStats
}

func NewDispatchService(registry *ConnectionRegistry, ledger *repositories.RequestLedger, audit repositories.AuditSink, avgSpeedKmh float64) *DispatchService {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = 40
	}
	return &DispatchService{
		registry:    registry,
		ledger:      ledger,
		audit:       audit,
		validator:   utils.NewValidationService(),
		avgSpeedKmh: avgSpeedKmh,
	}
}

// HandleConnect tracks a freshly opened connection. The connection has no
// role yet; it may register one later, or never.
func (ds *DispatchService) HandleConnect(conn ClientConn) {
	ds.registry.Attach(conn)
}

// HandleDisconnect is the single, total cleanup path for a closing
// connection, regardless of which role (if any) it held. It removes the role
// record, cancels any request the connection owned as requester, and — when
// the connection was a busy responder — cancels the orphaned assignment and
// tells the requester.
func (ds *DispatchService) HandleDisconnect(connID string) {
	responder := ds.registry.Detach(connID)

	// A busy responder vanishing leaves its accepted request without a
	// unit. Treat that as a cancellation and let the requester know, so
	// they can retry instead of waiting for an ambulance that will never
	// arrive.
	if responder != nil && responder.Availability == models.AvailabilityBusy {
		if req, ok := ds.ledger.CancelByResponder(responder.ID); ok {
			ds.recordTerminal(req)
			ds.incCancelled()
			ds.notifyConn(req.RequesterConnID, models.WSEventRequestCancelled, models.WSRequestCancelled{RequestID: req.ID})
			logrus.Warnf("Responder %s disconnected while assigned, cancelled request %s", responder.ID, req.ID)
		}
	}

	for _, req := range ds.ledger.CancelByRequester(connID) {
		ds.recordTerminal(req)
		ds.incCancelled()
		if req.AssignedResponder != nil {
			ds.freeResponder(req.AssignedResponder)
			ds.notifyConn(req.AssignedResponder.ConnectionID, models.WSEventRequestCancelled, models.WSRequestCancelled{RequestID: req.ID})
		}
		logrus.Infof("Requester disconnected, cancelled request %s", req.ID)
	}
}

// RegisterResponder binds the responder role to the connection, replacing
// any prior record on the same connection.
func (ds *DispatchService) RegisterResponder(conn ClientConn, req models.RegisterResponderRequest) (*models.Responder, error) {
	if err := ds.validator.Validate(req); err != nil {
		return nil, err
	}
	if !utils.IsValidCoordinate(req.Location.Latitude, req.Location.Longitude) {
		return nil, utils.NewMalformedInputError("location is not a valid coordinate")
	}

	responder := ds.registry.RegisterResponder(conn.ConnectionID(), req.Name, req.Vehicle, req.Location)
	logrus.Infof("Responder registered: %s (%s) on connection %s", responder.Name, responder.ID, conn.ConnectionID())
	return responder, nil
}

// RegisterFacility binds the facility role to the connection.
func (ds *DispatchService) RegisterFacility(conn ClientConn, req models.RegisterFacilityRequest) (*models.Facility, error) {
	if err := ds.validator.Validate(req); err != nil {
		return nil, err
	}

	facility := ds.registry.RegisterFacility(conn.ConnectionID(), req.Name, req.Beds, req.ICUBeds)
	logrus.Infof("Facility registered: %s (%s) on connection %s", facility.Name, facility.ID, conn.ConnectionID())
	return facility, nil
}

// UpdateLocation refreshes a responder's last-known position. A connection
// without a responder record is ignored.
func (ds *DispatchService) UpdateLocation(connID string, req models.UpdateLocationRequest) error {
	if err := ds.validator.Validate(req); err != nil {
		return err
	}
	if !utils.IsValidCoordinate(req.Location.Latitude, req.Location.Longitude) {
		return utils.NewMalformedInputError("location is not a valid coordinate")
	}

	ds.registry.UpdateResponderLocation(connID, req.Location)
	return nil
}

// NewRequest opens an emergency request for the connection, acknowledges the
// requester, and fans offers out to every available responder with a
// personalized distance estimate. An empty eligible set leaves the request
// searching and tells the requester that no responders were found.
func (ds *DispatchService) NewRequest(conn ClientConn, req models.NewEmergencyRequest) (*models.EmergencyRequest, error) {
	if err := ds.validator.Validate(req); err != nil {
		return nil, err
	}
	if !utils.IsValidCoordinate(req.Location.Latitude, req.Location.Longitude) {
		return nil, utils.NewMalformedInputError("location is not a valid coordinate")
	}

	request := ds.ledger.Create(conn.ConnectionID(), req.Location, req.Severity, req.Type)
	ds.incCreated()

	conn.Send(wsMessage(models.WSEventRequestCreated, models.WSRequestCreated{
		RequestID: request.ID,
		State:     request.State,
	}))

	logrus.Infof("Emergency request %s created (severity=%s type=%s)", request.ID, request.Severity, request.Type)

	if offered := ds.broadcastOffers(request); offered == 0 {
		ds.incEmpty()
		conn.Send(wsMessage(models.WSEventNoResponders, models.WSNoResponders{RequestID: request.ID}))
		logrus.Warnf("No available responders for request %s, staying open", request.ID)
	}

	return request, nil
}

// Accept attempts to commit the responder on this connection to the request.
// The responder is claimed busy first, then the ledger's compare-and-set
// commits the request; first caller through wins and everyone else gets
// ErrAlreadyResolved. A connection without a responder record, or one whose
// responder is already holding an assignment, is ignored.
func (ds *DispatchService) Accept(conn ClientConn, requestID string) error {
	responder, ok := ds.registry.ResponderByConnection(conn.ConnectionID())
	if !ok {
		logrus.Warnf("Accept for request %s from unregistered connection %s, ignoring", requestID, conn.ConnectionID())
		return nil
	}

	// Claim the responder before committing the request, so a responder
	// holding an accepted request can never take a second one.
	if !ds.registry.TrySetBusy(responder.ConnectionID) {
		logrus.Warnf("Responder %s is already assigned, ignoring accept for request %s", responder.ID, requestID)
		return nil
	}
	responder.Availability = models.AvailabilityBusy

	request, err := ds.ledger.TryAccept(requestID, responder)
	if err != nil {
		// A request that already left the ledger (cancelled, or resolved
		// and removed) is indistinguishable from a lost race to the
		// accepting responder. Release the claim taken above.
		ds.registry.FreeResponder(responder.ConnectionID, responder.ID)
		ds.incLost()
		return utils.NewAlreadyResolvedError(requestID)
	}

	ds.incMatched()

	eta := utils.EstimateETA(
		utils.DistanceKm(responder.Location.Latitude, responder.Location.Longitude, request.Location.Latitude, request.Location.Longitude),
		ds.avgSpeedKmh,
	)

	ds.notifyConn(request.RequesterConnID, models.WSEventRequestMatched, models.WSRequestMatched{
		RequestID:     request.ID,
		ResponderName: responder.Name,
		Vehicle:       responder.Vehicle,
		ETA:           eta,
	})

	conn.Send(wsMessage(models.WSEventMatchConfirmed, models.WSMatchConfirmed{RequestID: request.ID}))

	// Facility selection is not modeled; every registered facility hears
	// about the incoming patient.
	incoming := models.WSIncomingPatient{
		RequestID: request.ID,
		Severity:  request.Severity,
		ETA:       eta,
		Vehicle:   responder.Vehicle,
	}
	for _, facility := range ds.registry.Facilities() {
		ds.notifyConn(facility.ConnectionID, models.WSEventIncomingPatient, incoming)
	}

	logrus.Infof("Request %s matched to responder %s (%s)", request.ID, responder.Name, responder.ID)
	return nil
}

// Reject records the responder's refusal and re-offers the request to the
// remaining eligible responders. Best-effort: a request that is no longer
// searching makes this a no-op.
func (ds *DispatchService) Reject(conn ClientConn, requestID string) error {
	responder, ok := ds.registry.ResponderByConnection(conn.ConnectionID())
	if !ok {
		return nil
	}

	if err := ds.ledger.MarkDeclined(requestID, responder.ID); err != nil {
		return nil
	}

	request, err := ds.ledger.Get(requestID)
	if err != nil {
		return nil
	}

	logrus.Infof("Responder %s rejected request %s, re-broadcasting", responder.ID, requestID)
	ds.broadcastOffers(request)
	return nil
}

// Cancel closes the request on behalf of its requester. Cancelling an
// unknown or already terminal request is a no-op; cancelling someone else's
// request is ignored.
func (ds *DispatchService) Cancel(connID, requestID string) error {
	request, err := ds.ledger.Get(requestID)
	if err != nil {
		return nil
	}
	if request.RequesterConnID != connID {
		logrus.Warnf("Connection %s tried to cancel request %s it does not own", connID, requestID)
		return nil
	}

	cancelled, ok := ds.ledger.Cancel(requestID)
	if !ok {
		return nil
	}

	ds.recordTerminal(cancelled)
	ds.incCancelled()

	if cancelled.AssignedResponder != nil {
		ds.freeResponder(cancelled.AssignedResponder)
		ds.notifyConn(cancelled.AssignedResponder.ConnectionID, models.WSEventRequestCancelled, models.WSRequestCancelled{RequestID: cancelled.ID})
	}

	logrus.Infof("Request %s cancelled by requester", requestID)
	return nil
}

// Stats returns a snapshot of cumulative coordinator counters.
func (ds *DispatchService) Stats() models.DispatchStats {
	ds.statsMutex.Lock()
	defer ds.statsMutex.Unlock()

	stats := ds.stats
	stats.ActiveRequests = ds.ledger.Len()
	return stats
}

// ActiveRequests exposes the ledger's live snapshot for the ops API.
func (ds *DispatchService) ActiveRequests() []*models.EmergencyRequest {
	return ds.ledger.Active()
}

// Responders exposes the registry's responder snapshot for the ops API.
func (ds *DispatchService) Responders() []models.Responder {
	return ds.registry.Responders()
}

// Facilities exposes the registry's facility snapshot for the ops API.
func (ds *DispatchService) Facilities() []models.Facility {
	return ds.registry.Facilities()
}

// broadcastOffers sends a personalized offer to every available responder
// that has not declined this request. Returns the number of responders that
// were eligible at snapshot time; delivery itself is best-effort.
func (ds *DispatchService) broadcastOffers(request *models.EmergencyRequest) int {
	eligible := 0
	for _, responder := range ds.registry.AvailableResponders() {
		if ds.ledger.HasDeclined(request.ID, responder.ID) {
			continue
		}
		eligible++

		distance := utils.DistanceKm(responder.Location.Latitude, responder.Location.Longitude, request.Location.Latitude, request.Location.Longitude)
		offer := models.WSRequestOffer{
			RequestID:  request.ID,
			Location:   request.Location,
			Severity:   request.Severity,
			Type:       request.Type,
			DistanceKm: distance,
			ETA:        utils.EstimateETA(distance, ds.avgSpeedKmh),
		}

		if ds.notifyConn(responder.ConnectionID, models.WSEventRequestOffer, offer) {
			ds.incOffered()
		}
	}
	return eligible
}

// notifyConn sends fire-and-forget to a connection that may already be gone.
func (ds *DispatchService) notifyConn(connID, eventType string, data interface{}) bool {
	conn, ok := ds.registry.Conn(connID)
	if !ok {
		return false
	}
	return conn.Send(wsMessage(eventType, data))
}

func (ds *DispatchService) freeResponder(responder *models.Responder) {
	ds.registry.FreeResponder(responder.ConnectionID, responder.ID)
}

func (ds *DispatchService) recordTerminal(request *models.EmergencyRequest) {
	if ds.audit == nil {
		return
	}

	record := repositories.AuditRecord{
		RequestID:     request.ID,
		RequesterConn: request.RequesterConnID,
		Severity:      string(request.Severity),
		Type:          request.Type,
		FinalState:    string(request.State),
		CreatedAt:     request.CreatedAt.Unix(),
	}
	if request.ResolvedAt != nil {
		record.ResolvedAt = request.ResolvedAt.Unix()
	}
	if request.AssignedResponder != nil {
		record.ResponderID = request.AssignedResponder.ID
		record.ResponderName = request.AssignedResponder.Name
	}
	ds.audit.Record(record)
}

func wsMessage(eventType string, data interface{}) models.WSMessage {
	return models.WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func (ds *DispatchService) incCreated()   { ds.bump(func(s *models.DispatchStats) { s.RequestsCreated++ }) }
func (ds *DispatchService) incMatched()   { ds.bump(func(s *models.DispatchStats) { s.RequestsMatched++ }) }
func (ds *DispatchService) incCancelled() { ds.bump(func(s *models.DispatchStats) { s.RequestsCancelled++ }) }
func (ds *DispatchService) incOffered()   { ds.bump(func(s *models.DispatchStats) { s.OffersSent++ }) }
func (ds *DispatchService) incLost()      { ds.bump(func(s *models.DispatchStats) { s.AcceptsLost++ }) }
func (ds *DispatchService) incEmpty()     { ds.bump(func(s *models.DispatchStats) { s.EmptyBroadcasts++ }) }

func (ds *DispatchService) bump(fn func(*models.DispatchStats)) {
	ds.statsMutex.Lock()
	fn(&ds.stats)
	ds.statsMutex.Unlock()
}
