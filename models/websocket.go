package models

import (
	"time"
)

// WSMessage is the envelope for every frame in both directions.
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// WSRequest is the inbound shape before the payload is decoded per type.
type WSRequest struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	RequestID string                 `json:"requestId,omitempty"`
	Timestamp time.Time              `json:"timestamp,omitempty"`
}

// Inbound event types.
const (
	WSEventResponderRegister = "responder.register"
	WSEventResponderLocation = "responder.updateLocation"
	WSEventResponderAccept   = "responder.accept"
	WSEventResponderReject   = "responder.reject"
	WSEventFacilityRegister  = "facility.register"
	WSEventNewRequest        = "requester.newRequest"
	WSEventRequesterCancel   = "requester.cancel"
	WSEventPing              = "ping"
)

// Outbound event types.
const (
	WSEventRequestCreated      = "request.created"
	WSEventRequestOffer        = "request.offer"
	WSEventNoResponders        = "request.noResponders"
	WSEventRequestMatched      = "request.matched"
	WSEventMatchConfirmed      = "request.matchConfirmed"
	WSEventRequestCancelled    = "request.cancelled"
	WSEventIncomingPatient     = "facility.incomingPatient"
	WSEventResponderRegistered = "responder.registered"
	WSEventFacilityRegistered  = "facility.registered"
	WSEventError               = "error"
	WSEventPong                = "pong"
)

// Error ack codes.
const (
	WSErrorMalformedInput  = "MALFORMED_INPUT"
	WSErrorNotFound        = "NOT_FOUND"
	WSErrorAlreadyResolved = "ALREADY_RESOLVED"
	WSErrorRateLimit       = "RATE_LIMIT"
)

// Outbound payloads.

type WSRequestCreated struct {
	RequestID string       `json:"requestId"`
	State     RequestState `json:"state"`
}

type WSRequestOffer struct {
	RequestID  string   `json:"requestId"`
	Location   Location `json:"location"`
	Severity   Severity `json:"severity"`
	Type       string   `json:"type"`
	DistanceKm float64  `json:"distanceKm"`
	ETA        string   `json:"eta"`
}

type WSNoResponders struct {
	RequestID string `json:"requestId"`
}

type WSRequestMatched struct {
	RequestID     string `json:"requestId"`
	ResponderName string `json:"responderName"`
	Vehicle       string `json:"vehicle"`
	ETA           string `json:"eta"`
}

type WSMatchConfirmed struct {
	RequestID string `json:"requestId"`
}

type WSRequestCancelled struct {
	RequestID string `json:"requestId"`
}

type WSIncomingPatient struct {
	RequestID string   `json:"requestId"`
	Severity  Severity `json:"severity"`
	ETA       string   `json:"eta"`
	Vehicle   string   `json:"vehicle"`
}

type WSRegistered struct {
	ID   string         `json:"id"`
	Role ConnectionRole `json:"role"`
}

type WSError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WSHubStats reports live connection-level counters.
type WSHubStats struct {
	TotalConnections  int64         `json:"totalConnections"`
	ActiveConnections int           `json:"activeConnections"`
	MessagesSent      int64         `json:"messagesSent"`
	MessagesDropped   int64         `json:"messagesDropped"`
	Uptime            time.Duration `json:"uptime"`
	LastUpdate        time.Time     `json:"lastUpdate"`
}
