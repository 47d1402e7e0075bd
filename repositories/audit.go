package repositories

// AuditSink receives terminal emergency requests for bounded-time retention.
// It is write-only from the coordinator's point of view; matching logic never
// reads it back. Recording is fire-and-forget and failures are non-fatal.
type AuditSink interface {
	Record(record AuditRecord)
}

type AuditRecord struct {
	RequestID     string `json:"requestId"`
	RequesterConn string `json:"requesterConnectionId"`
	Severity      string `json:"severity"`
	Type          string `json:"type"`
	FinalState    string `json:"finalState"`
	ResponderID   string `json:"responderId,omitempty"`
	ResponderName string `json:"responderName,omitempty"`
	CreatedAt     int64  `json:"createdAt"`
	ResolvedAt    int64  `json:"resolvedAt"`
}
