package repositories

import (
	"sync"
)

// MemoryAuditSink is a bounded in-memory ring of terminal dispatch records.
// Used when Redis is not configured, and in tests.
type MemoryAuditSink struct {
	mutex    sync.Mutex
	records  []AuditRecord
	capacity int
}

func NewMemoryAuditSink(capacity int) *MemoryAuditSink {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryAuditSink{
		capacity: capacity,
	}
}

func (s *MemoryAuditSink) Record(record AuditRecord) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.records = append(s.records, record)
	if len(s.records) > s.capacity {
		s.records = s.records[len(s.records)-s.capacity:]
	}
}

// Records returns a snapshot of retained records, oldest first.
func (s *MemoryAuditSink) Records() []AuditRecord {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	snapshot := make([]AuditRecord, len(s.records))
	copy(snapshot, s.records)
	return snapshot
}

func (s *MemoryAuditSink) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.records)
}
