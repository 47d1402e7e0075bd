package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RedisAuditSink keeps terminal dispatch records in Redis under a TTL, so the
// retention stays bounded without any cleanup job of our own.
type RedisAuditSink struct {
	client    *redis.Client
	retention time.Duration
}

const auditKeyPrefix = "dispatch:audit:"

func NewRedisAuditSink(client *redis.Client, retention time.Duration) *RedisAuditSink {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &RedisAuditSink{
		client:    client,
		retention: retention,
	}
}

func (s *RedisAuditSink) Record(record AuditRecord) {
	payload, err := json.Marshal(record)
	if err != nil {
		logrus.Errorf("Failed to marshal audit record for request %s: %v", record.RequestID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.client.Set(ctx, auditKeyPrefix+record.RequestID, payload, s.retention).Err(); err != nil {
		logrus.Warnf("Failed to write audit record for request %s: %v", record.RequestID, err)
	}
}
