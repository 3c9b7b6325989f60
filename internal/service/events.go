package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/config"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisAuditSink queues audit events for the audit worker to persist in
// batches. The queue is the boundary of the eventually-consistent audit
// trail: a failed push is logged and dropped, never bubbled into the
// student-facing request.
type RedisAuditSink struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisAuditSink creates a new RedisAuditSink.
func NewRedisAuditSink(rdb *redis.Client, log zerolog.Logger) *RedisAuditSink {
	return &RedisAuditSink{
		rdb: rdb,
		log: log.With().Str("component", "audit_sink").Logger(),
	}
}

// Emit pushes one audit event onto the persist queue.
func (s *RedisAuditSink) Emit(ctx context.Context, e model.AuditEvent) {
	raw, err := json.Marshal(e)
	if err != nil {
		s.log.Error().Err(err).Str("action", string(e.Action)).Msg("Marshal audit event failed")
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAuditQueue, raw).Err(); err != nil {
		s.log.Error().Err(err).Str("action", string(e.Action)).Msg("Queue audit event failed")
	}
}

// RedisEventPublisher fans attempt events out over the per-exam monitor
// PubSub channel consumed by the proctor WebSocket stream.
type RedisEventPublisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisEventPublisher creates a new RedisEventPublisher.
func NewRedisEventPublisher(rdb *redis.Client, log zerolog.Logger) *RedisEventPublisher {
	return &RedisEventPublisher{
		rdb: rdb,
		log: log.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish sends one event to the exam's monitor channel. Best effort: a
// missed live event is recoverable from the monitor snapshot endpoint.
func (p *RedisEventPublisher) Publish(ctx context.Context, examID uuid.UUID, event any) {
	raw, err := json.Marshal(event)
	if err != nil {
		p.log.Error().Err(err).Msg("Marshal monitor event failed")
		return
	}
	if err := p.rdb.Publish(ctx, config.CacheKey.ExamMonitorChannel(examID.String()), raw).Err(); err != nil {
		p.log.Error().Err(err).Msg("Publish monitor event failed")
	}
}

// MonitorEvent is the payload published to proctor monitor streams.
type MonitorEvent struct {
	Kind           string              `json:"kind"` // "violation" | "terminated" | "submitted"
	SessionID      uuid.UUID           `json:"session_id"`
	StudentID      int                 `json:"student_id"`
	ViolationType  model.ViolationType `json:"violation_type,omitempty"`
	ViolationCount int                 `json:"violation_count,omitempty"`
	Status         model.SessionStatus `json:"status,omitempty"`
}
