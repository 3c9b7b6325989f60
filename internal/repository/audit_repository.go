package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository writes audit trail entries. The table is the durable end of
// the eventually-consistent audit sink; the attempt path only ever appends,
// reads serve the proctor dashboard.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// BulkInsert writes a batch of audit events with COPY.
func (r *AuditRepository) BulkInsert(ctx context.Context, events []*model.AuditEvent) error {
	rows := make([][]interface{}, 0, len(events))
	for _, e := range events {
		rows = append(rows, []interface{}{
			e.SessionID, e.BatchID, e.ExamID, e.Actor, e.Action, e.Detail, e.IPAddress, e.RecordedAt,
		})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"audit_events"},
		[]string{"session_id", "batch_id", "exam_id", "actor", "action", "detail", "ip_address", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// ListBySession returns a page of the session's audit trail, newest first,
// plus the total entry count for pagination.
func (r *AuditRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]model.AuditEvent, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_events WHERE session_id = $1`, sessionID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, batch_id, exam_id, actor, action, detail, ip_address, recorded_at
		 FROM audit_events
		 WHERE session_id = $1
		 ORDER BY recorded_at DESC
		 LIMIT $2 OFFSET $3`, sessionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []model.AuditEvent
	for rows.Next() {
		var e model.AuditEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.BatchID, &e.ExamID,
			&e.Actor, &e.Action, &e.Detail, &e.IPAddress, &e.RecordedAt); err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}

// InsertOne writes a single audit event. Fallback path when a bulk COPY fails.
func (r *AuditRepository) InsertOne(ctx context.Context, e *model.AuditEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_events
		   (session_id, batch_id, exam_id, actor, action, detail, ip_address, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.SessionID, e.BatchID, e.ExamID, e.Actor, e.Action, e.Detail, e.IPAddress, e.RecordedAt)
	return err
}
