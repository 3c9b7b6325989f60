package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ViolationRepository handles append-only violation records.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

// Append inserts a violation and returns the new total for the session.
// The whole thing runs in one transaction holding the session row lock, so
// concurrent reports for the same session are linearized and the
// violation_count column can never drift from the record count.
func (r *ViolationRepository) Append(ctx context.Context, v *model.Violation) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize reports for this session.
	if _, err := tx.Exec(ctx,
		`SELECT 1 FROM exam_sessions WHERE id = $1 FOR UPDATE`, v.SessionID); err != nil {
		return 0, fmt.Errorf("lock session: %w", err)
	}

	if err := tx.QueryRow(ctx,
		`INSERT INTO session_violations (session_id, type, detail, ip_address)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, recorded_at`,
		v.SessionID, v.Type, v.Detail, v.IPAddress,
	).Scan(&v.ID, &v.RecordedAt); err != nil {
		return 0, fmt.Errorf("insert violation: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM session_violations WHERE session_id = $1`, v.SessionID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count violations: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE exam_sessions SET violation_count = $1, last_activity_at = NOW() WHERE id = $2`,
		count, v.SessionID); err != nil {
		return 0, fmt.Errorf("update counter: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return count, nil
}

// ListBySession returns a session's violations in report order.
func (r *ViolationRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Violation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, type, detail, ip_address, recorded_at
		 FROM session_violations
		 WHERE session_id = $1
		 ORDER BY recorded_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var violations []model.Violation
	for rows.Next() {
		var v model.Violation
		if err := rows.Scan(&v.ID, &v.SessionID, &v.Type, &v.Detail, &v.IPAddress, &v.RecordedAt); err != nil {
			return nil, err
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}
