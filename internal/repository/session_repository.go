package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, token, exam_id, student_id, batch_number, ip_address,
	device_fingerprint, started_at, server_end_time, status, violation_count,
	max_violations, warn_violations, last_activity_at, submitted_at, submission_type`

// SessionRepository handles exam attempt session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func scanSession(row pgx.Row) (*model.Session, error) {
	s := &model.Session{}
	err := row.Scan(
		&s.ID, &s.Token, &s.ExamID, &s.StudentID, &s.BatchNumber, &s.IPAddress,
		&s.DeviceFingerprint, &s.StartedAt, &s.ServerEndTime, &s.Status, &s.ViolationCount,
		&s.MaxViolations, &s.WarnViolations, &s.LastActivityAt, &s.SubmittedAt, &s.SubmissionType,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByToken retrieves a session by its opaque attempt token.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*model.Session, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE token = $1`, token))
}

// GetByID retrieves a session by its primary key.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id))
}

// GetByExamAndStudent retrieves the session for an exam-student pair in any
// status, or pgx.ErrNoRows when the student never attempted this exam.
func (r *SessionRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.Session, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID))
}

// Create inserts a new attempt session. The unique constraint on
// (exam_id, student_id) makes concurrent creates for the same pair collapse
// into one row; the returned bool reports whether this call won.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) (bool, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions
		   (token, exam_id, student_id, batch_number, ip_address, device_fingerprint,
		    started_at, server_end_time, status, max_violations, warn_violations, last_activity_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'ACTIVE', $9, $10, $7)
		 ON CONFLICT (exam_id, student_id) DO NOTHING
		 RETURNING id`,
		s.Token, s.ExamID, s.StudentID, s.BatchNumber, s.IPAddress, s.DeviceFingerprint,
		s.StartedAt, s.ServerEndTime, s.MaxViolations, s.WarnViolations,
	).Scan(&s.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.Status = model.SessionStatusActive
	s.LastActivityAt = s.StartedAt
	return true, nil
}

// UpdateIP rebinds the stored IP after a soft binding decision.
func (r *SessionRepository) UpdateIP(ctx context.Context, id uuid.UUID, ip string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions SET ip_address = $1, last_activity_at = NOW() WHERE id = $2`, ip, id)
	return err
}

// Touch stamps last_activity_at for heartbeat/saves.
func (r *SessionRepository) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions SET last_activity_at = NOW() WHERE id = $1`, id)
	return err
}

// Finish transitions an ACTIVE session to a terminal status. The WHERE clause
// is the compare-and-set that makes termination one-way: the caller that
// observes finished = true owns the transition; everyone else lost the race
// and must treat the session as already finalized.
func (r *SessionRepository) Finish(ctx context.Context, id uuid.UUID, to model.SessionStatus, subType model.SubmissionType, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, submission_type = $2, submitted_at = $3, last_activity_at = $3
		 WHERE id = $4 AND status = 'ACTIVE'`,
		to, subType, at, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListExpired returns ACTIVE sessions whose deadline already passed. Used by
// the reconciliation sweep; correctness never depends on it because every
// access path recomputes expiry on demand.
func (r *SessionRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE status = 'ACTIVE' AND server_end_time < $1
		 ORDER BY server_end_time ASC
		 LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

// ListActiveByExam returns all ACTIVE sessions for an exam (monitor view).
func (r *SessionRepository) ListActiveByExam(ctx context.Context, examID uuid.UUID) ([]model.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE exam_id = $1 AND status = 'ACTIVE'
		 ORDER BY started_at ASC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

func collectSessions(rows pgx.Rows) ([]model.Session, error) {
	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}
