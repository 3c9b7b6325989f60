package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamRepository reads exam configuration and owns the exam-level
// active-batch pointer.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an exam by ID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, duration_minutes, window_start, window_end,
		        max_violations, warn_violations, status, active_batch_id, created_at, updated_at
		 FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.DurationMinutes, &e.WindowStart, &e.WindowEnd,
		&e.MaxViolations, &e.WarnViolations, &e.Status, &e.ActiveBatchID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ClaimActiveBatch is the compare-and-swap behind "one batch live at a time":
// the pointer is only set when it is currently NULL, so two administrators
// starting batches concurrently cannot both win.
func (r *ExamRepository) ClaimActiveBatch(ctx context.Context, examID, batchID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams SET active_batch_id = $1, updated_at = NOW()
		 WHERE id = $2 AND active_batch_id IS NULL`, batchID, examID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ReleaseActiveBatch clears the pointer, but only if it still points at the
// batch being completed.
func (r *ExamRepository) ReleaseActiveBatch(ctx context.Context, examID, batchID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET active_batch_id = NULL, updated_at = NOW()
		 WHERE id = $1 AND active_batch_id = $2`, examID, batchID)
	return err
}
