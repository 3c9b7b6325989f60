package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const batchColumns = `id, exam_id, number, max_capacity, current_count, status,
	is_locked, started_at, completed_at, created_at`

// BatchRepository handles cohort batch data access.
type BatchRepository struct {
	pool *pgxpool.Pool
}

// NewBatchRepository creates a new BatchRepository.
func NewBatchRepository(pool *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{pool: pool}
}

func scanBatch(row pgx.Row) (*model.Batch, error) {
	b := &model.Batch{}
	err := row.Scan(&b.ID, &b.ExamID, &b.Number, &b.MaxCapacity, &b.CurrentCount,
		&b.Status, &b.IsLocked, &b.StartedAt, &b.CompletedAt, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetByID retrieves a batch by ID.
func (r *BatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	return scanBatch(r.pool.QueryRow(ctx,
		`SELECT `+batchColumns+` FROM exam_batches WHERE id = $1`, id))
}

// Admit atomically admits one student: the guard conditions live in the WHERE
// clause so the counter can neither exceed capacity nor move on a locked or
// inactive batch, no matter how many admissions race.
func (r *BatchRepository) Admit(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_batches
		 SET current_count = current_count + 1
		 WHERE id = $1
		   AND is_locked = FALSE
		   AND status = 'ACTIVE'
		   AND current_count < max_capacity`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Release undoes one admission. Used when the admitting caller loses the
// session-create race, so the counter stays equal to real admissions.
func (r *BatchRepository) Release(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_batches
		 SET current_count = current_count - 1
		 WHERE id = $1 AND is_locked = FALSE AND current_count > 0`, id)
	return err
}

// Start transitions a pending/queued batch to ACTIVE. Locked batches never move.
func (r *BatchRepository) Start(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_batches
		 SET status = 'ACTIVE', started_at = $1
		 WHERE id = $2 AND is_locked = FALSE AND status IN ('PENDING', 'QUEUED')`, at, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Complete seals a batch: COMPLETED plus the one-way lock in a single update.
func (r *BatchRepository) Complete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_batches
		 SET status = 'COMPLETED', is_locked = TRUE, completed_at = $1
		 WHERE id = $2 AND is_locked = FALSE`, at, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetActiveByExam returns the exam's currently ACTIVE batch, or pgx.ErrNoRows.
func (r *BatchRepository) GetActiveByExam(ctx context.Context, examID uuid.UUID) (*model.Batch, error) {
	return scanBatch(r.pool.QueryRow(ctx,
		`SELECT `+batchColumns+` FROM exam_batches
		 WHERE exam_id = $1 AND status = 'ACTIVE'
		 ORDER BY number ASC LIMIT 1`, examID))
}

// GetNextPendingByExam returns the lowest-numbered batch still waiting to run.
func (r *BatchRepository) GetNextPendingByExam(ctx context.Context, examID uuid.UUID) (*model.Batch, error) {
	return scanBatch(r.pool.QueryRow(ctx,
		`SELECT `+batchColumns+` FROM exam_batches
		 WHERE exam_id = $1 AND status IN ('PENDING', 'QUEUED') AND is_locked = FALSE
		 ORDER BY number ASC LIMIT 1`, examID))
}

// ListByExam returns all batches of an exam in cohort order.
func (r *BatchRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Batch, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+batchColumns+` FROM exam_batches
		 WHERE exam_id = $1 ORDER BY number ASC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []model.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}
