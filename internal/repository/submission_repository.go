package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubmissionRepository stores the immutable result snapshots.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Create inserts the snapshot for a session. session_id is unique; a
// duplicate insert from a finalize race is silently dropped — the first
// snapshot is the durable one.
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO submissions
		   (session_id, exam_id, student_id, submission_type, total_marks, marks_obtained,
		    percentage, questions_attempted, correct_answers, wrong_answers, unattempted,
		    pending_manual, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (session_id) DO NOTHING`,
		s.SessionID, s.ExamID, s.StudentID, s.SubmissionType, s.TotalMarks, s.MarksObtained,
		s.Percentage, s.QuestionsAttempted, s.CorrectAnswers, s.WrongAnswers, s.Unattempted,
		s.PendingManual, s.SubmittedAt)
	return err
}

// GetBySession retrieves the snapshot for a session.
func (r *SubmissionRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.Submission, error) {
	s := &model.Submission{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, exam_id, student_id, submission_type, total_marks,
		        marks_obtained, percentage, questions_attempted, correct_answers,
		        wrong_answers, unattempted, pending_manual, submitted_at
		 FROM submissions WHERE session_id = $1`, sessionID,
	).Scan(&s.ID, &s.SessionID, &s.ExamID, &s.StudentID, &s.SubmissionType, &s.TotalMarks,
		&s.MarksObtained, &s.Percentage, &s.QuestionsAttempted, &s.CorrectAnswers,
		&s.WrongAnswers, &s.Unattempted, &s.PendingManual, &s.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}
