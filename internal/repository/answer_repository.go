package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnswerRepository persists per-question answer state for attempts.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert creates or updates the answer row for (session, question). Autosave
// calls this repeatedly; last write wins.
func (r *AnswerRepository) Upsert(ctx context.Context, a *model.Answer) error {
	value, err := json.Marshal(a.Value)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO session_answers
		   (session_id, question_id, value, visited, marked_for_review, answered_at)
		 VALUES ($1, $2, $3::jsonb, $4, $5, $6)
		 ON CONFLICT (session_id, question_id) DO UPDATE
		 SET value = EXCLUDED.value,
		     visited = EXCLUDED.visited,
		     marked_for_review = EXCLUDED.marked_for_review,
		     answered_at = EXCLUDED.answered_at,
		     updated_at = NOW()`,
		a.SessionID, a.QuestionID, value, a.Visited, a.MarkedForReview, a.AnsweredAt)
	return err
}

// ListBySession returns all persisted answers for a session.
func (r *AnswerRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, question_id, value, visited, marked_for_review,
		        answered_at, is_correct, marks_obtained
		 FROM session_answers
		 WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		var raw []byte
		if err := rows.Scan(&a.ID, &a.SessionID, &a.QuestionID, &raw, &a.Visited,
			&a.MarkedForReview, &a.AnsweredAt, &a.IsCorrect, &a.MarksObtained); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			// A malformed stored value degrades to an empty answer rather
			// than failing the whole read.
			_ = json.Unmarshal(raw, &a.Value)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// RecordScores stamps the per-answer grading verdicts at finalization.
func (r *AnswerRepository) RecordScores(ctx context.Context, sessionID uuid.UUID, scores map[uuid.UUID]model.Answer) error {
	for questionID, a := range scores {
		if _, err := r.pool.Exec(ctx,
			`UPDATE session_answers
			 SET is_correct = $1, marks_obtained = $2, updated_at = NOW()
			 WHERE session_id = $3 AND question_id = $4`,
			a.IsCorrect, a.MarksObtained, sessionID, questionID); err != nil {
			return err
		}
	}
	return nil
}
