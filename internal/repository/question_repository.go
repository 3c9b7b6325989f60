package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository is a read-only view of the question catalog: this core
// scores against it but never authors it.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByExam returns the active questions of an exam, answer keys included.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, type, text, marks, negative_marks, partial_marking,
		        order_num, is_active, answer_key
		 FROM questions
		 WHERE exam_id = $1 AND is_active = TRUE
		 ORDER BY order_num ASC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var rawKey []byte
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Type, &q.Text, &q.Marks, &q.NegativeMarks,
			&q.PartialMarking, &q.OrderNum, &q.IsActive, &rawKey); err != nil {
			return nil, err
		}
		if len(rawKey) > 0 {
			if err := json.Unmarshal(rawKey, &q.Key); err != nil {
				return nil, err
			}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
