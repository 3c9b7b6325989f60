package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/config"
	"github.com/invigilo/invigilo-backend/internal/database"
	"github.com/invigilo/invigilo-backend/internal/logger"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Seeds a demo exam that exercises every question type, plus two batches.
// Intended for local development and manual QA against a fresh database.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	fmt.Println("=== Seeding Demo Exam ===")

	examID := uuid.New()
	_, err = pool.Exec(ctx,
		`INSERT INTO exams (id, title, duration_minutes, max_violations, warn_violations, status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		examID, "Demo Proctored Exam", 60, 5, 3, model.ExamStatusPublished)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to insert exam")
	}
	fmt.Printf("Created exam %s\n", examID)

	type seedQuestion struct {
		qtype    model.QuestionType
		text     string
		marks    float64
		negative float64
		partial  bool
		key      model.AnswerKey
	}

	questions := []seedQuestion{
		{model.QuestionTypeSingleChoice, "Capital of France?", 4, 1, false,
			model.AnswerKey{CorrectOptions: []string{"paris"}}},
		{model.QuestionTypeTrueFalse, "The earth is flat.", 2, 0.5, false,
			model.AnswerKey{CorrectOptions: []string{"false"}}},
		{model.QuestionTypeMultipleChoice, "Select the prime numbers.", 6, 2, true,
			model.AnswerKey{CorrectOptions: []string{"2", "3", "5"}}},
		{model.QuestionTypeNumerical, "Gravitational acceleration (m/s^2)?", 3, 1, false,
			model.AnswerKey{CorrectValue: 9.81, Tolerance: 0.05}},
		{model.QuestionTypeFillBlank, "___ is the largest planet; the smallest is ___.", 4, 1, true,
			model.AnswerKey{AcceptedAnswers: [][]string{{"Jupiter"}, {"Mercury"}}}},
		{model.QuestionTypeMatching, "Match each country to its capital.", 6, 0, true,
			model.AnswerKey{CorrectPairs: map[string]string{"japan": "tokyo", "kenya": "nairobi", "peru": "lima"}}},
		{model.QuestionTypeOrdering, "Order the planets from the sun.", 4, 0, true,
			model.AnswerKey{CorrectOrder: []string{"mercury", "venus", "earth", "mars"}}},
		{model.QuestionTypeHotspot, "Click the mitochondrion.", 3, 1, false,
			model.AnswerKey{Regions: []model.Region{
				{X: 10, Y: 20, Width: 40, Height: 30, Correct: true},
				{X: 100, Y: 20, Width: 40, Height: 30},
			}}},
		{model.QuestionTypeLongAnswer, "Explain photosynthesis.", 10, 0, false, model.AnswerKey{}},
		{model.QuestionTypeCode, "Write a function that reverses a string.", 10, 0, false, model.AnswerKey{}},
	}

	for i, q := range questions {
		if err := insertQuestion(ctx, pool, examID, i+1, q.qtype, q.text, q.marks, q.negative, q.partial, q.key); err != nil {
			log.Fatal().Err(err).Str("type", string(q.qtype)).Msg("Failed to insert question")
		}
	}
	fmt.Printf("Created %d questions\n", len(questions))

	for number, capacity := range map[int]int{1: 30, 2: 30} {
		_, err = pool.Exec(ctx,
			`INSERT INTO exam_batches (id, exam_id, number, max_capacity, status)
			 VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), examID, number, capacity, model.BatchStatusPending)
		if err != nil {
			log.Fatal().Err(err).Int("number", number).Msg("Failed to insert batch")
		}
	}
	fmt.Println("Created 2 pending batches (30 seats each)")
	fmt.Println("Done. Start batch 1 via the admin API to open the exam.")
}

func insertQuestion(
	ctx context.Context,
	pool *pgxpool.Pool,
	examID uuid.UUID,
	order int,
	qtype model.QuestionType,
	text string,
	marks, negative float64,
	partial bool,
	key model.AnswerKey,
) error {
	rawKey, err := json.Marshal(key)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx,
		`INSERT INTO questions
		   (id, exam_id, type, text, marks, negative_marks, partial_marking, order_num, is_active, answer_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9::jsonb)`,
		uuid.New(), examID, qtype, text, marks, negative, partial, order, rawKey)
	return err
}
