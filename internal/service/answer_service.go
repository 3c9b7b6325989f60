package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/config"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/invigilo/invigilo-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// AnswerService implements the autosave pipeline. Saves land in a Redis hash
// (one field per question, last write wins) and are queued for asynchronous
// persistence to PostgreSQL, so the student-facing save path never waits on
// the database. At finalization the buffer is merged over the persisted rows;
// the buffer always wins because it is at least as fresh.
type AnswerService struct {
	answers *repository.AnswerRepository
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewAnswerService creates a new AnswerService.
func NewAnswerService(answers *repository.AnswerRepository, rdb *redis.Client, log zerolog.Logger) *AnswerService {
	return &AnswerService{
		answers: answers,
		rdb:     rdb,
		log:     log.With().Str("component", "answer_service").Logger(),
	}
}

// bufferedAnswer is the Redis hash field payload, shared with the persist worker.
type bufferedAnswer struct {
	SessionID       uuid.UUID         `json:"session_id"`
	QuestionID      uuid.UUID         `json:"question_id"`
	Value           model.AnswerValue `json:"value"`
	Visited         bool              `json:"visited"`
	MarkedForReview bool              `json:"marked_for_review"`
	AnsweredAt      time.Time         `json:"answered_at"`
}

// Save records one answer for the session. Idempotent per (session, question):
// resubmitting the same value is a harmless overwrite.
func (s *AnswerService) Save(ctx context.Context, sess *model.Session, questionID uuid.UUID, req *model.SaveAnswerRequest) error {
	payload, err := json.Marshal(bufferedAnswer{
		SessionID:       sess.ID,
		QuestionID:      questionID,
		Value:           req.Value,
		Visited:         req.Visited,
		MarkedForReview: req.MarkedForReview,
		AnsweredAt:      time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}

	key := config.CacheKey.AttemptAnswersKey(sess.ID.String())
	if err := s.rdb.HSet(ctx, key, questionID.String(), payload).Err(); err != nil {
		return fmt.Errorf("buffer answer: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err(); err != nil {
		// The buffer already holds the value; finalization will still see it.
		s.log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("Enqueue answer persist failed")
	}
	return nil
}

// ListForScoring returns the authoritative answer set for finalization:
// persisted rows overlaid with anything still sitting in the autosave buffer.
func (s *AnswerService) ListForScoring(ctx context.Context, sessionID uuid.UUID) ([]model.Answer, error) {
	persisted, err := s.answers.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list persisted answers: %w", err)
	}

	byQuestion := make(map[uuid.UUID]model.Answer, len(persisted))
	for _, a := range persisted {
		byQuestion[a.QuestionID] = a
	}

	key := config.CacheKey.AttemptAnswersKey(sessionID.String())
	buffered, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("read answer buffer: %w", err)
	}
	for field, raw := range buffered {
		var b bufferedAnswer
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			s.log.Error().Err(err).Str("question_id", field).Msg("Skipping malformed buffered answer")
			continue
		}
		answeredAt := b.AnsweredAt
		byQuestion[b.QuestionID] = model.Answer{
			SessionID:       sessionID,
			QuestionID:      b.QuestionID,
			Value:           b.Value,
			Visited:         b.Visited,
			MarkedForReview: b.MarkedForReview,
			AnsweredAt:      &answeredAt,
		}
	}

	merged := make([]model.Answer, 0, len(byQuestion))
	for _, a := range byQuestion {
		merged = append(merged, a)
	}
	return merged, nil
}

// RecordScores stamps per-answer verdicts. Buffered-only answers may not have
// a row yet, so they are upserted first.
func (s *AnswerService) RecordScores(ctx context.Context, sessionID uuid.UUID, scores map[uuid.UUID]model.Answer) error {
	for _, a := range scores {
		if a.ID == uuid.Nil {
			if err := s.answers.Upsert(ctx, &a); err != nil {
				return fmt.Errorf("persist buffered answer: %w", err)
			}
		}
	}
	return s.answers.RecordScores(ctx, sessionID, scores)
}

// Clear drops the session's autosave buffer after finalization.
func (s *AnswerService) Clear(ctx context.Context, sessionID uuid.UUID) error {
	return s.rdb.Del(ctx, config.CacheKey.AttemptAnswersKey(sessionID.String())).Err()
}

// State returns the current answer set for a resuming client, buffer included,
// without grading fields.
func (s *AnswerService) State(ctx context.Context, sessionID uuid.UUID) ([]model.Answer, error) {
	answers, err := s.ListForScoring(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range answers {
		answers[i].IsCorrect = nil
		answers[i].MarksObtained = nil
	}
	return answers, nil
}
