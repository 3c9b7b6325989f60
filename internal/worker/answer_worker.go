package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/config"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// answerStore is the slice of the answer repository the worker writes through.
type answerStore interface {
	Upsert(ctx context.Context, a *model.Answer) error
}

// AnswerWorker consumes persist_answers_queue and UPSERTs autosaved answers
// to PostgreSQL. The Redis hash buffer stays authoritative until finalization,
// so a lagging worker never loses an answer, only delays its durability.
type AnswerWorker struct {
	answers answerStore
	rdb     redis.Cmdable
	log     zerolog.Logger
}

// NewAnswerWorker creates a new AnswerWorker.
func NewAnswerWorker(answers answerStore, rdb redis.Cmdable, log zerolog.Logger) *AnswerWorker {
	return &AnswerWorker{
		answers: answers,
		rdb:     rdb,
		log:     log.With().Str("component", "answer_worker").Logger(),
	}
}

type answerPayload struct {
	SessionID       uuid.UUID         `json:"session_id"`
	QuestionID      uuid.UUID         `json:"question_id"`
	Value           model.AnswerValue `json:"value"`
	Visited         bool              `json:"visited"`
	MarkedForReview bool              `json:"marked_for_review"`
	AnsweredAt      time.Time         `json:"answered_at"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *AnswerWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AnswerWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistAnswersQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload answerPayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		// Malformed JSON cannot be retried. Log and discard.
		w.log.Error().Err(err).Msg("Discarding malformed answer payload")
		return
	}

	if err := w.persist(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Str("session_id", payload.SessionID.String()).
			Str("question_id", payload.QuestionID.String()).
			Msg("Persist error, retrying in 5s")
		// Push back to the queue for retry. The autosave hash still holds the
		// answer, so a failed requeue delays durability rather than losing it.
		if err := w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, result[1]).Err(); err != nil {
			w.log.Error().Err(err).Msg("Failed to requeue answer; buffer hash remains authoritative")
		}
		time.Sleep(5 * time.Second)
	}
}

func (w *AnswerWorker) persist(ctx context.Context, p *answerPayload) error {
	answeredAt := p.AnsweredAt
	return w.answers.Upsert(ctx, &model.Answer{
		SessionID:       p.SessionID,
		QuestionID:      p.QuestionID,
		Value:           p.Value,
		Visited:         p.Visited,
		MarkedForReview: p.MarkedForReview,
		AnsweredAt:      &answeredAt,
	})
}

// drain processes all remaining items in the queue before shutdown.
func (w *AnswerWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistAnswersQueue).Result()
		if err != nil {
			break
		}

		var payload answerPayload
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			continue
		}
		if err := w.persist(ctx, &payload); err != nil {
			// Put it back; the buffer hash still covers finalization.
			if rerr := w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, result).Err(); rerr != nil {
				w.log.Error().Err(rerr).Msg("Failed to requeue answer during drain")
			}
			break
		}
		drained++
	}
	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining answers")
	}
}
