package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type fakeAnswerStore struct {
	upserts []model.Answer
	err     error
}

func (f *fakeAnswerStore) Upsert(_ context.Context, a *model.Answer) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, *a)
	return nil
}

// fakeQueue implements the three list commands the worker uses over an
// in-memory slice. Everything else panics through the nil embed.
type fakeQueue struct {
	redis.Cmdable
	items   []string
	pushErr error
}

func (f *fakeQueue) LPop(_ context.Context, _ string) *redis.StringCmd {
	if len(f.items) == 0 {
		return redis.NewStringResult("", redis.Nil)
	}
	head := f.items[0]
	f.items = f.items[1:]
	return redis.NewStringResult(head, nil)
}

func (f *fakeQueue) RPush(_ context.Context, _ string, values ...interface{}) *redis.IntCmd {
	if f.pushErr != nil {
		return redis.NewIntResult(0, f.pushErr)
	}
	for _, v := range values {
		f.items = append(f.items, fmt.Sprint(v))
	}
	return redis.NewIntResult(int64(len(f.items)), nil)
}

func queuedAnswer(t *testing.T, sessionID, questionID uuid.UUID) string {
	t.Helper()
	data, err := json.Marshal(answerPayload{
		SessionID:  sessionID,
		QuestionID: questionID,
		Value:      model.AnswerValue{Selected: []string{"a"}},
		Visited:    true,
		AnsweredAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return string(data)
}

func TestAnswerWorkerDrainPersistsQueue(t *testing.T) {
	sessionID, questionID := uuid.New(), uuid.New()
	store := &fakeAnswerStore{}
	queue := &fakeQueue{items: []string{
		queuedAnswer(t, sessionID, questionID),
		"not json", // malformed entries are skipped, not retried
		queuedAnswer(t, sessionID, uuid.New()),
	}}

	w := NewAnswerWorker(store, queue, zerolog.Nop())
	w.drain(context.Background())

	if len(store.upserts) != 2 {
		t.Fatalf("upserts = %d, want 2", len(store.upserts))
	}
	if store.upserts[0].SessionID != sessionID || store.upserts[0].QuestionID != questionID {
		t.Errorf("first upsert = %+v, want session %s question %s", store.upserts[0], sessionID, questionID)
	}
	if len(queue.items) != 0 {
		t.Errorf("queue still holds %d items after drain", len(queue.items))
	}
}

func TestAnswerWorkerDrainRequeuesOnPersistFailure(t *testing.T) {
	payload := queuedAnswer(t, uuid.New(), uuid.New())
	store := &fakeAnswerStore{err: errors.New("db down")}
	queue := &fakeQueue{items: []string{payload}}

	w := NewAnswerWorker(store, queue, zerolog.Nop())
	w.drain(context.Background())

	if len(queue.items) != 1 || queue.items[0] != payload {
		t.Fatalf("payload not back on the queue: %v", queue.items)
	}
}

func TestAnswerWorkerDrainLogsFailedRequeue(t *testing.T) {
	store := &fakeAnswerStore{err: errors.New("db down")}
	queue := &fakeQueue{
		items:   []string{queuedAnswer(t, uuid.New(), uuid.New())},
		pushErr: errors.New("redis down"),
	}

	var buf bytes.Buffer
	w := NewAnswerWorker(store, queue, zerolog.New(&buf))
	w.drain(context.Background())

	if !strings.Contains(buf.String(), "Failed to requeue answer") {
		t.Errorf("requeue failure not logged: %q", buf.String())
	}
}
