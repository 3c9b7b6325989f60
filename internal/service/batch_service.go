package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// BatchService gates cohort batches. The "one active batch per exam" rule is
// enforced with a compare-and-swap on the exam's active-batch pointer, not by
// scanning batch statuses, so two administrators starting different batches
// concurrently cannot both win.
type BatchService struct {
	batches BatchStore
	exams   ExamStore
	audit   AuditSink
	log     zerolog.Logger
}

// NewBatchService creates a new BatchService.
func NewBatchService(batches BatchStore, exams ExamStore, audit AuditSink, log zerolog.Logger) *BatchService {
	return &BatchService{
		batches: batches,
		exams:   exams,
		audit:   audit,
		log:     log.With().Str("component", "batch_service").Logger(),
	}
}

func (s *BatchService) getBatch(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	b, err := s.batches.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

// AddStudent admits one seat into the batch. The increment is a single
// guarded UPDATE; a false return means the batch was locked, not active or at
// capacity at the moment of the write, and nothing was mutated.
func (s *BatchService) AddStudent(ctx context.Context, batchID uuid.UUID, actor string) (*model.Batch, error) {
	batch, err := s.getBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	admitted, err := s.batches.Admit(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("admit seat: %w", err)
	}
	if !admitted {
		// Distinguish the refusal for the caller; the guard itself stays
		// atomic. Classify from a fresh read, not the one taken before Admit:
		// the batch may have locked or filled in between.
		batch, err = s.getBatch(ctx, batchID)
		if err != nil {
			return nil, err
		}
		switch {
		case batch.IsLocked:
			return nil, ErrBatchLocked
		case batch.Status != model.BatchStatusActive:
			return nil, ErrBatchNotActive
		default:
			return nil, ErrBatchFull
		}
	}

	s.audit.Emit(ctx, model.AuditEvent{
		BatchID:    &batch.ID,
		ExamID:     &batch.ExamID,
		Actor:      actor,
		Action:     model.AuditBatchStudentAdded,
		Detail:     fmt.Sprintf("batch=%d", batch.Number),
		RecordedAt: time.Now(),
	})

	return s.getBatch(ctx, batchID)
}

// Start activates a batch. The exam's active-batch pointer is claimed first;
// if another batch already holds it the start is refused. If the batch itself
// then refuses to transition (locked, or not pending/queued) the claim is
// rolled back.
func (s *BatchService) Start(ctx context.Context, batchID uuid.UUID, actor string) (*model.Batch, error) {
	batch, err := s.getBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.IsLocked {
		return nil, ErrBatchLocked
	}

	claimed, err := s.exams.ClaimActiveBatch(ctx, batch.ExamID, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("claim active batch: %w", err)
	}
	if !claimed {
		return nil, ErrAnotherBatchActive
	}

	now := time.Now()
	started, err := s.batches.Start(ctx, batchID, now)
	if err == nil && !started {
		err = ErrBatchNotActive
	}
	if err != nil {
		if relErr := s.exams.ReleaseActiveBatch(ctx, batch.ExamID, batch.ID); relErr != nil {
			s.log.Error().Err(relErr).Str("exam_id", batch.ExamID.String()).Msg("Release active-batch claim failed")
		}
		return nil, err
	}

	s.audit.Emit(ctx, model.AuditEvent{
		BatchID:    &batch.ID,
		ExamID:     &batch.ExamID,
		Actor:      actor,
		Action:     model.AuditBatchStarted,
		Detail:     fmt.Sprintf("batch=%d capacity=%d", batch.Number, batch.MaxCapacity),
		RecordedAt: now,
	})
	s.log.Info().
		Str("batch_id", batch.ID.String()).
		Int("number", batch.Number).
		Str("actor", actor).
		Msg("Batch started")

	return s.getBatch(ctx, batchID)
}

// Complete seals a batch: status COMPLETED and the one-way lock in a single
// guarded update. The exam's active-batch pointer is released only if it
// still points at this batch.
func (s *BatchService) Complete(ctx context.Context, batchID uuid.UUID, actor string) (*model.Batch, error) {
	batch, err := s.getBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	completed, err := s.batches.Complete(ctx, batchID, now)
	if err != nil {
		return nil, fmt.Errorf("complete batch: %w", err)
	}
	if !completed {
		return nil, ErrBatchLocked
	}

	if err := s.exams.ReleaseActiveBatch(ctx, batch.ExamID, batch.ID); err != nil {
		s.log.Error().Err(err).Str("exam_id", batch.ExamID.String()).Msg("Release active-batch pointer failed")
	}

	s.audit.Emit(ctx, model.AuditEvent{
		BatchID:    &batch.ID,
		ExamID:     &batch.ExamID,
		Actor:      actor,
		Action:     model.AuditBatchCompleted,
		Detail:     fmt.Sprintf("batch=%d", batch.Number),
		RecordedAt: now,
	})

	return s.getBatch(ctx, batchID)
}

// GetActiveBatch returns the exam's currently live batch, if any.
func (s *BatchService) GetActiveBatch(ctx context.Context, examID uuid.UUID) (*model.Batch, error) {
	b, err := s.batches.GetActiveByExam(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("get active batch: %w", err)
	}
	return b, nil
}

// GetNextPendingBatch returns the lowest-numbered batch still waiting to run.
func (s *BatchService) GetNextPendingBatch(ctx context.Context, examID uuid.UUID) (*model.Batch, error) {
	b, err := s.batches.GetNextPendingByExam(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("get next pending batch: %w", err)
	}
	return b, nil
}

// ListBatches returns all batches for an exam in number order.
func (s *BatchService) ListBatches(ctx context.Context, examID uuid.UUID) ([]model.Batch, error) {
	return s.batches.ListByExam(ctx, examID)
}
