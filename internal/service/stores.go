package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
)

// Sentinel errors returned by the attempt services. Handlers map these to
// typed response codes; anything else is an internal error.
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session time expired")
	ErrSessionDenied      = errors.New("session binding check failed")
	ErrAlreadySubmitted   = errors.New("session already submitted")
	ErrExamNotAvailable   = errors.New("exam not available")
	ErrExamWindowClosed   = errors.New("exam window closed")
	ErrBatchNotFound      = errors.New("batch not found")
	ErrBatchLocked        = errors.New("batch locked")
	ErrBatchFull          = errors.New("batch at capacity")
	ErrBatchNotActive     = errors.New("batch not active")
	ErrAnotherBatchActive = errors.New("another batch already active for exam")
)

// SessionStore is the persistence surface the session manager needs. The
// pgx repository implements it; tests use an in-memory fake.
type SessionStore interface {
	GetByToken(ctx context.Context, token string) (*model.Session, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.Session, error)
	// Create inserts a session; returns false when a session for the
	// (exam, student) pair already exists (concurrent create lost the race).
	Create(ctx context.Context, s *model.Session) (bool, error)
	UpdateIP(ctx context.Context, id uuid.UUID, ip string) error
	Touch(ctx context.Context, id uuid.UUID) error
	// Finish is the one-way compare-and-set out of ACTIVE. Returns true only
	// for the caller that owns the transition.
	Finish(ctx context.Context, id uuid.UUID, to model.SessionStatus, subType model.SubmissionType, at time.Time) (bool, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Session, error)
	ListActiveByExam(ctx context.Context, examID uuid.UUID) ([]model.Session, error)
}

// ViolationStore appends violation records. Append must update the session's
// violation counter in the same transaction so the two never drift.
type ViolationStore interface {
	Append(ctx context.Context, v *model.Violation) (int, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Violation, error)
}

// ExamStore reads exam configuration and owns the active-batch pointer CAS.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ClaimActiveBatch(ctx context.Context, examID, batchID uuid.UUID) (bool, error)
	ReleaseActiveBatch(ctx context.Context, examID, batchID uuid.UUID) error
}

// BatchStore mutates cohort batches through guarded atomic updates.
type BatchStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Batch, error)
	Admit(ctx context.Context, id uuid.UUID) (bool, error)
	Release(ctx context.Context, id uuid.UUID) error
	Start(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	Complete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	GetActiveByExam(ctx context.Context, examID uuid.UUID) (*model.Batch, error)
	GetNextPendingByExam(ctx context.Context, examID uuid.UUID) (*model.Batch, error)
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Batch, error)
}

// QuestionStore is the read-only question catalog.
type QuestionStore interface {
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
}

// SubmissionStore persists immutable result snapshots.
type SubmissionStore interface {
	Create(ctx context.Context, s *model.Submission) error
	GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.Submission, error)
}

// AnswerSource supplies the answers to grade at finalization, merging the
// autosave buffer over persisted rows, and records the grading verdicts.
type AnswerSource interface {
	ListForScoring(ctx context.Context, sessionID uuid.UUID) ([]model.Answer, error)
	RecordScores(ctx context.Context, sessionID uuid.UUID, scores map[uuid.UUID]model.Answer) error
	Clear(ctx context.Context, sessionID uuid.UUID) error
}

// AuditReader pages through the persisted audit trail for the proctor
// dashboard. The write side goes through AuditSink.
type AuditReader interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]model.AuditEvent, int, error)
}

// AuditSink receives audit trail entries. The sink is write-only and
// eventually consistent; failures are logged, never propagated to the
// student-facing path.
type AuditSink interface {
	Emit(ctx context.Context, e model.AuditEvent)
}

// Finalizer seals a session and returns its result snapshot. The session and
// violation services trigger it on timeout or violation cap; the submission
// service implements it.
type Finalizer interface {
	Finalize(ctx context.Context, sessionID uuid.UUID, trigger model.SubmissionType, actor string) (*model.Submission, error)
}

// EventPublisher fans live attempt events out to proctor monitor streams.
type EventPublisher interface {
	Publish(ctx context.Context, examID uuid.UUID, event any)
}
