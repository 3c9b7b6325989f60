package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/binding"
	"github.com/invigilo/invigilo-backend/internal/config"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// SessionService owns the attempt lifecycle: creation with batch admission,
// token validation with client binding checks, heartbeats and lazy expiry.
// All time authority lives server-side; client clocks are display-only.
type SessionService struct {
	sessions   SessionStore
	exams      ExamStore
	batches    BatchStore
	violations *ViolationService
	finalizer  Finalizer
	policy     binding.Policy
	audit      AuditSink
	log        zerolog.Logger

	// Fallback thresholds for exams created without their own.
	defaultMaxViolations  int
	defaultWarnViolations int
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessions SessionStore,
	exams ExamStore,
	batches BatchStore,
	violations *ViolationService,
	finalizer Finalizer,
	policy binding.Policy,
	audit AuditSink,
	cfg *config.Config,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions:              sessions,
		exams:                 exams,
		batches:               batches,
		violations:            violations,
		finalizer:             finalizer,
		policy:                policy,
		audit:                 audit,
		log:                   log.With().Str("component", "session_service").Logger(),
		defaultMaxViolations:  cfg.DefaultMaxViolations,
		defaultWarnViolations: cfg.DefaultWarnViolations,
	}
}

// Create starts a new attempt, or resumes the existing one when the student
// reconnects mid-exam. The (exam, student) pair holds at most one session
// ever: a terminal prior attempt blocks a fresh one. Admission is counted
// against the exam's active batch before the insert; if the insert loses a
// concurrent-create race the seat is released again.
func (s *SessionService) Create(ctx context.Context, req *model.CreateAttemptRequest, ip string) (*model.Session, error) {
	exam, err := s.exams.GetByID(ctx, req.ExamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotAvailable
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	now := time.Now()
	if exam.Status != model.ExamStatusPublished && exam.Status != model.ExamStatusInProgress {
		return nil, ErrExamNotAvailable
	}
	if !exam.WindowOpen(now) {
		return nil, ErrExamWindowClosed
	}

	existing, err := s.sessions.GetByExamAndStudent(ctx, req.ExamID, req.StudentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lookup existing session: %w", err)
	}
	if existing != nil {
		return s.resume(ctx, existing, req.Fingerprint, ip, now)
	}

	batch, err := s.batches.GetActiveByExam(ctx, req.ExamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBatchNotActive
		}
		return nil, fmt.Errorf("get active batch: %w", err)
	}
	if batch.IsLocked {
		return nil, ErrBatchLocked
	}
	admitted, err := s.batches.Admit(ctx, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("admit to batch: %w", err)
	}
	if !admitted {
		return nil, ErrBatchFull
	}

	sess := &model.Session{
		ID:                uuid.New(),
		Token:             uuid.NewString(),
		ExamID:            exam.ID,
		StudentID:         req.StudentID,
		BatchNumber:       batch.Number,
		IPAddress:         ip,
		DeviceFingerprint: req.Fingerprint,
		StartedAt:         now,
		ServerEndTime:     now.Add(time.Duration(exam.DurationMinutes) * time.Minute),
		Status:            model.SessionStatusActive,
		MaxViolations:     exam.MaxViolations,
		WarnViolations:    exam.WarnViolations,
		LastActivityAt:    now,
	}
	if sess.MaxViolations <= 0 {
		sess.MaxViolations = s.defaultMaxViolations
	}
	if sess.WarnViolations <= 0 {
		sess.WarnViolations = s.defaultWarnViolations
	}

	created, err := s.sessions.Create(ctx, sess)
	if err != nil {
		if relErr := s.batches.Release(ctx, batch.ID); relErr != nil {
			s.log.Error().Err(relErr).Str("batch_id", batch.ID.String()).Msg("Release batch seat failed")
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	if !created {
		// A concurrent create for the same student won; give the seat back
		// and resume through the winner's row.
		if relErr := s.batches.Release(ctx, batch.ID); relErr != nil {
			s.log.Error().Err(relErr).Str("batch_id", batch.ID.String()).Msg("Release batch seat failed")
		}
		winner, err := s.sessions.GetByExamAndStudent(ctx, req.ExamID, req.StudentID)
		if err != nil {
			return nil, fmt.Errorf("refetch after create race: %w", err)
		}
		return s.resume(ctx, winner, req.Fingerprint, ip, now)
	}

	s.audit.Emit(ctx, model.AuditEvent{
		SessionID:  &sess.ID,
		ExamID:     &sess.ExamID,
		Actor:      fmt.Sprintf("student:%d", sess.StudentID),
		Action:     model.AuditSessionCreated,
		Detail:     fmt.Sprintf("batch=%d end=%s", sess.BatchNumber, sess.ServerEndTime.Format(time.RFC3339)),
		IPAddress:  ip,
		RecordedAt: now,
	})
	s.log.Info().
		Str("session_id", sess.ID.String()).
		Int("student_id", sess.StudentID).
		Str("exam_id", sess.ExamID.String()).
		Msg("Session created")

	return sess, nil
}

// resume hands back the live session for a reconnecting student. The original
// end time stands; disconnection never buys extra time.
func (s *SessionService) resume(ctx context.Context, sess *model.Session, fingerprint, ip string, now time.Time) (*model.Session, error) {
	if sess.Status.IsTerminal() {
		return nil, ErrAlreadySubmitted
	}
	if now.After(sess.ServerEndTime) {
		if _, err := s.finalizer.Finalize(ctx, sess.ID, model.SubmissionTypeAutoTimeout, "system"); err != nil {
			return nil, fmt.Errorf("finalize expired session: %w", err)
		}
		return nil, ErrSessionExpired
	}

	sess, err := s.checkBinding(ctx, sess, fingerprint, ip)
	if err != nil {
		return nil, err
	}

	s.audit.Emit(ctx, model.AuditEvent{
		SessionID:  &sess.ID,
		ExamID:     &sess.ExamID,
		Actor:      fmt.Sprintf("student:%d", sess.StudentID),
		Action:     model.AuditSessionResumed,
		IPAddress:  ip,
		RecordedAt: now,
	})
	return sess, nil
}

// Validate re-checks a token mid-attempt: lazy expiry first, then the client
// binding policy. A fingerprint mismatch records the violation and denies
// access without revealing which check failed.
func (s *SessionService) Validate(ctx context.Context, token, fingerprint, ip string) (*model.Session, error) {
	sess, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	sess, err = s.checkBinding(ctx, sess, fingerprint, ip)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Touch(ctx, sess.ID); err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Touch session failed")
	}
	return sess, nil
}

// Resolve loads the session behind a token and applies lazy expiry: an ACTIVE
// row past its server end time is finalized as AUTO_TIMEOUT on sight, so
// expiry holds even if the background sweep lags.
func (s *SessionService) Resolve(ctx context.Context, token string) (*model.Session, error) {
	sess, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	switch {
	case sess.Status == model.SessionStatusExpired:
		return nil, ErrSessionExpired
	case sess.Status.IsTerminal():
		return nil, ErrAlreadySubmitted
	case time.Now().After(sess.ServerEndTime):
		if _, err := s.finalizer.Finalize(ctx, sess.ID, model.SubmissionTypeAutoTimeout, "system"); err != nil {
			return nil, fmt.Errorf("finalize expired session: %w", err)
		}
		return nil, ErrSessionExpired
	}
	return sess, nil
}

// checkBinding runs the injected policy against the presented identity.
// Violations the policy flags are recorded even when access is allowed; an IP
// rebind updates the stored address so only the first hop of a move is logged.
func (s *SessionService) checkBinding(ctx context.Context, sess *model.Session, fingerprint, ip string) (*model.Session, error) {
	verdict := s.policy.Check(
		binding.Identity{IP: sess.IPAddress, Fingerprint: sess.DeviceFingerprint},
		binding.Identity{IP: ip, Fingerprint: fingerprint},
	)
	if verdict.Allow && verdict.Violation == "" {
		return sess, nil
	}

	if !verdict.Allow {
		s.audit.Emit(ctx, model.AuditEvent{
			SessionID:  &sess.ID,
			ExamID:     &sess.ExamID,
			Actor:      fmt.Sprintf("student:%d", sess.StudentID),
			Action:     model.AuditDeviceMismatch,
			IPAddress:  ip,
			RecordedAt: time.Now(),
		})
	}

	receipt, err := s.violations.record(ctx, sess, verdict.Violation, "binding policy", ip)
	if err != nil {
		return nil, fmt.Errorf("record binding violation: %w", err)
	}
	sess.ViolationCount = receipt.ViolationCount

	if !verdict.Allow {
		return nil, ErrSessionDenied
	}
	if receipt.Terminated {
		return nil, ErrAlreadySubmitted
	}

	if verdict.RebindIP {
		if err := s.sessions.UpdateIP(ctx, sess.ID, ip); err != nil {
			return nil, fmt.Errorf("rebind session ip: %w", err)
		}
		s.audit.Emit(ctx, model.AuditEvent{
			SessionID:  &sess.ID,
			ExamID:     &sess.ExamID,
			Actor:      fmt.Sprintf("student:%d", sess.StudentID),
			Action:     model.AuditIPChanged,
			Detail:     fmt.Sprintf("from=%s to=%s", sess.IPAddress, ip),
			IPAddress:  ip,
			RecordedAt: time.Now(),
		})
		sess.IPAddress = ip
	}
	return sess, nil
}

// Heartbeat re-syncs the client clock. It is safe at any frequency and on
// sessions in any state: a heartbeat against a terminal or just-expired
// session reports the terminal status instead of erroring, so the client can
// transition its UI cleanly.
func (s *SessionService) Heartbeat(ctx context.Context, token string) (*model.HeartbeatResponse, error) {
	sess, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	now := time.Now()
	if sess.Status.IsTerminal() {
		return &model.HeartbeatResponse{
			ViolationCount: sess.ViolationCount,
			Terminated:     true,
			Status:         sess.Status,
		}, nil
	}
	if now.After(sess.ServerEndTime) {
		if _, err := s.finalizer.Finalize(ctx, sess.ID, model.SubmissionTypeAutoTimeout, "system"); err != nil {
			return nil, fmt.Errorf("finalize expired session: %w", err)
		}
		return &model.HeartbeatResponse{
			ViolationCount: sess.ViolationCount,
			Terminated:     true,
			Status:         model.SessionStatusExpired,
		}, nil
	}

	if err := s.sessions.Touch(ctx, sess.ID); err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Touch session failed")
	}

	return &model.HeartbeatResponse{
		RemainingSeconds: sess.RemainingTime(now).Seconds(),
		ViolationCount:   sess.ViolationCount,
		WarningIssued:    sess.ViolationCount >= sess.WarnViolations,
		Status:           sess.Status,
	}, nil
}

// Submit finalizes the attempt on the student's own request.
func (s *SessionService) Submit(ctx context.Context, token string) (*model.Submission, error) {
	sess, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	// Past the deadline the submission is a timeout, not a manual submit,
	// regardless of who asked first.
	trigger := model.SubmissionTypeManual
	if time.Now().After(sess.ServerEndTime) {
		trigger = model.SubmissionTypeAutoTimeout
	}
	return s.finalizer.Finalize(ctx, sess.ID, trigger, fmt.Sprintf("student:%d", sess.StudentID))
}

// Find looks a session up by token regardless of status. Result retrieval
// after the attempt closed needs the session even though it is terminal.
func (s *SessionService) Find(ctx context.Context, token string) (*model.Session, error) {
	sess, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}
