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

// ViolationService records proctoring violations and enforces the
// warn/terminate thresholds. Every report is acknowledged with a receipt so
// the client can surface warnings without a second round trip.
type ViolationService struct {
	sessions   SessionStore
	violations ViolationStore
	finalizer  Finalizer
	audit      AuditSink
	publisher  EventPublisher
	log        zerolog.Logger
}

// NewViolationService creates a new ViolationService.
func NewViolationService(
	sessions SessionStore,
	violations ViolationStore,
	finalizer Finalizer,
	audit AuditSink,
	publisher EventPublisher,
	log zerolog.Logger,
) *ViolationService {
	return &ViolationService{
		sessions:   sessions,
		violations: violations,
		finalizer:  finalizer,
		audit:      audit,
		publisher:  publisher,
		log:        log.With().Str("component", "violation_service").Logger(),
	}
}

// Record appends a violation against the session identified by token. A
// report against an already-terminal session is a no-op acknowledged with a
// terminated receipt, so a burst of reports racing the termination does not
// error out on the client. Unknown violation types are stored as-is: the
// proctoring frontend evolves faster than the backend enum.
func (s *ViolationService) Record(ctx context.Context, token string, req *model.ReportViolationRequest, ip string) (*model.ViolationReceipt, error) {
	sess, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if sess.Status.IsTerminal() {
		return &model.ViolationReceipt{
			ViolationCount: sess.ViolationCount,
			Terminated:     true,
		}, nil
	}

	if !req.Type.IsKnown() {
		s.log.Warn().
			Str("session_id", sess.ID.String()).
			Str("type", string(req.Type)).
			Msg("Unrecognized violation type reported")
	}

	return s.record(ctx, sess, req.Type, req.Detail, ip)
}

// record is the shared append path, also used by the session manager when a
// binding check injects an IP_CHANGE or BROWSER_CHANGE violation.
func (s *ViolationService) record(ctx context.Context, sess *model.Session, vtype model.ViolationType, detail, ip string) (*model.ViolationReceipt, error) {
	v := &model.Violation{
		SessionID:  sess.ID,
		Type:       vtype,
		Detail:     detail,
		IPAddress:  ip,
		RecordedAt: time.Now(),
	}
	count, err := s.violations.Append(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("append violation: %w", err)
	}

	s.audit.Emit(ctx, model.AuditEvent{
		SessionID:  &sess.ID,
		ExamID:     &sess.ExamID,
		Actor:      fmt.Sprintf("student:%d", sess.StudentID),
		Action:     model.AuditViolationRecorded,
		Detail:     fmt.Sprintf("type=%s count=%d", vtype, count),
		IPAddress:  ip,
		RecordedAt: v.RecordedAt,
	})
	s.publisher.Publish(ctx, sess.ExamID, MonitorEvent{
		Kind:           "violation",
		SessionID:      sess.ID,
		StudentID:      sess.StudentID,
		ViolationType:  vtype,
		ViolationCount: count,
		Status:         sess.Status,
	})

	receipt := &model.ViolationReceipt{
		ViolationCount: count,
		WarningIssued:  count >= sess.WarnViolations && count < sess.MaxViolations,
	}

	if count >= sess.MaxViolations {
		receipt.Terminated = true
		receipt.WarningIssued = false
		if _, err := s.finalizer.Finalize(ctx, sess.ID, model.SubmissionTypeAutoViolation, "system"); err != nil {
			return nil, fmt.Errorf("terminate on violation cap: %w", err)
		}
		s.publisher.Publish(ctx, sess.ExamID, MonitorEvent{
			Kind:           "terminated",
			SessionID:      sess.ID,
			StudentID:      sess.StudentID,
			ViolationCount: count,
			Status:         model.SessionStatusViolationTerminated,
		})
		s.log.Warn().
			Str("session_id", sess.ID.String()).
			Int("count", count).
			Str("type", string(vtype)).
			Msg("Session terminated on violation cap")
	}

	return receipt, nil
}

// History lists the violations recorded against a session, newest last.
func (s *ViolationService) History(ctx context.Context, sessionID uuid.UUID) ([]model.Violation, error) {
	return s.violations.ListBySession(ctx, sessionID)
}
