package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/invigilo/invigilo-backend/internal/scoring"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// SubmissionService finalizes attempts: it scores every answer once, writes
// the immutable result snapshot and seals the session. Finalize is the single
// funnel for every termination path — manual submit, timeout, violation
// termination and admin force — so idempotency lives in exactly one place.
type SubmissionService struct {
	sessions    SessionStore
	questions   QuestionStore
	answers     AnswerSource
	submissions SubmissionStore
	audit       AuditSink
	publisher   EventPublisher
	locks       *keyedMutex
	log         zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	sessions SessionStore,
	questions QuestionStore,
	answers AnswerSource,
	submissions SubmissionStore,
	audit AuditSink,
	publisher EventPublisher,
	log zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		sessions:    sessions,
		questions:   questions,
		answers:     answers,
		submissions: submissions,
		audit:       audit,
		publisher:   publisher,
		locks:       newKeyedMutex(),
		log:         log.With().Str("component", "submission_service").Logger(),
	}
}

// terminalStatusFor maps the finalization trigger to the terminal session status.
func terminalStatusFor(trigger model.SubmissionType) model.SessionStatus {
	switch trigger {
	case model.SubmissionTypeAutoTimeout:
		return model.SessionStatusExpired
	case model.SubmissionTypeAutoViolation:
		return model.SessionStatusViolationTerminated
	case model.SubmissionTypeAdminForce:
		return model.SessionStatusForceSubmitted
	default:
		return model.SessionStatusSubmitted
	}
}

// Finalize seals a session and returns its result snapshot. Idempotent: a
// second call on an already-terminal session returns the stored snapshot
// without re-scoring, re-appending audit entries or touching answers. A race
// between a timeout sweep and a concurrent manual submit is resolved by the
// per-session lock in-process and by the Finish compare-and-set across nodes.
func (s *SubmissionService) Finalize(ctx context.Context, sessionID uuid.UUID, trigger model.SubmissionType, actor string) (*model.Submission, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if sess.Status.IsTerminal() {
		return s.cachedSnapshot(ctx, sessionID)
	}

	questions, err := s.questions.ListByExam(ctx, sess.ExamID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	answers, err := s.answers.ListForScoring(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	submittedAt := time.Now()
	snapshot, graded := s.grade(sess, questions, answers, trigger, submittedAt)

	status := terminalStatusFor(trigger)
	won, err := s.sessions.Finish(ctx, sessionID, status, trigger, submittedAt)
	if err != nil {
		return nil, fmt.Errorf("finish session: %w", err)
	}
	if !won {
		// Another finalizer sealed the session first; its snapshot is the
		// authoritative one.
		return s.cachedSnapshot(ctx, sessionID)
	}

	if err := s.answers.RecordScores(ctx, sessionID, graded); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Record per-answer scores failed")
	}
	if err := s.submissions.Create(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}
	if err := s.answers.Clear(ctx, sessionID); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Clear autosave buffer failed")
	}

	s.audit.Emit(ctx, model.AuditEvent{
		SessionID:  &sess.ID,
		ExamID:     &sess.ExamID,
		Actor:      actor,
		Action:     auditActionFor(trigger),
		Detail:     fmt.Sprintf("trigger=%s score=%.2f/%.2f", trigger, snapshot.MarksObtained, snapshot.TotalMarks),
		RecordedAt: submittedAt,
	})
	s.publisher.Publish(ctx, sess.ExamID, MonitorEvent{
		Kind:      "submitted",
		SessionID: sess.ID,
		StudentID: sess.StudentID,
		Status:    status,
	})

	s.log.Info().
		Str("session_id", sessionID.String()).
		Str("trigger", string(trigger)).
		Float64("score", snapshot.MarksObtained).
		Msg("Attempt finalized")

	// Return the stored row so repeated calls yield identical snapshots.
	return s.cachedSnapshot(ctx, sessionID)
}

func auditActionFor(trigger model.SubmissionType) model.AuditAction {
	switch trigger {
	case model.SubmissionTypeAutoTimeout:
		return model.AuditSessionExpired
	case model.SubmissionTypeAutoViolation:
		return model.AuditSessionTerminated
	case model.SubmissionTypeAdminForce:
		return model.AuditAdminForceSubmit
	default:
		return model.AuditSessionSubmitted
	}
}

// GetResult returns the stored snapshot for a finalized session. A sealed
// session with no snapshot row gets one rebuilt on the spot; a live session
// simply has no result yet.
func (s *SubmissionService) GetResult(ctx context.Context, sessionID uuid.UUID) (*model.Submission, error) {
	snap, err := s.submissions.GetBySession(ctx, sessionID)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil || !sess.Status.IsTerminal() {
		return nil, ErrSessionNotFound
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()
	return s.rebuildSnapshot(ctx, sessionID)
}

func (s *SubmissionService) cachedSnapshot(ctx context.Context, sessionID uuid.UUID) (*model.Submission, error) {
	snap, err := s.submissions.GetBySession(ctx, sessionID)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	// The session sealed but its snapshot never landed (a crash between the
	// status compare-and-set and the insert). Rebuild it from the stored
	// answers so the result stays retrievable.
	return s.rebuildSnapshot(ctx, sessionID)
}

// rebuildSnapshot re-grades a sealed session whose snapshot row is missing.
// Answers and the autosave buffer are only cleared after a successful insert,
// so the inputs that produced the original grade are still intact. The insert
// ignores conflicts; the read-back keeps concurrent rebuilders consistent.
func (s *SubmissionService) rebuildSnapshot(ctx context.Context, sessionID uuid.UUID) (*model.Submission, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !sess.Status.IsTerminal() {
		return nil, fmt.Errorf("snapshot missing for live session %s", sessionID)
	}

	trigger := model.SubmissionTypeManual
	if sess.SubmissionType != nil {
		trigger = *sess.SubmissionType
	}
	submittedAt := time.Now()
	if sess.SubmittedAt != nil {
		submittedAt = *sess.SubmittedAt
	}

	questions, err := s.questions.ListByExam(ctx, sess.ExamID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	answers, err := s.answers.ListForScoring(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	snapshot, graded := s.grade(sess, questions, answers, trigger, submittedAt)
	if err := s.answers.RecordScores(ctx, sessionID, graded); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Record per-answer scores failed")
	}
	if err := s.submissions.Create(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("store rebuilt snapshot: %w", err)
	}
	if err := s.answers.Clear(ctx, sessionID); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Clear autosave buffer failed")
	}

	s.log.Warn().
		Str("session_id", sessionID.String()).
		Str("trigger", string(trigger)).
		Msg("Rebuilt missing result snapshot")

	return s.submissions.GetBySession(ctx, sessionID)
}

// grade scores every answer against the catalog. The scoring engine never
// errors: a malformed answer resolves to zero, so one bad answer cannot
// corrupt the rest of the submission. Pending-manual answers count in
// neither the correct nor the wrong tally.
func (s *SubmissionService) grade(
	sess *model.Session,
	questions []model.Question,
	answers []model.Answer,
	trigger model.SubmissionType,
	submittedAt time.Time,
) (*model.Submission, map[uuid.UUID]model.Answer) {
	byQuestion := make(map[uuid.UUID]model.Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	snap := &model.Submission{
		SessionID:      sess.ID,
		ExamID:         sess.ExamID,
		StudentID:      sess.StudentID,
		SubmissionType: trigger,
		SubmittedAt:    submittedAt,
	}
	graded := make(map[uuid.UUID]model.Answer, len(answers))

	for i := range questions {
		q := &questions[i]
		snap.TotalMarks += q.Marks

		answer, ok := byQuestion[q.ID]
		res := scoring.Result{Outcome: scoring.OutcomeUnattempted}
		if ok {
			res = scoring.Score(q, answer.Value)
		}

		switch res.Outcome {
		case scoring.OutcomeUnattempted:
			snap.Unattempted++
			continue
		case scoring.OutcomePendingManual:
			snap.QuestionsAttempted++
			snap.PendingManual++
			// Marks stay unresolved: is_correct remains NULL.
			graded[q.ID] = answer
			continue
		case scoring.OutcomeCorrect:
			snap.QuestionsAttempted++
			snap.CorrectAnswers++
		case scoring.OutcomeIncorrect:
			snap.QuestionsAttempted++
			snap.WrongAnswers++
		case scoring.OutcomePartial:
			snap.QuestionsAttempted++
		}

		snap.MarksObtained += res.Marks

		marks := res.Marks
		correct := res.Outcome == scoring.OutcomeCorrect
		answer.MarksObtained = &marks
		answer.IsCorrect = &correct
		graded[q.ID] = answer
	}

	if snap.TotalMarks > 0 {
		snap.Percentage = snap.MarksObtained / snap.TotalMarks * 100
	}
	return snap, graded
}
