package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
)

// MonitorService builds the proctor's live view of an exam: every active
// attempt with its server-computed remaining time and violation count, plus
// the batch ladder. Live deltas ride the pub/sub stream; this is the snapshot
// a proctor loads when the dashboard opens.
type MonitorService struct {
	sessions SessionStore
	batches  BatchStore
	audits   AuditReader
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(sessions SessionStore, batches BatchStore, audits AuditReader) *MonitorService {
	return &MonitorService{sessions: sessions, batches: batches, audits: audits}
}

// AttemptView is one row in the proctor dashboard.
type AttemptView struct {
	SessionID        uuid.UUID           `json:"session_id"`
	StudentID        int                 `json:"student_id"`
	BatchNumber      int                 `json:"batch_number"`
	Status           model.SessionStatus `json:"status"`
	RemainingSeconds float64             `json:"remaining_seconds"`
	ViolationCount   int                 `json:"violation_count"`
	LastActivityAt   time.Time           `json:"last_activity_at"`
}

// ExamSnapshot is the full dashboard payload for one exam.
type ExamSnapshot struct {
	ExamID          uuid.UUID     `json:"exam_id"`
	Attempts        []AttemptView `json:"attempts"`
	Batches         []model.Batch `json:"batches"`
	ActiveCount     int           `json:"active_count"`
	TotalViolations int           `json:"total_violations"`
}

// GetExamSnapshot fetches active attempts and batches concurrently. Attempts
// are critical; a batch fetch failure degrades to an empty ladder.
func (s *MonitorService) GetExamSnapshot(ctx context.Context, examID uuid.UUID) (*ExamSnapshot, error) {
	var (
		active     []model.Session
		batches    []model.Batch
		activeErr  error
		batchesErr error
		wg         sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		active, activeErr = s.sessions.ListActiveByExam(ctx, examID)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		batches, batchesErr = s.batches.ListByExam(ctx, examID)
	}()

	wg.Wait()

	if activeErr != nil {
		return nil, activeErr
	}

	now := time.Now()
	snapshot := &ExamSnapshot{
		ExamID:   examID,
		Attempts: make([]AttemptView, 0, len(active)),
	}
	for i := range active {
		sess := &active[i]
		snapshot.Attempts = append(snapshot.Attempts, AttemptView{
			SessionID:        sess.ID,
			StudentID:        sess.StudentID,
			BatchNumber:      sess.BatchNumber,
			Status:           sess.Status,
			RemainingSeconds: sess.RemainingTime(now).Seconds(),
			ViolationCount:   sess.ViolationCount,
			LastActivityAt:   sess.LastActivityAt,
		})
		snapshot.TotalViolations += sess.ViolationCount
	}
	snapshot.ActiveCount = len(snapshot.Attempts)

	if batchesErr == nil {
		snapshot.Batches = batches
	}
	return snapshot, nil
}

// AuditTrail returns one page of a session's audit trail, newest first, plus
// the total entry count. page is 1-based.
func (s *MonitorService) AuditTrail(ctx context.Context, sessionID uuid.UUID, page, perPage int) ([]model.AuditEvent, int, error) {
	return s.audits.ListBySession(ctx, sessionID, perPage, (page-1)*perPage)
}
