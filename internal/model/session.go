package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam attempt states. ACTIVE is the only
// non-terminal state; a session never returns to it once it leaves.
type SessionStatus string

const (
	SessionStatusActive              SessionStatus = "ACTIVE"
	SessionStatusSubmitted           SessionStatus = "SUBMITTED"
	SessionStatusForceSubmitted      SessionStatus = "FORCE_SUBMITTED"
	SessionStatusExpired             SessionStatus = "EXPIRED"
	SessionStatusViolationTerminated SessionStatus = "VIOLATION_TERMINATED"
)

// IsTerminal reports whether the status is one of the four end states.
func (s SessionStatus) IsTerminal() bool {
	return s != SessionStatusActive
}

// SubmissionType records what triggered finalization, independent of the
// terminal status, for reporting.
type SubmissionType string

const (
	SubmissionTypeManual        SubmissionType = "MANUAL"
	SubmissionTypeAutoTimeout   SubmissionType = "AUTO_TIMEOUT"
	SubmissionTypeAutoViolation SubmissionType = "AUTO_VIOLATION"
	SubmissionTypeAdminForce    SubmissionType = "ADMIN_FORCE"
)

// Session represents a student's timed exam attempt. The Token is the sole
// capability for all attempt operations; ServerEndTime is fixed at creation
// and never extended.
type Session struct {
	ID                uuid.UUID       `json:"id"`
	Token             string          `json:"token,omitempty"`
	ExamID            uuid.UUID       `json:"exam_id"`
	StudentID         int             `json:"student_id"`
	BatchNumber       int             `json:"batch_number"`
	IPAddress         string          `json:"ip_address"`
	DeviceFingerprint string          `json:"-"`
	StartedAt         time.Time       `json:"started_at"`
	ServerEndTime     time.Time       `json:"server_end_time"`
	Status            SessionStatus   `json:"status"`
	ViolationCount    int             `json:"violation_count"`
	MaxViolations     int             `json:"max_violations"`
	WarnViolations    int             `json:"warn_violations"`
	LastActivityAt    time.Time       `json:"last_activity_at"`
	SubmittedAt       *time.Time      `json:"submitted_at,omitempty"`
	SubmissionType    *SubmissionType `json:"submission_type,omitempty"`
}

// RemainingTime computes the authoritative time left at the given instant.
// Never trusts a client-submitted clock value.
func (s *Session) RemainingTime(now time.Time) time.Duration {
	remaining := s.ServerEndTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CreateAttemptRequest is the payload for starting (or resuming) an attempt.
type CreateAttemptRequest struct {
	ExamID      uuid.UUID `json:"exam_id" binding:"required"`
	StudentID   int       `json:"student_id" binding:"required,min=1"`
	Fingerprint string    `json:"fingerprint" binding:"required,min=8,max=128"`
}

// ValidateAttemptRequest is the payload for revalidating an attempt token.
type ValidateAttemptRequest struct {
	Fingerprint string `json:"fingerprint" binding:"required,min=8,max=128"`
}

// HeartbeatResponse re-syncs the client-displayed clock against the server.
type HeartbeatResponse struct {
	RemainingSeconds float64       `json:"remaining_seconds"`
	ViolationCount   int           `json:"violation_count"`
	WarningIssued    bool          `json:"warning_issued"`
	Terminated       bool          `json:"terminated"`
	Status           SessionStatus `json:"status"`
}
