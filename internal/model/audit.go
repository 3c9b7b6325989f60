package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction tags an audit trail entry emitted by the core.
type AuditAction string

const (
	AuditSessionCreated     AuditAction = "SESSION_CREATED"
	AuditSessionResumed     AuditAction = "SESSION_RESUMED"
	AuditIPChanged          AuditAction = "IP_CHANGED"
	AuditDeviceMismatch     AuditAction = "DEVICE_MISMATCH"
	AuditViolationRecorded  AuditAction = "VIOLATION_RECORDED"
	AuditSessionTerminated  AuditAction = "SESSION_TERMINATED"
	AuditSessionSubmitted   AuditAction = "SESSION_SUBMITTED"
	AuditSessionExpired     AuditAction = "SESSION_EXPIRED"
	AuditBatchStarted       AuditAction = "BATCH_STARTED"
	AuditBatchCompleted     AuditAction = "BATCH_COMPLETED"
	AuditBatchStudentAdded  AuditAction = "BATCH_STUDENT_ADDED"
	AuditAdminForceSubmit   AuditAction = "ADMIN_FORCE_SUBMIT"
)

// AuditEvent is a write-only record shipped to the audit sink. The sink is
// eventually consistent; the core never reads audit entries back.
type AuditEvent struct {
	ID         uuid.UUID   `json:"id"`
	SessionID  *uuid.UUID  `json:"session_id,omitempty"`
	BatchID    *uuid.UUID  `json:"batch_id,omitempty"`
	ExamID     *uuid.UUID  `json:"exam_id,omitempty"`
	Actor      string      `json:"actor"`
	Action     AuditAction `json:"action"`
	Detail     string      `json:"detail,omitempty"`
	IPAddress  string      `json:"ip_address,omitempty"`
	RecordedAt time.Time   `json:"recorded_at"`
}
