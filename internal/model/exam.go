package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft      ExamStatus = "DRAFT"
	ExamStatusPublished  ExamStatus = "PUBLISHED"
	ExamStatusInProgress ExamStatus = "IN_PROGRESS"
	ExamStatusCompleted  ExamStatus = "COMPLETED"
	ExamStatusArchived   ExamStatus = "ARCHIVED"
)

// Exam is the configuration this core consumes: duration, time window,
// violation thresholds and marking flags. Authoring is external.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration_minutes"`
	WindowStart     *time.Time `json:"window_start,omitempty"`
	WindowEnd       *time.Time `json:"window_end,omitempty"`
	MaxViolations   int        `json:"max_violations"`
	WarnViolations  int        `json:"warn_violations"`
	Status          ExamStatus `json:"status"`
	// ActiveBatchID is the exam-level mutual-exclusion pointer: at most one
	// batch may be live at a time, enforced by compare-and-swap on this column.
	ActiveBatchID *uuid.UUID `json:"active_batch_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// WindowOpen reports whether attempts may be created at the given instant.
func (e *Exam) WindowOpen(now time.Time) bool {
	if e.WindowStart != nil && now.Before(*e.WindowStart) {
		return false
	}
	if e.WindowEnd != nil && now.After(*e.WindowEnd) {
		return false
	}
	return true
}
