package model

import (
	"time"

	"github.com/google/uuid"
)

// BatchStatus enumerates cohort batch states.
type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "PENDING"
	BatchStatusQueued    BatchStatus = "QUEUED"
	BatchStatusActive    BatchStatus = "ACTIVE"
	BatchStatusCompleted BatchStatus = "COMPLETED"
	BatchStatusLocked    BatchStatus = "LOCKED"
)

// Batch is a capacity-bounded slice of a cohort run through the exam at a
// staggered time. Once IsLocked is true no field may be mutated again.
type Batch struct {
	ID           uuid.UUID   `json:"id"`
	ExamID       uuid.UUID   `json:"exam_id"`
	Number       int         `json:"number"`
	MaxCapacity  int         `json:"max_capacity"`
	CurrentCount int         `json:"current_count"`
	Status       BatchStatus `json:"status"`
	IsLocked     bool        `json:"is_locked"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// HasCapacity reports whether another student can be admitted.
func (b *Batch) HasCapacity() bool {
	return b.CurrentCount < b.MaxCapacity
}
