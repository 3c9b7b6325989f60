package model

import (
	"time"

	"github.com/google/uuid"
)

// Submission is the immutable result snapshot written exactly once when an
// attempt is finalized. It is the durable grading artifact; answers graded as
// pending-manual are counted in PendingManual, not in correct or wrong.
type Submission struct {
	ID                 uuid.UUID      `json:"id"`
	SessionID          uuid.UUID      `json:"session_id"`
	ExamID             uuid.UUID      `json:"exam_id"`
	StudentID          int            `json:"student_id"`
	SubmissionType     SubmissionType `json:"submission_type"`
	TotalMarks         float64        `json:"total_marks"`
	MarksObtained      float64        `json:"marks_obtained"`
	Percentage         float64        `json:"percentage"`
	QuestionsAttempted int            `json:"questions_attempted"`
	CorrectAnswers     int            `json:"correct_answers"`
	WrongAnswers       int            `json:"wrong_answers"`
	Unattempted        int            `json:"unattempted"`
	PendingManual      int            `json:"pending_manual"`
	SubmittedAt        time.Time      `json:"submitted_at"`
}
