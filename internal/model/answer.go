package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AnswerValue is the student-submitted value for one question. Which field
// is populated depends on the question type; the scoring engine treats an
// entirely empty value as unattempted for every type.
type AnswerValue struct {
	Selected []string          `json:"selected,omitempty"` // option IDs (choice types)
	Text     string            `json:"text,omitempty"`     // free text / numerical / essay / code
	Blanks   []string          `json:"blanks,omitempty"`   // fill-in-the-blank values, in order
	Pairs    map[string]string `json:"pairs,omitempty"`    // matching: left ID -> right ID
	Order    []string          `json:"order,omitempty"`    // ordering: item IDs in chosen order
	Point    *Point            `json:"point,omitempty"`    // hotspot click
}

// Point is a hotspot click coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// IsEmpty reports whether the value carries no answer at all. Slices and
// pairs holding only whitespace-empty strings count as empty too: a student
// who opened a question and typed nothing has not attempted it.
func (v AnswerValue) IsEmpty() bool {
	if anyFilled(v.Selected) || anyFilled(v.Blanks) || anyFilled(v.Order) || v.Point != nil {
		return false
	}
	for _, right := range v.Pairs {
		if strings.TrimSpace(right) != "" {
			return false
		}
	}
	return strings.TrimSpace(v.Text) == ""
}

func anyFilled(values []string) bool {
	for _, s := range values {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

// Answer holds per-question answer state for one attempt. MarksObtained and
// IsCorrect are only authoritative after finalization; before that they
// reflect the last autosave, not a score.
type Answer struct {
	ID              uuid.UUID   `json:"id"`
	SessionID       uuid.UUID   `json:"session_id"`
	QuestionID      uuid.UUID   `json:"question_id"`
	Value           AnswerValue `json:"value"`
	Visited         bool        `json:"visited"`
	MarkedForReview bool        `json:"marked_for_review"`
	AnsweredAt      *time.Time  `json:"answered_at,omitempty"`
	IsCorrect       *bool       `json:"is_correct,omitempty"`
	MarksObtained   *float64    `json:"marks_obtained,omitempty"`
}

// SaveAnswerRequest is the autosave payload for a single question.
type SaveAnswerRequest struct {
	Value           AnswerValue `json:"value"`
	Visited         bool        `json:"visited"`
	MarkedForReview bool        `json:"marked_for_review"`
}
