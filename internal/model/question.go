package model

import (
	"github.com/google/uuid"
)

// QuestionType tags the scoring strategy a question uses.
type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "SINGLE_CHOICE"
	QuestionTypeTrueFalse      QuestionType = "TRUE_FALSE"
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeNumerical      QuestionType = "NUMERICAL"
	QuestionTypeFillBlank      QuestionType = "FILL_BLANK"
	QuestionTypeMatching       QuestionType = "MATCHING"
	QuestionTypeOrdering       QuestionType = "ORDERING"
	QuestionTypeHotspot        QuestionType = "HOTSPOT"
	QuestionTypeLongAnswer     QuestionType = "LONG_ANSWER"
	QuestionTypeCode           QuestionType = "CODE"
)

// Region is a rectangular hotspot area. Correct marks the regions a click
// must fall inside to score.
type Region struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Correct bool    `json:"correct"`
}

// Contains reports whether the point falls inside the region, boundary inclusive.
func (r Region) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// AnswerKey carries the type-dependent correct-answer data. It is stored as a
// single JSONB column and never leaves the server.
type AnswerKey struct {
	CorrectOptions  []string          `json:"correct_options,omitempty"`  // choice types
	CorrectValue    float64           `json:"correct_value,omitempty"`    // numerical
	Tolerance       float64           `json:"tolerance,omitempty"`        // numerical, boundary inclusive
	AcceptedAnswers [][]string        `json:"accepted_answers,omitempty"` // fill-blank: per-blank accepted list
	CaseSensitive   bool              `json:"case_sensitive,omitempty"`   // fill-blank
	CorrectPairs    map[string]string `json:"correct_pairs,omitempty"`    // matching
	CorrectOrder    []string          `json:"correct_order,omitempty"`    // ordering
	Regions         []Region          `json:"regions,omitempty"`          // hotspot
}

// Question is a read-only catalog entry from this core's perspective;
// authoring lives elsewhere.
type Question struct {
	ID             uuid.UUID    `json:"id"`
	ExamID         uuid.UUID    `json:"exam_id"`
	Type           QuestionType `json:"type"`
	Text           string       `json:"text"`
	Marks          float64      `json:"marks"`
	NegativeMarks  float64      `json:"negative_marks"`
	PartialMarking bool         `json:"partial_marking"`
	OrderNum       int          `json:"order_num"`
	IsActive       bool         `json:"is_active"`
	Key            AnswerKey    `json:"-"`
}
