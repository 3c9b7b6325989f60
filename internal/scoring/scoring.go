// Package scoring grades a single submitted answer against a question
// definition. It is a pure function of its inputs: no state, no I/O, and it
// never returns an error — a malformed or unrecognized answer resolves to
// zero marks so one bad answer cannot corrupt the rest of a submission.
package scoring

import (
	"github.com/invigilo/invigilo-backend/internal/model"
)

// Outcome classifies a scoring result for aggregation. PendingManual is a
// sentinel distinct from wrong: it is excluded from both correct and wrong
// tallies and leaves the marks unresolved until a human grades it.
type Outcome string

const (
	OutcomeCorrect       Outcome = "CORRECT"
	OutcomeIncorrect     Outcome = "INCORRECT"
	OutcomePartial       Outcome = "PARTIAL"
	OutcomeUnattempted   Outcome = "UNATTEMPTED"
	OutcomePendingManual Outcome = "PENDING_MANUAL"
)

// Result is the verdict for one answer.
type Result struct {
	Marks   float64 `json:"marks"`
	Outcome Outcome `json:"outcome"`
}

// Pending reports whether the result awaits manual grading.
func (r Result) Pending() bool {
	return r.Outcome == OutcomePendingManual
}

// Scorer grades one answer value against one question definition.
// Implementations must be stateless and must not panic on garbage input.
type Scorer interface {
	Score(q *model.Question, ans model.AnswerValue) Result
}

// registry maps question types to their strategy. New question types extend
// the set without touching a central dispatcher.
var registry = map[model.QuestionType]Scorer{
	model.QuestionTypeSingleChoice:   singleChoiceScorer{},
	model.QuestionTypeTrueFalse:      singleChoiceScorer{},
	model.QuestionTypeMultipleChoice: multipleChoiceScorer{},
	model.QuestionTypeNumerical:      numericalScorer{},
	model.QuestionTypeFillBlank:      fillBlankScorer{},
	model.QuestionTypeMatching:       matchingScorer{},
	model.QuestionTypeOrdering:       orderingScorer{},
	model.QuestionTypeHotspot:        hotspotScorer{},
	model.QuestionTypeLongAnswer:     manualScorer{},
	model.QuestionTypeCode:           manualScorer{},
}

// Score grades one answer. A blank answer scores zero with no penalty for
// every question type; an unknown question type also resolves to zero.
func Score(q *model.Question, ans model.AnswerValue) Result {
	if ans.IsEmpty() {
		return Result{Marks: 0, Outcome: OutcomeUnattempted}
	}

	scorer, ok := registry[q.Type]
	if !ok {
		return Result{Marks: 0, Outcome: OutcomeUnattempted}
	}
	return scorer.Score(q, ans)
}
