package scoring

import (
	"github.com/invigilo/invigilo-backend/internal/model"
)

// incorrectSelectionPenalty is the per-wrong-selection deduction factor used
// in partial multiple-choice marking.
const incorrectSelectionPenalty = 0.25

// singleChoiceScorer grades SINGLE_CHOICE and TRUE_FALSE questions: exactly
// one selection, all-or-nothing with negative marking.
type singleChoiceScorer struct{}

func (singleChoiceScorer) Score(q *model.Question, ans model.AnswerValue) Result {
	if len(ans.Selected) != 1 || len(q.Key.CorrectOptions) == 0 {
		return Result{Marks: -q.NegativeMarks, Outcome: OutcomeIncorrect}
	}
	if ans.Selected[0] == q.Key.CorrectOptions[0] {
		return Result{Marks: q.Marks, Outcome: OutcomeCorrect}
	}
	return Result{Marks: -q.NegativeMarks, Outcome: OutcomeIncorrect}
}

// multipleChoiceScorer grades MULTIPLE_CHOICE questions. Strict mode: any
// incorrect selection costs the negative marks; all-correct-none-incorrect
// earns full marks; an incomplete but clean selection earns zero. Partial
// mode credits the correct fraction, penalized per incorrect selection.
type multipleChoiceScorer struct{}

func (multipleChoiceScorer) Score(q *model.Question, ans model.AnswerValue) Result {
	correctSet := make(map[string]struct{}, len(q.Key.CorrectOptions))
	for _, opt := range q.Key.CorrectOptions {
		correctSet[opt] = struct{}{}
	}
	totalCorrect := len(correctSet)
	if totalCorrect == 0 {
		return Result{Marks: 0, Outcome: OutcomeIncorrect}
	}

	var correctSelected, incorrectSelected int
	seen := make(map[string]struct{}, len(ans.Selected))
	for _, opt := range ans.Selected {
		if _, dup := seen[opt]; dup {
			continue
		}
		seen[opt] = struct{}{}
		if _, ok := correctSet[opt]; ok {
			correctSelected++
		} else {
			incorrectSelected++
		}
	}

	if !q.PartialMarking {
		if incorrectSelected > 0 {
			return Result{Marks: -q.NegativeMarks, Outcome: OutcomeIncorrect}
		}
		if correctSelected == totalCorrect {
			return Result{Marks: q.Marks, Outcome: OutcomeCorrect}
		}
		return Result{Marks: 0, Outcome: OutcomeIncorrect}
	}

	fraction := float64(correctSelected) / float64(totalCorrect)
	if incorrectSelected > 0 {
		score := (fraction - float64(incorrectSelected)*incorrectSelectionPenalty) * q.Marks
		if score < 0 {
			score = 0
		}
		if score == 0 {
			return Result{Marks: 0, Outcome: OutcomeIncorrect}
		}
		return Result{Marks: score, Outcome: OutcomePartial}
	}

	if correctSelected == totalCorrect {
		return Result{Marks: q.Marks, Outcome: OutcomeCorrect}
	}
	return Result{Marks: fraction * q.Marks, Outcome: OutcomePartial}
}
