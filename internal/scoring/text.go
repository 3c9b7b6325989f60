package scoring

import (
	"math"
	"strconv"
	"strings"

	"github.com/invigilo/invigilo-backend/internal/model"
)

// numericalScorer grades NUMERICAL questions: correct when the submitted
// value lies within the configured tolerance of the correct value, boundary
// inclusive. A non-numeric submission scores zero with no penalty.
type numericalScorer struct{}

func (numericalScorer) Score(q *model.Question, ans model.AnswerValue) Result {
	value, err := strconv.ParseFloat(strings.TrimSpace(ans.Text), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return Result{Marks: 0, Outcome: OutcomeIncorrect}
	}

	if math.Abs(value-q.Key.CorrectValue) <= q.Key.Tolerance {
		return Result{Marks: q.Marks, Outcome: OutcomeCorrect}
	}
	return Result{Marks: -q.NegativeMarks, Outcome: OutcomeIncorrect}
}

// fillBlankScorer grades FILL_BLANK questions: each blank is compared against
// its accepted-answer list. Partial mode credits the correct fraction; strict
// mode requires every blank correct, otherwise the negative marks apply.
type fillBlankScorer struct{}

func (fillBlankScorer) Score(q *model.Question, ans model.AnswerValue) Result {
	totalBlanks := len(q.Key.AcceptedAnswers)
	if totalBlanks == 0 {
		return Result{Marks: 0, Outcome: OutcomeIncorrect}
	}

	correctBlanks := 0
	for i, accepted := range q.Key.AcceptedAnswers {
		if i >= len(ans.Blanks) {
			break
		}
		if blankMatches(ans.Blanks[i], accepted, q.Key.CaseSensitive) {
			correctBlanks++
		}
	}

	if q.PartialMarking {
		if correctBlanks == totalBlanks {
			return Result{Marks: q.Marks, Outcome: OutcomeCorrect}
		}
		if correctBlanks == 0 {
			return Result{Marks: 0, Outcome: OutcomeIncorrect}
		}
		return Result{Marks: float64(correctBlanks) / float64(totalBlanks) * q.Marks, Outcome: OutcomePartial}
	}

	if correctBlanks == totalBlanks {
		return Result{Marks: q.Marks, Outcome: OutcomeCorrect}
	}
	return Result{Marks: -q.NegativeMarks, Outcome: OutcomeIncorrect}
}

func blankMatches(given string, accepted []string, caseSensitive bool) bool {
	given = strings.TrimSpace(given)
	for _, want := range accepted {
		want = strings.TrimSpace(want)
		if caseSensitive {
			if given == want {
				return true
			}
		} else if strings.EqualFold(given, want) {
			return true
		}
	}
	return false
}

// manualScorer handles LONG_ANSWER and CODE questions. Any non-empty
// submission is a pending-manual sentinel, never zero: it must propagate
// through aggregation as unscored, distinct from wrong.
type manualScorer struct{}

func (manualScorer) Score(q *model.Question, ans model.AnswerValue) Result {
	return Result{Marks: 0, Outcome: OutcomePendingManual}
}
