package scoring

import (
	"github.com/invigilo/invigilo-backend/internal/model"
)

// matchingScorer grades MATCHING questions by pair-wise comparison against
// the canonical pairing. Exact match earns full marks; partial mode credits
// the correct fraction; otherwise zero, no negative marking.
type matchingScorer struct{}

func (matchingScorer) Score(q *model.Question, ans model.AnswerValue) Result {
	total := len(q.Key.CorrectPairs)
	if total == 0 {
		return Result{Marks: 0, Outcome: OutcomeIncorrect}
	}

	correct := 0
	for left, right := range q.Key.CorrectPairs {
		if ans.Pairs[left] == right {
			correct++
		}
	}

	return fractionResult(q, correct, total)
}

// orderingScorer grades ORDERING questions by position-wise comparison
// against the canonical order.
type orderingScorer struct{}

func (orderingScorer) Score(q *model.Question, ans model.AnswerValue) Result {
	total := len(q.Key.CorrectOrder)
	if total == 0 {
		return Result{Marks: 0, Outcome: OutcomeIncorrect}
	}

	correct := 0
	for i, item := range q.Key.CorrectOrder {
		if i < len(ans.Order) && ans.Order[i] == item {
			correct++
		}
	}
	// Extra trailing items simply cannot match a canonical position; a
	// submission longer than the key is never an exact match.
	if correct == total && len(ans.Order) != total {
		correct = total - 1
	}

	return fractionResult(q, correct, total)
}

func fractionResult(q *model.Question, correct, total int) Result {
	if correct == total {
		return Result{Marks: q.Marks, Outcome: OutcomeCorrect}
	}
	if !q.PartialMarking || correct == 0 {
		return Result{Marks: 0, Outcome: OutcomeIncorrect}
	}
	return Result{Marks: float64(correct) / float64(total) * q.Marks, Outcome: OutcomePartial}
}

// hotspotScorer grades HOTSPOT questions with a point-in-rectangle test:
// correct only if the click lands inside a region flagged correct.
type hotspotScorer struct{}

func (hotspotScorer) Score(q *model.Question, ans model.AnswerValue) Result {
	if ans.Point == nil {
		return Result{Marks: 0, Outcome: OutcomeUnattempted}
	}
	for _, region := range q.Key.Regions {
		if region.Correct && region.Contains(*ans.Point) {
			return Result{Marks: q.Marks, Outcome: OutcomeCorrect}
		}
	}
	return Result{Marks: -q.NegativeMarks, Outcome: OutcomeIncorrect}
}
