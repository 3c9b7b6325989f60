package scoring

import (
	"math"
	"testing"

	"github.com/invigilo/invigilo-backend/internal/model"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= epsilon
}

func singleChoice(correct string) *model.Question {
	return &model.Question{
		Type:          model.QuestionTypeSingleChoice,
		Marks:         4,
		NegativeMarks: 1,
		Key:           model.AnswerKey{CorrectOptions: []string{correct}},
	}
}

func TestScoreBlankAnswerIsZeroForEveryType(t *testing.T) {
	types := []model.QuestionType{
		model.QuestionTypeSingleChoice,
		model.QuestionTypeTrueFalse,
		model.QuestionTypeMultipleChoice,
		model.QuestionTypeNumerical,
		model.QuestionTypeFillBlank,
		model.QuestionTypeMatching,
		model.QuestionTypeOrdering,
		model.QuestionTypeHotspot,
		model.QuestionTypeLongAnswer,
		model.QuestionTypeCode,
	}

	for _, qt := range types {
		q := &model.Question{Type: qt, Marks: 5, NegativeMarks: 2}
		res := Score(q, model.AnswerValue{})
		if res.Marks != 0 {
			t.Errorf("%s: blank answer scored %v, want 0", qt, res.Marks)
		}
		if res.Outcome != OutcomeUnattempted {
			t.Errorf("%s: blank answer outcome %s, want %s", qt, res.Outcome, OutcomeUnattempted)
		}
	}
}

func TestScoreWhitespaceTextIsUnattempted(t *testing.T) {
	q := &model.Question{Type: model.QuestionTypeNumerical, Marks: 4, NegativeMarks: 1}
	res := Score(q, model.AnswerValue{Text: "   "})
	if res.Outcome != OutcomeUnattempted || res.Marks != 0 {
		t.Fatalf("whitespace-only answer got %+v, want unattempted zero", res)
	}
}

func TestScoreAllEmptySlicesAreUnattempted(t *testing.T) {
	tests := []struct {
		name  string
		qtype model.QuestionType
		key   model.AnswerKey
		value model.AnswerValue
	}{
		{
			"fill blank with only empty blanks",
			model.QuestionTypeFillBlank,
			model.AnswerKey{AcceptedAnswers: [][]string{{"photosynthesis"}, {"chlorophyll"}}},
			model.AnswerValue{Blanks: []string{"", "  "}},
		},
		{
			"single choice with empty selection",
			model.QuestionTypeSingleChoice,
			model.AnswerKey{CorrectOptions: []string{"a"}},
			model.AnswerValue{Selected: []string{""}},
		},
		{
			"ordering with empty item IDs",
			model.QuestionTypeOrdering,
			model.AnswerKey{CorrectOrder: []string{"x", "y"}},
			model.AnswerValue{Order: []string{"", ""}},
		},
		{
			"matching with unmatched pairs",
			model.QuestionTypeMatching,
			model.AnswerKey{CorrectPairs: map[string]string{"l1": "r1"}},
			model.AnswerValue{Pairs: map[string]string{"l1": ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &model.Question{Type: tt.qtype, Marks: 5, NegativeMarks: 2, Key: tt.key}
			res := Score(q, tt.value)
			if res.Marks != 0 || res.Outcome != OutcomeUnattempted {
				t.Errorf("got %+v, want unattempted zero (blank answer must never be penalized)", res)
			}
		})
	}
}

func TestSingleChoice(t *testing.T) {
	tests := []struct {
		name     string
		selected []string
		marks    float64
		outcome  Outcome
	}{
		{"correct selection", []string{"b"}, 4, OutcomeCorrect},
		{"wrong selection", []string{"a"}, -1, OutcomeIncorrect},
		{"multiple selections invalid", []string{"a", "b"}, -1, OutcomeIncorrect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Score(singleChoice("b"), model.AnswerValue{Selected: tt.selected})
			if !almostEqual(res.Marks, tt.marks) || res.Outcome != tt.outcome {
				t.Errorf("got %+v, want marks=%v outcome=%s", res, tt.marks, tt.outcome)
			}
		})
	}
}

func TestMultipleChoiceStrict(t *testing.T) {
	q := &model.Question{
		Type:          model.QuestionTypeMultipleChoice,
		Marks:         4,
		NegativeMarks: 2,
		Key:           model.AnswerKey{CorrectOptions: []string{"a", "c"}},
	}

	tests := []struct {
		name     string
		selected []string
		marks    float64
		outcome  Outcome
	}{
		{"all correct", []string{"a", "c"}, 4, OutcomeCorrect},
		{"all correct any order", []string{"c", "a"}, 4, OutcomeCorrect},
		{"incomplete clean selection", []string{"a"}, 0, OutcomeIncorrect},
		{"any incorrect selection costs negative", []string{"a", "c", "b"}, -2, OutcomeIncorrect},
		{"single incorrect costs negative", []string{"b"}, -2, OutcomeIncorrect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Score(q, model.AnswerValue{Selected: tt.selected})
			if !almostEqual(res.Marks, tt.marks) || res.Outcome != tt.outcome {
				t.Errorf("got %+v, want marks=%v outcome=%s", res, tt.marks, tt.outcome)
			}
		})
	}
}

func TestMultipleChoicePartial(t *testing.T) {
	q := &model.Question{
		Type:           model.QuestionTypeMultipleChoice,
		Marks:          8,
		NegativeMarks:  2,
		PartialMarking: true,
		Key:            model.AnswerKey{CorrectOptions: []string{"a", "b", "c", "d"}},
	}

	tests := []struct {
		name     string
		selected []string
		marks    float64
		outcome  Outcome
	}{
		{"half correct no wrong", []string{"a", "b"}, 4, OutcomePartial},
		{"all correct", []string{"a", "b", "c", "d"}, 8, OutcomeCorrect},
		// (2/4 - 1*0.25) * 8 = 2
		{"penalty per incorrect", []string{"a", "b", "x"}, 2, OutcomePartial},
		// (1/4 - 2*0.25) * 8 = -2 -> clamped to 0
		{"clamped at zero", []string{"a", "x", "y"}, 0, OutcomeIncorrect},
		{"duplicates ignored", []string{"a", "a", "b"}, 4, OutcomePartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Score(q, model.AnswerValue{Selected: tt.selected})
			if !almostEqual(res.Marks, tt.marks) || res.Outcome != tt.outcome {
				t.Errorf("got %+v, want marks=%v outcome=%s", res, tt.marks, tt.outcome)
			}
		})
	}
}

func TestNumerical(t *testing.T) {
	q := &model.Question{
		Type:          model.QuestionTypeNumerical,
		Marks:         3,
		NegativeMarks: 1,
		Key:           model.AnswerKey{CorrectValue: 9.8, Tolerance: 0.2},
	}

	tests := []struct {
		name    string
		text    string
		marks   float64
		outcome Outcome
	}{
		{"exact", "9.8", 3, OutcomeCorrect},
		{"inside tolerance", "9.9", 3, OutcomeCorrect},
		{"boundary is inclusive", "10.0", 3, OutcomeCorrect},
		{"lower boundary is inclusive", "9.6", 3, OutcomeCorrect},
		{"outside tolerance", "10.01", -1, OutcomeIncorrect},
		{"non-numeric no penalty", "about ten", 0, OutcomeIncorrect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Score(q, model.AnswerValue{Text: tt.text})
			if !almostEqual(res.Marks, tt.marks) || res.Outcome != tt.outcome {
				t.Errorf("got %+v, want marks=%v outcome=%s", res, tt.marks, tt.outcome)
			}
		})
	}
}

func TestFillBlank(t *testing.T) {
	key := model.AnswerKey{
		AcceptedAnswers: [][]string{{"Paris"}, {"Seine", "the Seine"}},
	}

	t.Run("strict all correct", func(t *testing.T) {
		q := &model.Question{Type: model.QuestionTypeFillBlank, Marks: 4, NegativeMarks: 1, Key: key}
		res := Score(q, model.AnswerValue{Blanks: []string{"paris", "THE SEINE"}})
		if !almostEqual(res.Marks, 4) || res.Outcome != OutcomeCorrect {
			t.Errorf("case-insensitive match got %+v", res)
		}
	})

	t.Run("strict one wrong costs negative", func(t *testing.T) {
		q := &model.Question{Type: model.QuestionTypeFillBlank, Marks: 4, NegativeMarks: 1, Key: key}
		res := Score(q, model.AnswerValue{Blanks: []string{"Paris", "Loire"}})
		if !almostEqual(res.Marks, -1) || res.Outcome != OutcomeIncorrect {
			t.Errorf("got %+v, want -1 incorrect", res)
		}
	})

	t.Run("partial credits fraction", func(t *testing.T) {
		q := &model.Question{Type: model.QuestionTypeFillBlank, Marks: 4, NegativeMarks: 1, PartialMarking: true, Key: key}
		res := Score(q, model.AnswerValue{Blanks: []string{"Paris", "Loire"}})
		if !almostEqual(res.Marks, 2) || res.Outcome != OutcomePartial {
			t.Errorf("got %+v, want 2 partial", res)
		}
	})

	t.Run("case sensitive rejects wrong case", func(t *testing.T) {
		q := &model.Question{
			Type: model.QuestionTypeFillBlank, Marks: 4, NegativeMarks: 1,
			Key: model.AnswerKey{AcceptedAnswers: [][]string{{"Paris"}}, CaseSensitive: true},
		}
		res := Score(q, model.AnswerValue{Blanks: []string{"paris"}})
		if res.Outcome != OutcomeIncorrect {
			t.Errorf("got %+v, want incorrect", res)
		}
	})
}

func TestMatching(t *testing.T) {
	key := model.AnswerKey{CorrectPairs: map[string]string{"1": "a", "2": "b", "3": "c"}}

	t.Run("exact match full marks", func(t *testing.T) {
		q := &model.Question{Type: model.QuestionTypeMatching, Marks: 6, Key: key}
		res := Score(q, model.AnswerValue{Pairs: map[string]string{"1": "a", "2": "b", "3": "c"}})
		if !almostEqual(res.Marks, 6) || res.Outcome != OutcomeCorrect {
			t.Errorf("got %+v", res)
		}
	})

	t.Run("strict mode no partial credit", func(t *testing.T) {
		q := &model.Question{Type: model.QuestionTypeMatching, Marks: 6, Key: key}
		res := Score(q, model.AnswerValue{Pairs: map[string]string{"1": "a", "2": "c", "3": "b"}})
		if !almostEqual(res.Marks, 0) || res.Outcome != OutcomeIncorrect {
			t.Errorf("got %+v, want 0 incorrect", res)
		}
	})

	t.Run("partial mode credits fraction", func(t *testing.T) {
		q := &model.Question{Type: model.QuestionTypeMatching, Marks: 6, PartialMarking: true, Key: key}
		res := Score(q, model.AnswerValue{Pairs: map[string]string{"1": "a", "2": "b", "3": "a"}})
		if !almostEqual(res.Marks, 4) || res.Outcome != OutcomePartial {
			t.Errorf("got %+v, want 4 partial", res)
		}
	})
}

func TestOrdering(t *testing.T) {
	key := model.AnswerKey{CorrectOrder: []string{"x", "y", "z"}}

	t.Run("exact order", func(t *testing.T) {
		q := &model.Question{Type: model.QuestionTypeOrdering, Marks: 3, Key: key}
		res := Score(q, model.AnswerValue{Order: []string{"x", "y", "z"}})
		if !almostEqual(res.Marks, 3) || res.Outcome != OutcomeCorrect {
			t.Errorf("got %+v", res)
		}
	})

	t.Run("partial position credit", func(t *testing.T) {
		q := &model.Question{Type: model.QuestionTypeOrdering, Marks: 3, PartialMarking: true, Key: key}
		res := Score(q, model.AnswerValue{Order: []string{"x", "z", "y"}})
		if !almostEqual(res.Marks, 1) || res.Outcome != OutcomePartial {
			t.Errorf("got %+v, want 1 partial", res)
		}
	})

	t.Run("strict wrong order scores zero", func(t *testing.T) {
		q := &model.Question{Type: model.QuestionTypeOrdering, Marks: 3, Key: key}
		res := Score(q, model.AnswerValue{Order: []string{"z", "y", "x"}})
		if !almostEqual(res.Marks, 0) || res.Outcome != OutcomeIncorrect {
			t.Errorf("got %+v, want 0 incorrect", res)
		}
	})
}

func TestHotspot(t *testing.T) {
	q := &model.Question{
		Type:          model.QuestionTypeHotspot,
		Marks:         2,
		NegativeMarks: 1,
		Key: model.AnswerKey{Regions: []model.Region{
			{X: 0, Y: 0, Width: 10, Height: 10, Correct: false},
			{X: 20, Y: 20, Width: 10, Height: 10, Correct: true},
		}},
	}

	tests := []struct {
		name    string
		point   model.Point
		marks   float64
		outcome Outcome
	}{
		{"inside correct region", model.Point{X: 25, Y: 25}, 2, OutcomeCorrect},
		{"region boundary counts", model.Point{X: 20, Y: 30}, 2, OutcomeCorrect},
		{"inside wrong region", model.Point{X: 5, Y: 5}, -1, OutcomeIncorrect},
		{"outside all regions", model.Point{X: 50, Y: 50}, -1, OutcomeIncorrect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.point
			res := Score(q, model.AnswerValue{Point: &p})
			if !almostEqual(res.Marks, tt.marks) || res.Outcome != tt.outcome {
				t.Errorf("got %+v, want marks=%v outcome=%s", res, tt.marks, tt.outcome)
			}
		})
	}
}

func TestManualGradeSentinel(t *testing.T) {
	for _, qt := range []model.QuestionType{model.QuestionTypeLongAnswer, model.QuestionTypeCode} {
		q := &model.Question{Type: qt, Marks: 10}
		res := Score(q, model.AnswerValue{Text: "some long essay"})
		if !res.Pending() {
			t.Errorf("%s: got outcome %s, want pending manual", qt, res.Outcome)
		}
		if res.Marks != 0 {
			t.Errorf("%s: pending result carries marks %v", qt, res.Marks)
		}
	}
}

func TestUnknownQuestionTypeNeverErrors(t *testing.T) {
	q := &model.Question{Type: "HOLOGRAM", Marks: 5, NegativeMarks: 5}
	res := Score(q, model.AnswerValue{Text: "anything"})
	if res.Marks != 0 || res.Outcome != OutcomeUnattempted {
		t.Fatalf("unknown type got %+v, want zero unattempted", res)
	}
}
