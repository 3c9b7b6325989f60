package service

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
)

func seedQuestion(h *harness, examID uuid.UUID, qtype model.QuestionType, marks, negative float64, key model.AnswerKey) *model.Question {
	q := model.Question{
		ID:       uuid.New(),
		ExamID:   examID,
		Type:     qtype,
		Marks:    marks,
		IsActive: true,
		Key:      key,
	}
	q.NegativeMarks = negative
	h.store.questions[examID] = append(h.store.questions[examID], q)
	return &h.store.questions[examID][len(h.store.questions[examID])-1]
}

func seedAnswer(h *harness, sessionID, questionID uuid.UUID, value model.AnswerValue) {
	h.store.answers[sessionID] = append(h.store.answers[sessionID], model.Answer{
		ID:         uuid.New(),
		SessionID:  sessionID,
		QuestionID: questionID,
		Value:      value,
		Visited:    true,
	})
}

func TestFinalizeTallies(t *testing.T) {
	h := newHarness()
	exam := seedExam(h, 5, 3)
	seedActiveBatch(h, exam.ID, 10)
	sess := createAttempt(t, h, exam.ID, 1)

	qCorrect := seedQuestion(h, exam.ID, model.QuestionTypeSingleChoice, 4, 1,
		model.AnswerKey{CorrectOptions: []string{"b"}})
	qWrong := seedQuestion(h, exam.ID, model.QuestionTypeSingleChoice, 4, 1,
		model.AnswerKey{CorrectOptions: []string{"a"}})
	qEssay := seedQuestion(h, exam.ID, model.QuestionTypeLongAnswer, 10, 0, model.AnswerKey{})
	seedQuestion(h, exam.ID, model.QuestionTypeNumerical, 2, 0.5,
		model.AnswerKey{CorrectValue: 9.81, Tolerance: 0.01}) // left unattempted

	seedAnswer(h, sess.ID, qCorrect.ID, model.AnswerValue{Selected: []string{"b"}})
	seedAnswer(h, sess.ID, qWrong.ID, model.AnswerValue{Selected: []string{"c"}})
	seedAnswer(h, sess.ID, qEssay.ID, model.AnswerValue{Text: "An essay."})

	snap, err := h.submissions.Finalize(context.Background(), sess.ID, model.SubmissionTypeManual, "student:1")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if snap.TotalMarks != 20 {
		t.Errorf("totalMarks = %v, want 20", snap.TotalMarks)
	}
	if snap.MarksObtained != 3 { // +4 correct, -1 wrong, essay pending
		t.Errorf("marksObtained = %v, want 3", snap.MarksObtained)
	}
	if want := 3.0 / 20 * 100; math.Abs(snap.Percentage-want) > 1e-9 {
		t.Errorf("percentage = %v, want %v", snap.Percentage, want)
	}
	if snap.QuestionsAttempted != 3 {
		t.Errorf("questionsAttempted = %d, want 3", snap.QuestionsAttempted)
	}
	// Pending-manual answers count in neither correct nor wrong.
	if snap.CorrectAnswers != 1 || snap.WrongAnswers != 1 || snap.PendingManual != 1 {
		t.Errorf("tallies = correct %d wrong %d pending %d, want 1/1/1",
			snap.CorrectAnswers, snap.WrongAnswers, snap.PendingManual)
	}
	if snap.Unattempted != 1 {
		t.Errorf("unattempted = %d, want 1", snap.Unattempted)
	}
	if !h.store.cleared[sess.ID] {
		t.Error("autosave buffer not cleared after finalize")
	}
}

func TestFinalizeZeroTotalMarks(t *testing.T) {
	h := newHarness()
	exam := seedExam(h, 5, 3)
	seedActiveBatch(h, exam.ID, 10)
	sess := createAttempt(t, h, exam.ID, 1)

	snap, err := h.submissions.Finalize(context.Background(), sess.ID, model.SubmissionTypeManual, "student:1")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if snap.Percentage != 0 {
		t.Errorf("percentage = %v, want 0 when totalMarks is 0", snap.Percentage)
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	h := newHarness()
	exam := seedExam(h, 5, 3)
	seedActiveBatch(h, exam.ID, 10)
	sess := createAttempt(t, h, exam.ID, 1)

	q := seedQuestion(h, exam.ID, model.QuestionTypeSingleChoice, 4, 1,
		model.AnswerKey{CorrectOptions: []string{"a"}})
	seedAnswer(h, sess.ID, q.ID, model.AnswerValue{Selected: []string{"a"}})

	first, err := h.submissions.Finalize(context.Background(), sess.ID, model.SubmissionTypeManual, "student:1")
	if err != nil {
		t.Fatalf("first Finalize: %v", err)
	}

	// A racing timeout sweep after the manual submit must return the cached
	// snapshot, not re-grade under the new trigger.
	second, err := h.submissions.Finalize(context.Background(), sess.ID, model.SubmissionTypeAutoTimeout, "system")
	if err != nil {
		t.Fatalf("second Finalize: %v", err)
	}

	if *first != *second {
		t.Errorf("snapshots differ:\nfirst  %+v\nsecond %+v", *first, *second)
	}
	if second.SubmissionType != model.SubmissionTypeManual {
		t.Errorf("second trigger leaked into snapshot: %s", second.SubmissionType)
	}
	if h.store.sessions[sess.ID].Status != model.SessionStatusSubmitted {
		t.Errorf("status = %s, want SUBMITTED to stand", h.store.sessions[sess.ID].Status)
	}
}

func TestSealedSessionWithoutSnapshotIsRebuilt(t *testing.T) {
	h := newHarness()
	exam := seedExam(h, 5, 3)
	seedActiveBatch(h, exam.ID, 10)
	sess := createAttempt(t, h, exam.ID, 1)

	q := seedQuestion(h, exam.ID, model.QuestionTypeSingleChoice, 4, 1,
		model.AnswerKey{CorrectOptions: []string{"b"}})
	seedAnswer(h, sess.ID, q.ID, model.AnswerValue{Selected: []string{"b"}})

	// Seal the session directly, with no snapshot row: the state left behind
	// by a crash between the status compare-and-set and the insert.
	sealedAt := time.Now().Add(-time.Minute).Truncate(time.Second)
	won, err := h.store.Finish(context.Background(), sess.ID,
		model.SessionStatusExpired, model.SubmissionTypeAutoTimeout, sealedAt)
	if err != nil || !won {
		t.Fatalf("seed Finish: won=%v err=%v", won, err)
	}

	// The result must still be retrievable, graded under the sealed session's
	// own trigger and timestamp, not the caller's.
	got, err := h.submissions.GetResult(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.SubmissionType != model.SubmissionTypeAutoTimeout {
		t.Errorf("rebuilt trigger = %s, want %s", got.SubmissionType, model.SubmissionTypeAutoTimeout)
	}
	if !got.SubmittedAt.Equal(sealedAt) {
		t.Errorf("rebuilt submittedAt = %v, want %v", got.SubmittedAt, sealedAt)
	}
	if got.MarksObtained != 4 || got.CorrectAnswers != 1 {
		t.Errorf("rebuilt score = %v/%d correct, want 4/1", got.MarksObtained, got.CorrectAnswers)
	}

	// A late Finalize on the same session returns the rebuilt row unchanged.
	snap, err := h.submissions.Finalize(context.Background(), sess.ID, model.SubmissionTypeManual, "student:1")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if *snap != *got {
		t.Errorf("snapshots differ:\nrebuilt  %+v\nfinalize %+v", *got, *snap)
	}
}

func TestGetResultLiveSessionHasNoResult(t *testing.T) {
	h := newHarness()
	exam := seedExam(h, 5, 3)
	seedActiveBatch(h, exam.ID, 10)
	sess := createAttempt(t, h, exam.ID, 1)

	if _, err := h.submissions.GetResult(context.Background(), sess.ID); err != ErrSessionNotFound {
		t.Fatalf("GetResult on live session: err = %v, want ErrSessionNotFound", err)
	}
}

func TestFinalizeConcurrent(t *testing.T) {
	h := newHarness()
	exam := seedExam(h, 5, 3)
	seedActiveBatch(h, exam.ID, 10)
	sess := createAttempt(t, h, exam.ID, 1)

	q := seedQuestion(h, exam.ID, model.QuestionTypeSingleChoice, 4, 1,
		model.AnswerKey{CorrectOptions: []string{"a"}})
	seedAnswer(h, sess.ID, q.ID, model.AnswerValue{Selected: []string{"a"}})

	const n = 8
	snaps := make([]*model.Submission, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			trigger := model.SubmissionTypeManual
			if i%2 == 0 {
				trigger = model.SubmissionTypeAutoTimeout
			}
			snap, err := h.submissions.Finalize(context.Background(), sess.ID, trigger, "race")
			if err != nil {
				t.Errorf("Finalize %d: %v", i, err)
				return
			}
			snaps[i] = snap
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if snaps[i] == nil || snaps[0] == nil {
			continue
		}
		if *snaps[i] != *snaps[0] {
			t.Fatalf("snapshot %d differs from snapshot 0", i)
		}
	}
	if len(h.store.audits) == 0 {
		t.Error("expected at least one audit entry")
	}
}
