package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
)

func seedPendingBatch(h *harness, examID uuid.UUID, number, capacity int) *model.Batch {
	batch := &model.Batch{
		ID:          uuid.New(),
		ExamID:      examID,
		Number:      number,
		MaxCapacity: capacity,
		Status:      model.BatchStatusPending,
	}
	h.store.batches[batch.ID] = batch
	return batch
}

func TestBatchStartClaimsExamPointer(t *testing.T) {
	h := newHarness()
	exam := seedExam(h, 5, 3)
	first := seedPendingBatch(h, exam.ID, 1, 30)
	second := seedPendingBatch(h, exam.ID, 2, 30)

	started, err := h.batches.Start(context.Background(), first.ID, "admin:1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.Status != model.BatchStatusActive {
		t.Errorf("status = %s, want ACTIVE", started.Status)
	}
	if got := h.store.exams[exam.ID].ActiveBatchID; got == nil || *got != first.ID {
		t.Errorf("activeBatchID = %v, want %s", got, first.ID)
	}

	// Only one batch may be live per exam.
	if _, err := h.batches.Start(context.Background(), second.ID, "admin:2"); err != ErrAnotherBatchActive {
		t.Fatalf("second start: err = %v, want ErrAnotherBatchActive", err)
	}
	if h.store.batches[second.ID].Status != model.BatchStatusPending {
		t.Errorf("losing batch mutated to %s", h.store.batches[second.ID].Status)
	}
}

func TestBatchCompleteLocksForever(t *testing.T) {
	h := newHarness()
	exam := seedExam(h, 5, 3)
	first := seedPendingBatch(h, exam.ID, 1, 30)
	second := seedPendingBatch(h, exam.ID, 2, 30)

	if _, err := h.batches.Start(context.Background(), first.ID, "admin:1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	done, err := h.batches.Complete(context.Background(), first.ID, "admin:1")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != model.BatchStatusCompleted || !done.IsLocked {
		t.Errorf("completed batch = %+v, want COMPLETED and locked", done)
	}
	if h.store.exams[exam.ID].ActiveBatchID != nil {
		t.Error("active-batch pointer not released after complete")
	}

	// Locked means locked: no admission, no restart, no re-complete.
	if _, err := h.batches.AddStudent(context.Background(), first.ID, "admin:1"); err != ErrBatchLocked {
		t.Errorf("AddStudent on locked: err = %v, want ErrBatchLocked", err)
	}
	if _, err := h.batches.Start(context.Background(), first.ID, "admin:1"); err != ErrBatchLocked {
		t.Errorf("Start on locked: err = %v, want ErrBatchLocked", err)
	}
	if _, err := h.batches.Complete(context.Background(), first.ID, "admin:1"); err != ErrBatchLocked {
		t.Errorf("Complete on locked: err = %v, want ErrBatchLocked", err)
	}

	// The next batch can now start.
	if _, err := h.batches.Start(context.Background(), second.ID, "admin:1"); err != nil {
		t.Errorf("next batch start: %v", err)
	}
}

func TestBatchAddStudentGuards(t *testing.T) {
	h := newHarness()
	exam := seedExam(h, 5, 3)
	batch := seedPendingBatch(h, exam.ID, 1, 2)

	// Not active yet.
	if _, err := h.batches.AddStudent(context.Background(), batch.ID, "admin:1"); err != ErrBatchNotActive {
		t.Fatalf("pending batch: err = %v, want ErrBatchNotActive", err)
	}

	if _, err := h.batches.Start(context.Background(), batch.ID, "admin:1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := h.batches.AddStudent(context.Background(), batch.ID, "admin:1"); err != nil {
			t.Fatalf("AddStudent %d: %v", i+1, err)
		}
	}
	if _, err := h.batches.AddStudent(context.Background(), batch.ID, "admin:1"); err != ErrBatchFull {
		t.Fatalf("over capacity: err = %v, want ErrBatchFull", err)
	}
	if got := h.store.batches[batch.ID].CurrentCount; got != 2 {
		t.Errorf("currentCount = %d, want 2", got)
	}
}

// lockBeforeAdmitStore flips the one-way lock between the service's initial
// read and the guarded admit, reproducing a Complete racing an AddStudent.
type lockBeforeAdmitStore struct {
	fakeBatchStore
}

func (s lockBeforeAdmitStore) Admit(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	s.batches[id].IsLocked = true
	s.mu.Unlock()
	return s.fakeStore.Admit(ctx, id)
}

func TestAddStudentRefusalReflectsCurrentState(t *testing.T) {
	h := newHarness()
	exam := seedExam(h, 5, 3)
	batch := seedActiveBatch(h, exam.ID, 30)

	svc := NewBatchService(
		lockBeforeAdmitStore{fakeBatchStore{h.store}},
		fakeExamStore{h.store}, h.store, testLogger(),
	)

	// Active with free seats at the initial read, locked by the time the
	// guarded update runs. The refusal must say locked, not full.
	if _, err := svc.AddStudent(context.Background(), batch.ID, "admin:1"); err != ErrBatchLocked {
		t.Fatalf("err = %v, want ErrBatchLocked", err)
	}
	if got := h.store.batches[batch.ID].CurrentCount; got != 0 {
		t.Errorf("currentCount = %d, want 0", got)
	}
}

func TestGetNextPendingBatch(t *testing.T) {
	h := newHarness()
	exam := seedExam(h, 5, 3)
	seedPendingBatch(h, exam.ID, 3, 30)
	seedPendingBatch(h, exam.ID, 2, 30)

	next, err := h.batches.GetNextPendingBatch(context.Background(), exam.ID)
	if err != nil {
		t.Fatalf("GetNextPendingBatch: %v", err)
	}
	if next.Number != 2 {
		t.Errorf("next batch number = %d, want 2", next.Number)
	}

	if _, err := h.batches.GetActiveBatch(context.Background(), exam.ID); err != ErrBatchNotFound {
		t.Errorf("no active batch: err = %v, want ErrBatchNotFound", err)
	}
}
