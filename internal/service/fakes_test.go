package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/binding"
	"github.com/invigilo/invigilo-backend/internal/config"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// fakeStore is an in-memory implementation of every store interface, used in
// place of the pgx repositories. Guards follow the same semantics as the SQL:
// conditional updates return false instead of mutating, missing rows surface
// as pgx.ErrNoRows.
type fakeStore struct {
	mu          sync.Mutex
	sessions    map[uuid.UUID]*model.Session
	exams       map[uuid.UUID]*model.Exam
	batches     map[uuid.UUID]*model.Batch
	questions   map[uuid.UUID][]model.Question
	violations  map[uuid.UUID][]model.Violation
	submissions map[uuid.UUID]*model.Submission
	answers     map[uuid.UUID][]model.Answer
	scored      map[uuid.UUID]map[uuid.UUID]model.Answer
	cleared     map[uuid.UUID]bool
	audits      []model.AuditEvent
	events      []MonitorEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:    make(map[uuid.UUID]*model.Session),
		exams:       make(map[uuid.UUID]*model.Exam),
		batches:     make(map[uuid.UUID]*model.Batch),
		questions:   make(map[uuid.UUID][]model.Question),
		violations:  make(map[uuid.UUID][]model.Violation),
		submissions: make(map[uuid.UUID]*model.Submission),
		answers:     make(map[uuid.UUID][]model.Answer),
		scored:      make(map[uuid.UUID]map[uuid.UUID]model.Answer),
		cleared:     make(map[uuid.UUID]bool),
	}
}

func copySession(s *model.Session) *model.Session {
	cp := *s
	return &cp
}

// --- SessionStore ---

func (f *fakeStore) GetByToken(_ context.Context, token string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Token == token {
			return copySession(s), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copySession(s), nil
}

func (f *fakeStore) GetByExamAndStudent(_ context.Context, examID uuid.UUID, studentID int) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ExamID == examID && s.StudentID == studentID {
			return copySession(s), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) Create(_ context.Context, s *model.Session) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.sessions {
		if existing.ExamID == s.ExamID && existing.StudentID == s.StudentID {
			return false, nil
		}
	}
	f.sessions[s.ID] = copySession(s)
	return true, nil
}

func (f *fakeStore) UpdateIP(_ context.Context, id uuid.UUID, ip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		s.IPAddress = ip
	}
	return nil
}

func (f *fakeStore) Touch(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		s.LastActivityAt = time.Now()
	}
	return nil
}

func (f *fakeStore) Finish(_ context.Context, id uuid.UUID, to model.SessionStatus, subType model.SubmissionType, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.Status != model.SessionStatusActive {
		return false, nil
	}
	s.Status = to
	s.SubmittedAt = &at
	s.SubmissionType = &subType
	return true, nil
}

func (f *fakeStore) ListExpired(_ context.Context, now time.Time, limit int) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Session
	for _, s := range f.sessions {
		if s.Status == model.SessionStatusActive && now.After(s.ServerEndTime) {
			out = append(out, *s)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) ListActiveByExam(_ context.Context, examID uuid.UUID) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Session
	for _, s := range f.sessions {
		if s.ExamID == examID && s.Status == model.SessionStatusActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

// --- ViolationStore ---

func (f *fakeStore) Append(_ context.Context, v *model.Violation) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v.ID = uuid.New()
	f.violations[v.SessionID] = append(f.violations[v.SessionID], *v)
	count := len(f.violations[v.SessionID])
	if s, ok := f.sessions[v.SessionID]; ok {
		s.ViolationCount = count
	}
	return count, nil
}

func (f *fakeStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.Violation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Violation(nil), f.violations[sessionID]...), nil
}

// --- ExamStore ---

func (f *fakeStore) GetExamByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) ClaimActiveBatch(_ context.Context, examID, batchID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.exams[examID]
	if !ok || e.ActiveBatchID != nil {
		return false, nil
	}
	id := batchID
	e.ActiveBatchID = &id
	return true, nil
}

func (f *fakeStore) ReleaseActiveBatch(_ context.Context, examID, batchID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.exams[examID]; ok && e.ActiveBatchID != nil && *e.ActiveBatchID == batchID {
		e.ActiveBatchID = nil
	}
	return nil
}

// --- BatchStore ---

func (f *fakeStore) GetBatchByID(_ context.Context, id uuid.UUID) (*model.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.batches[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) Admit(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.batches[id]
	if !ok || b.IsLocked || b.Status != model.BatchStatusActive || b.CurrentCount >= b.MaxCapacity {
		return false, nil
	}
	b.CurrentCount++
	return true, nil
}

func (f *fakeStore) Release(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.batches[id]; ok && b.CurrentCount > 0 {
		b.CurrentCount--
	}
	return nil
}

func (f *fakeStore) Start(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.batches[id]
	if !ok || b.IsLocked || (b.Status != model.BatchStatusPending && b.Status != model.BatchStatusQueued) {
		return false, nil
	}
	b.Status = model.BatchStatusActive
	b.StartedAt = &at
	return true, nil
}

func (f *fakeStore) Complete(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.batches[id]
	if !ok || b.IsLocked {
		return false, nil
	}
	b.Status = model.BatchStatusCompleted
	b.IsLocked = true
	b.CompletedAt = &at
	return true, nil
}

func (f *fakeStore) GetActiveByExam(_ context.Context, examID uuid.UUID) (*model.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.batches {
		if b.ExamID == examID && b.Status == model.BatchStatusActive {
			cp := *b
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) GetNextPendingByExam(_ context.Context, examID uuid.UUID) (*model.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var next *model.Batch
	for _, b := range f.batches {
		if b.ExamID == examID && b.Status == model.BatchStatusPending {
			if next == nil || b.Number < next.Number {
				next = b
			}
		}
	}
	if next == nil {
		return nil, pgx.ErrNoRows
	}
	cp := *next
	return &cp, nil
}

func (f *fakeStore) ListByExam(_ context.Context, examID uuid.UUID) ([]model.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Batch
	for _, b := range f.batches {
		if b.ExamID == examID {
			out = append(out, *b)
		}
	}
	return out, nil
}

// --- QuestionStore ---

func (f *fakeStore) ListQuestionsByExam(_ context.Context, examID uuid.UUID) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Question(nil), f.questions[examID]...), nil
}

// --- SubmissionStore ---

func (f *fakeStore) CreateSubmission(_ context.Context, s *model.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.submissions[s.SessionID]; exists {
		return nil
	}
	s.ID = uuid.New()
	cp := *s
	f.submissions[s.SessionID] = &cp
	return nil
}

func (f *fakeStore) GetBySession(_ context.Context, sessionID uuid.UUID) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.submissions[sessionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

// --- AnswerSource ---

func (f *fakeStore) ListForScoring(_ context.Context, sessionID uuid.UUID) ([]model.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Answer(nil), f.answers[sessionID]...), nil
}

func (f *fakeStore) RecordScores(_ context.Context, sessionID uuid.UUID, scores map[uuid.UUID]model.Answer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scored[sessionID] = scores
	return nil
}

func (f *fakeStore) Clear(_ context.Context, sessionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared[sessionID] = true
	return nil
}

// --- AuditSink / EventPublisher ---

func (f *fakeStore) Emit(_ context.Context, e model.AuditEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, e)
}

func (f *fakeStore) Publish(_ context.Context, _ uuid.UUID, event any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if me, ok := event.(MonitorEvent); ok {
		f.events = append(f.events, me)
	}
}

// Narrow adapters so one fakeStore serves interfaces whose method names
// collide (GetByID, Create, ListByExam).

type fakeExamStore struct{ *fakeStore }

func (f fakeExamStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return f.GetExamByID(ctx, id)
}

type fakeBatchStore struct{ *fakeStore }

func (f fakeBatchStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	return f.GetBatchByID(ctx, id)
}

type fakeQuestionStore struct{ *fakeStore }

func (f fakeQuestionStore) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	return f.ListQuestionsByExam(ctx, examID)
}

type fakeSubmissionStore struct{ *fakeStore }

func (f fakeSubmissionStore) Create(ctx context.Context, s *model.Submission) error {
	return f.CreateSubmission(ctx, s)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// harness wires the full service graph over one fakeStore.
type harness struct {
	store       *fakeStore
	submissions *SubmissionService
	violations  *ViolationService
	sessions    *SessionService
	batches     *BatchService
}

func newHarness() *harness {
	store := newFakeStore()
	log := testLogger()

	sub := NewSubmissionService(
		store, fakeQuestionStore{store}, store, fakeSubmissionStore{store},
		store, store, log,
	)
	vio := NewViolationService(store, store, sub, store, store, log)
	cfg := &config.Config{DefaultMaxViolations: 5, DefaultWarnViolations: 3}
	ses := NewSessionService(
		store, fakeExamStore{store}, fakeBatchStore{store},
		vio, sub, binding.DefaultPolicy{}, store, cfg, log,
	)
	bat := NewBatchService(fakeBatchStore{store}, fakeExamStore{store}, store, log)

	return &harness{store: store, submissions: sub, violations: vio, sessions: ses, batches: bat}
}
