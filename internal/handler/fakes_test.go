package handler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exam-session-engine/internal/model"
)

type sessionKey struct {
	studentID int
	examID    uuid.UUID
}

type answerKey struct {
	studentID  int
	questionID uuid.UUID
}

// memDB backs every store interface the handlers reach through services.
type memDB struct {
	mu        sync.Mutex
	exams     map[uuid.UUID]model.Exam
	questions map[uuid.UUID]model.Question
	choices   map[uuid.UUID]model.Choice
	sessions  map[sessionKey]model.ExamSession
	answers   map[answerKey]model.StudentAnswer
	rescores  []uuid.UUID
}

func newMemDB() *memDB {
	return &memDB{
		exams:     map[uuid.UUID]model.Exam{},
		questions: map[uuid.UUID]model.Question{},
		choices:   map[uuid.UUID]model.Choice{},
		sessions:  map[sessionKey]model.ExamSession{},
		answers:   map[answerKey]model.StudentAnswer{},
	}
}

func (m *memDB) seedExam(instructorID int) model.Exam {
	now := time.Now()
	e := model.Exam{
		ID:              uuid.New(),
		Title:           "Seeded",
		InstructorID:    instructorID,
		StartTime:       now.Add(-time.Hour),
		EndTime:         now.Add(time.Hour),
		DurationMinutes: 30,
	}
	m.mu.Lock()
	m.exams[e.ID] = e
	m.mu.Unlock()
	return e
}

func (m *memDB) seedQuestion(examID uuid.UUID, qt model.QuestionType, points, order int) model.Question {
	q := model.Question{ID: uuid.New(), ExamID: examID, Text: "Q", Type: qt, Points: points, OrderNum: order}
	m.mu.Lock()
	m.questions[q.ID] = q
	m.mu.Unlock()
	return q
}

func (m *memDB) seedChoice(questionID uuid.UUID, correct bool) model.Choice {
	c := model.Choice{ID: uuid.New(), QuestionID: questionID, Text: "C", IsCorrect: correct}
	m.mu.Lock()
	m.choices[c.ID] = c
	m.mu.Unlock()
	return c
}

// ─── Catalog ────────────────────────────────────────────────────────

func (m *memDB) GetExam(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &e, nil
}

func (m *memDB) ListExams(_ context.Context, instructorID, limit, offset int) ([]model.Exam, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Exam
	for _, e := range m.exams {
		if instructorID == 0 || e.InstructorID == instructorID {
			all = append(all, e)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.String() < all[j].ID.String() })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	return all[offset:min(offset+limit, total)], total, nil
}

func (m *memDB) CreateExam(_ context.Context, e *model.Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.New()
	m.exams[e.ID] = *e
	return nil
}

func (m *memDB) UpdateExam(_ context.Context, e *model.Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exams[e.ID] = *e
	return nil
}

func (m *memDB) GetQuestion(_ context.Context, id uuid.UUID) (*model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &q, nil
}

func (m *memDB) ListQuestionsForExam(_ context.Context, examID uuid.UUID, orderBy model.QuestionOrder) ([]model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Question
	for _, q := range m.questions {
		if q.ExamID == examID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if orderBy == model.OrderByID {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].Before(&out[j])
	})
	return out, nil
}

func (m *memDB) CreateQuestion(_ context.Context, q *model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = uuid.New()
	m.questions[q.ID] = *q
	return nil
}

func (m *memDB) UpdateQuestion(_ context.Context, q *model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = *q
	return nil
}

func (m *memDB) GetChoice(_ context.Context, id uuid.UUID) (*model.Choice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.choices[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (m *memDB) ListChoicesForQuestion(_ context.Context, questionID uuid.UUID) ([]model.Choice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Choice
	for _, c := range m.choices {
		if c.QuestionID == questionID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (m *memDB) CreateChoice(_ context.Context, c *model.Choice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	m.choices[c.ID] = *c
	return nil
}

func (m *memDB) UpdateChoice(_ context.Context, c *model.Choice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.choices[c.ID] = *c
	return nil
}

// ─── Sessions ───────────────────────────────────────────────────────

func (m *memDB) GetExamSession(_ context.Context, studentID int, examID uuid.UUID) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionKey{studentID, examID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &s, nil
}

func (m *memDB) UpsertExamSession(_ context.Context, studentID int, examID uuid.UUID, f model.ExamSessionFields) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey{studentID, examID}
	s, ok := m.sessions[key]
	if !ok {
		s = model.ExamSession{ID: uuid.New(), ExamID: examID, StudentID: studentID, StartedAt: time.Now()}
		if f.StartedAt != nil {
			s.StartedAt = *f.StartedAt
		}
	}
	if s.State != model.SessionStateFinished {
		s.State = f.State
	}
	if s.FinishedAt == nil && f.FinishedAt != nil {
		t := *f.FinishedAt
		s.FinishedAt = &t
	}
	if f.Score != nil {
		v := *f.Score
		s.Score = &v
	}
	m.sessions[key] = s
	return &s, nil
}

func (m *memDB) UpsertStudentAnswer(_ context.Context, studentID int, questionID uuid.UUID, f model.StudentAnswerFields) (*model.StudentAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[questionID]
	if !ok || m.sessions[sessionKey{studentID, q.ExamID}].State != model.SessionStateInProgress {
		return nil, pgx.ErrNoRows
	}
	key := answerKey{studentID, questionID}
	a, ok := m.answers[key]
	if !ok {
		a = model.StudentAnswer{ID: uuid.New(), StudentID: studentID, QuestionID: questionID, SubmittedAt: time.Now()}
	}
	a.ChoiceID = f.ChoiceID
	a.TextAnswer = f.TextAnswer
	m.answers[key] = a
	return &a, nil
}

func (m *memDB) ListStudentAnswers(_ context.Context, studentID int, examID uuid.UUID) ([]model.StudentAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.StudentAnswer
	for k, a := range m.answers {
		if q, ok := m.questions[k.questionID]; ok && k.studentID == studentID && q.ExamID == examID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memDB) ListFinishedSessions(_ context.Context, examID uuid.UUID) ([]model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ExamSession
	for _, s := range m.sessions {
		if s.ExamID == examID && s.State == model.SessionStateFinished {
			out = append(out, s)
		}
	}
	return out, nil
}

// ─── Results ────────────────────────────────────────────────────────

func (m *memDB) ListByStudent(_ context.Context, studentID int) ([]model.StudentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.StudentResult
	for k, s := range m.sessions {
		if k.studentID != studentID {
			continue
		}
		out = append(out, model.StudentResult{
			ExamID:     s.ExamID,
			ExamTitle:  m.exams[s.ExamID].Title,
			State:      s.State,
			StartedAt:  s.StartedAt,
			FinishedAt: s.FinishedAt,
			Score:      s.Score,
			IsApproved: s.IsApproved,
		})
	}
	return out, nil
}

func (m *memDB) ListByExam(_ context.Context, examID uuid.UUID, limit, offset int) ([]model.ExamResult, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.ExamResult
	for k, s := range m.sessions {
		if k.examID != examID {
			continue
		}
		all = append(all, model.ExamResult{
			StudentID:  k.studentID,
			State:      s.State,
			Score:      s.Score,
			IsApproved: s.IsApproved,
			StartedAt:  s.StartedAt,
			FinishedAt: s.FinishedAt,
		})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StudentID < all[j].StudentID })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	return all[offset:min(offset+limit, total)], total, nil
}

func (m *memDB) Approve(_ context.Context, studentID int, examID uuid.UUID) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey{studentID, examID}
	s, ok := m.sessions[key]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	s.IsApproved = true
	m.sessions[key] = s
	return &s, nil
}

// ─── Rescore queue ──────────────────────────────────────────────────

func (m *memDB) EnqueueRescore(_ context.Context, examID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rescores = append(m.rescores, examID)
	return nil
}

func (m *memDB) rescoreCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rescores)
}
