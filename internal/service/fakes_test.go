package service

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

// memCatalog is an in-memory CatalogStore.
type memCatalog struct {
	mu        sync.RWMutex
	exams     map[uuid.UUID]model.Exam
	questions map[uuid.UUID]model.Question
	choices   map[uuid.UUID]model.Choice
	failWith  error
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		exams:     map[uuid.UUID]model.Exam{},
		questions: map[uuid.UUID]model.Question{},
		choices:   map[uuid.UUID]model.Choice{},
	}
}

func (m *memCatalog) addExam(start, end time.Time, durationMinutes int) model.Exam {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := model.Exam{
		ID:              uuid.New(),
		Title:           "Exam",
		InstructorID:    1,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: durationMinutes,
	}
	m.exams[e.ID] = e
	return e
}

func (m *memCatalog) addQuestion(examID uuid.UUID, qt model.QuestionType, points, order int) model.Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := model.Question{
		ID:       uuid.New(),
		ExamID:   examID,
		Text:     "Q",
		Type:     qt,
		Points:   points,
		OrderNum: order,
	}
	m.questions[q.ID] = q
	return q
}

func (m *memCatalog) addChoice(questionID uuid.UUID, correct bool) model.Choice {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := model.Choice{ID: uuid.New(), QuestionID: questionID, Text: "C", IsCorrect: correct}
	m.choices[c.ID] = c
	return c
}

func (m *memCatalog) GetExam(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	e, ok := m.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &e, nil
}

func (m *memCatalog) GetQuestion(_ context.Context, id uuid.UUID) (*model.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &q, nil
}

func (m *memCatalog) ListQuestionsForExam(_ context.Context, examID uuid.UUID, orderBy model.QuestionOrder) ([]model.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
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

func (m *memCatalog) GetChoice(_ context.Context, id uuid.UUID) (*model.Choice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.choices[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (m *memCatalog) ListChoicesForQuestion(_ context.Context, questionID uuid.UUID) ([]model.Choice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Choice
	for _, c := range m.choices {
		if c.QuestionID == questionID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// memStore is an in-memory SessionStore that counts writes.
type memStore struct {
	mu       sync.Mutex
	catalog  *memCatalog
	sessions map[sessionKey]model.ExamSession
	answers  map[answerKey]model.StudentAnswer
	writes   int
	failWith error
}

func newMemStore(catalog *memCatalog) *memStore {
	return &memStore{
		catalog:  catalog,
		sessions: map[sessionKey]model.ExamSession{},
		answers:  map[answerKey]model.StudentAnswer{},
	}
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *memStore) GetExamSession(_ context.Context, studentID int, examID uuid.UUID) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	s, ok := m.sessions[sessionKey{studentID, examID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &s, nil
}

func (m *memStore) UpsertExamSession(_ context.Context, studentID int, examID uuid.UUID, f model.ExamSessionFields) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.writes++
	key := sessionKey{studentID, examID}
	s, ok := m.sessions[key]
	if !ok {
		s = model.ExamSession{ID: uuid.New(), ExamID: examID, StudentID: studentID, CreatedAt: time.Now()}
		if f.StartedAt != nil {
			s.StartedAt = *f.StartedAt
		} else {
			s.StartedAt = time.Now()
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
	s.UpdatedAt = time.Now()
	m.sessions[key] = s
	return &s, nil
}

func (m *memStore) UpsertStudentAnswer(_ context.Context, studentID int, questionID uuid.UUID, f model.StudentAnswerFields) (*model.StudentAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	if !m.inProgress(studentID, questionID) {
		return nil, pgx.ErrNoRows
	}
	m.writes++
	key := answerKey{studentID, questionID}
	a, ok := m.answers[key]
	if !ok {
		a = model.StudentAnswer{ID: uuid.New(), StudentID: studentID, QuestionID: questionID, SubmittedAt: time.Now()}
	}
	a.ChoiceID = f.ChoiceID
	a.TextAnswer = f.TextAnswer
	a.UpdatedAt = time.Now()
	m.answers[key] = a
	return &a, nil
}

// inProgress mirrors the conditional insert of the SQL store. Callers hold m.mu.
func (m *memStore) inProgress(studentID int, questionID uuid.UUID) bool {
	m.catalog.mu.RLock()
	q, ok := m.catalog.questions[questionID]
	m.catalog.mu.RUnlock()
	if !ok {
		return false
	}
	return m.sessions[sessionKey{studentID, q.ExamID}].State == model.SessionStateInProgress
}

func (m *memStore) ListStudentAnswers(_ context.Context, studentID int, examID uuid.UUID) ([]model.StudentAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.StudentAnswer
	for k, a := range m.answers {
		if k.studentID != studentID {
			continue
		}
		q, ok := m.catalog.questions[k.questionID]
		if ok && q.ExamID == examID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListFinishedSessions(_ context.Context, examID uuid.UUID) ([]model.ExamSession, error) {
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
