package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-session-engine/internal/model"
)

// CatalogStore is the read side of exams, questions and choices.
// Missing records are reported as pgx.ErrNoRows.
type CatalogStore interface {
	GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error)
	GetQuestion(ctx context.Context, questionID uuid.UUID) (*model.Question, error)
	ListQuestionsForExam(ctx context.Context, examID uuid.UUID, orderBy model.QuestionOrder) ([]model.Question, error)
	GetChoice(ctx context.Context, choiceID uuid.UUID) (*model.Choice, error)
	ListChoicesForQuestion(ctx context.Context, questionID uuid.UUID) ([]model.Choice, error)
}

// SessionStore persists sessions and answers. Both upserts must be atomic
// on their unique keys: (student, exam) and (student, question).
//
// UpsertExamSession never moves started_at or finished_at once set and never
// takes a FINISHED session back to another state. UpsertStudentAnswer writes
// only while the question's exam session is IN_PROGRESS, in the same statement,
// and returns pgx.ErrNoRows otherwise.
type SessionStore interface {
	GetExamSession(ctx context.Context, studentID int, examID uuid.UUID) (*model.ExamSession, error)
	UpsertExamSession(ctx context.Context, studentID int, examID uuid.UUID, f model.ExamSessionFields) (*model.ExamSession, error)
	UpsertStudentAnswer(ctx context.Context, studentID int, questionID uuid.UUID, f model.StudentAnswerFields) (*model.StudentAnswer, error)
	ListStudentAnswers(ctx context.Context, studentID int, examID uuid.UUID) ([]model.StudentAnswer, error)
	ListFinishedSessions(ctx context.Context, examID uuid.UUID) ([]model.ExamSession, error)
}

// AnswerPayload is a student's answer. Exactly one field must be set and it
// must match the question's family.
type AnswerPayload struct {
	ChoiceID *uuid.UUID
	Text     *string
}

// StartResult is returned by StartSession.
type StartResult struct {
	Session        *model.ExamSession        `json:"session"`
	Question       *model.QuestionForStudent `json:"question"`
	TotalQuestions int                       `json:"total_questions"`
	RemainingTime  float64                   `json:"remaining_seconds"`
}

// SubmitResult is returned by SubmitAnswer. Next is nil once the
// question sequence is exhausted.
type SubmitResult struct {
	Answer    *model.StudentAnswer      `json:"answer"`
	Next      *model.QuestionForStudent `json:"next"`
	Exhausted bool                      `json:"exhausted"`
}

// ExamSessionService takes a student through an exam: start, answer, finish.
// It keeps no state between calls.
type ExamSessionService struct {
	catalog CatalogStore
	store   SessionStore
	log     zerolog.Logger
	now     func() time.Time
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(catalog CatalogStore, store SessionStore, log zerolog.Logger) *ExamSessionService {
	return &ExamSessionService{
		catalog: catalog,
		store:   store,
		log:     log.With().Str("component", "exam_session_service").Logger(),
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *ExamSessionService) WithClock(now func() time.Time) *ExamSessionService {
	s.now = now
	return s
}

// State returns the state of the (student, exam) attempt. A missing row is NOT_STARTED.
func (s *ExamSessionService) State(ctx context.Context, studentID int, examID uuid.UUID) (model.SessionState, error) {
	sess, err := s.lookupSession(ctx, studentID, examID)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return model.SessionStateNotStarted, nil
	}
	return sess.State, nil
}

// StartSession creates or fetches the student's session and returns the
// first question. The start timestamp is recorded on the first call only.
func (s *ExamSessionService) StartSession(ctx context.Context, studentID int, examID uuid.UUID) (*StartResult, error) {
	exam, err := s.catalog.GetExam(ctx, examID)
	if err != nil {
		return nil, storeErr("get exam", err)
	}

	existing, err := s.lookupSession(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.State == model.SessionStateFinished {
		return nil, ErrAlreadyCompleted
	}

	now := s.now()
	if !exam.InWindow(now) {
		return nil, ErrOutOfWindow
	}

	questions, err := s.catalog.ListQuestionsForExam(ctx, examID, model.OrderByPosition)
	if err != nil {
		return nil, storeErr("list questions", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	first, err := s.forStudent(ctx, &questions[0])
	if err != nil {
		return nil, err
	}

	sess := existing
	if sess == nil {
		sess, err = s.store.UpsertExamSession(ctx, studentID, examID, model.ExamSessionFields{
			State:     model.SessionStateInProgress,
			StartedAt: &now,
		})
		if err != nil {
			return nil, storeErr("create session", err)
		}
		s.log.Info().
			Int("student_id", studentID).
			Str("exam_id", examID.String()).
			Time("started_at", sess.StartedAt).
			Msg("Exam session started")
	}

	return &StartResult{
		Session:        sess,
		Question:       first,
		TotalQuestions: len(questions),
		RemainingTime:  RemainingTime(sess, exam, now).Seconds(),
	}, nil
}

// RemainingTime computes start + duration - now, clamped to zero.
func RemainingTime(sess *model.ExamSession, exam *model.Exam, now time.Time) time.Duration {
	remaining := sess.StartedAt.Add(exam.Duration()).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GetRemainingTime reports how much of the attempt's time allowance is left.
// It is advisory; no operation refuses work once it reaches zero.
func (s *ExamSessionService) GetRemainingTime(ctx context.Context, studentID int, examID uuid.UUID) (time.Duration, error) {
	exam, err := s.catalog.GetExam(ctx, examID)
	if err != nil {
		return 0, storeErr("get exam", err)
	}

	sess, err := s.requireSession(ctx, studentID, examID)
	if err != nil {
		return 0, err
	}

	return RemainingTime(sess, exam, s.now()), nil
}

// GetQuestion returns any question of the exam for an in-progress attempt,
// so the student can navigate back to an earlier answer.
func (s *ExamSessionService) GetQuestion(ctx context.Context, studentID int, examID, questionID uuid.UUID) (*model.QuestionForStudent, error) {
	if _, err := s.requireInProgress(ctx, studentID, examID); err != nil {
		return nil, err
	}

	q, err := s.catalog.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, storeErr("get question", err)
	}
	if q.ExamID != examID {
		return nil, fmt.Errorf("question %s: %w", questionID, ErrNotFound)
	}

	return s.forStudent(ctx, q)
}

// SubmitAnswer stores (or overwrites) the student's answer to one question and
// returns the next question in presentation order.
func (s *ExamSessionService) SubmitAnswer(ctx context.Context, studentID int, examID, questionID uuid.UUID, payload AnswerPayload) (*SubmitResult, error) {
	if _, err := s.requireInProgress(ctx, studentID, examID); err != nil {
		return nil, err
	}

	q, err := s.catalog.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, storeErr("get question", err)
	}
	if q.ExamID != examID {
		return nil, fmt.Errorf("question %s: %w", questionID, ErrNotFound)
	}

	fields, err := s.validatePayload(ctx, q, payload)
	if err != nil {
		return nil, err
	}

	questions, err := s.catalog.ListQuestionsForExam(ctx, examID, model.OrderByPosition)
	if err != nil {
		return nil, storeErr("list questions", err)
	}

	answer, err := s.store.UpsertStudentAnswer(ctx, studentID, questionID, fields)
	if err != nil {
		if isNoRows(err) {
			// Finished between the state check and the write.
			return nil, fmt.Errorf("save answer: %w", ErrAlreadyCompleted)
		}
		return nil, storeErr("save answer", err)
	}

	s.log.Debug().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Str("question_id", questionID.String()).
		Msg("Answer saved")

	result := &SubmitResult{Answer: answer}
	next := nextQuestion(questions, q)
	if next == nil {
		result.Exhausted = true
		return result, nil
	}

	result.Next, err = s.forStudent(ctx, next)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FinishSession scores the attempt from the stored answers and marks it
// FINISHED. Calling it again recomputes and overwrites the score.
func (s *ExamSessionService) FinishSession(ctx context.Context, studentID int, examID uuid.UUID) (*model.ExamSession, error) {
	existing, err := s.requireSession(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}

	score, err := s.score(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess, err := s.store.UpsertExamSession(ctx, studentID, examID, model.ExamSessionFields{
		State:      model.SessionStateFinished,
		FinishedAt: &now,
		Score:      &score,
	})
	if err != nil {
		return nil, storeErr("finish session", err)
	}

	s.log.Info().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Float64("score", score).
		Bool("rescored", existing.State == model.SessionStateFinished).
		Msg("Exam session scored")

	return sess, nil
}

// Rescore recomputes the score of every finished session of an exam.
// It returns the number of sessions rescored and any per-session failures.
func (s *ExamSessionService) Rescore(ctx context.Context, examID uuid.UUID) (int, error) {
	sessions, err := s.store.ListFinishedSessions(ctx, examID)
	if err != nil {
		return 0, storeErr("list finished sessions", err)
	}

	var errs []error
	done := 0
	for _, sess := range sessions {
		if _, err := s.FinishSession(ctx, sess.StudentID, examID); err != nil {
			errs = append(errs, fmt.Errorf("student %d: %w", sess.StudentID, err))
			continue
		}
		done++
	}

	return done, errors.Join(errs...)
}

// score sums question points over answers that reference a correct choice.
// Essay and unanswered questions contribute nothing, judged by the question's
// current type.
func (s *ExamSessionService) score(ctx context.Context, studentID int, examID uuid.UUID) (float64, error) {
	answers, err := s.store.ListStudentAnswers(ctx, studentID, examID)
	if err != nil {
		return 0, storeErr("list answers", err)
	}

	questions, err := s.catalog.ListQuestionsForExam(ctx, examID, model.OrderByID)
	if err != nil {
		return 0, storeErr("list questions", err)
	}
	byID := make(map[uuid.UUID]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	total := 0
	for _, a := range answers {
		if a.ChoiceID == nil {
			continue
		}
		q, ok := byID[a.QuestionID]
		if !ok || !q.Type.IsMultipleChoice() {
			continue
		}
		choice, err := s.catalog.GetChoice(ctx, *a.ChoiceID)
		if err != nil {
			if isNoRows(err) {
				// Choice deleted after it was selected.
				continue
			}
			return 0, storeErr("get choice", err)
		}
		if choice.QuestionID == a.QuestionID && choice.IsCorrect {
			total += q.Points
		}
	}

	return float64(total), nil
}

func (s *ExamSessionService) validatePayload(ctx context.Context, q *model.Question, p AnswerPayload) (model.StudentAnswerFields, error) {
	switch {
	case q.Type.IsMultipleChoice():
		if p.ChoiceID == nil || p.Text != nil {
			return model.StudentAnswerFields{}, ErrInvalidQuestionType
		}
		choice, err := s.catalog.GetChoice(ctx, *p.ChoiceID)
		if err != nil {
			return model.StudentAnswerFields{}, storeErr("get choice", err)
		}
		if choice.QuestionID != q.ID {
			return model.StudentAnswerFields{}, ErrInvalidChoice
		}
		return model.StudentAnswerFields{ChoiceID: &choice.ID}, nil

	case q.Type.IsEssay():
		if p.Text == nil || p.ChoiceID != nil {
			return model.StudentAnswerFields{}, ErrInvalidQuestionType
		}
		text := *p.Text
		return model.StudentAnswerFields{TextAnswer: &text}, nil
	}

	return model.StudentAnswerFields{}, fmt.Errorf("question type %q: %w", q.Type, ErrInvalidQuestionType)
}

func (s *ExamSessionService) lookupSession(ctx context.Context, studentID int, examID uuid.UUID) (*model.ExamSession, error) {
	sess, err := s.store.GetExamSession(ctx, studentID, examID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, storeErr("get session", err)
	}
	return sess, nil
}

func (s *ExamSessionService) requireSession(ctx context.Context, studentID int, examID uuid.UUID) (*model.ExamSession, error) {
	sess, err := s.lookupSession(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	return sess, nil
}

func (s *ExamSessionService) requireInProgress(ctx context.Context, studentID int, examID uuid.UUID) (*model.ExamSession, error) {
	sess, err := s.requireSession(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}
	if sess.State == model.SessionStateFinished {
		return nil, ErrAlreadyCompleted
	}
	return sess, nil
}

func (s *ExamSessionService) forStudent(ctx context.Context, q *model.Question) (*model.QuestionForStudent, error) {
	out := &model.QuestionForStudent{
		ID:       q.ID,
		Text:     q.Text,
		Type:     q.Type,
		Points:   q.Points,
		OrderNum: q.OrderNum,
		AudioURL: q.AudioURL,
		ImageURL: q.ImageURL,
	}
	if !q.Type.IsMultipleChoice() {
		return out, nil
	}

	choices, err := s.catalog.ListChoicesForQuestion(ctx, q.ID)
	if err != nil {
		return nil, storeErr("list choices", err)
	}
	out.Choices = make([]model.ChoiceForStudent, len(choices))
	for i, c := range choices {
		out.Choices[i] = model.ChoiceForStudent{ID: c.ID, Text: c.Text}
	}
	return out, nil
}

// nextQuestion returns the question following current in the ordered list.
// The list is expected in presentation order; current is located by id.
func nextQuestion(ordered []model.Question, current *model.Question) *model.Question {
	for i := range ordered {
		if ordered[i].ID == current.ID {
			if i+1 < len(ordered) {
				return &ordered[i+1]
			}
			return nil
		}
	}
	// Not in the list (deleted meanwhile): fall back to the first question after it.
	for i := range ordered {
		if current.Before(&ordered[i]) {
			return &ordered[i]
		}
	}
	return nil
}
