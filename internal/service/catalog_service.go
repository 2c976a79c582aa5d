package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-session-engine/internal/model"
	"github.com/stemsi/exam-session-engine/internal/response"
)

// CatalogRepository is the full catalog: the engine's read side plus the
// instructor-facing writes.
type CatalogRepository interface {
	CatalogStore
	ListExams(ctx context.Context, instructorID, limit, offset int) ([]model.Exam, int, error)
	CreateExam(ctx context.Context, e *model.Exam) error
	UpdateExam(ctx context.Context, e *model.Exam) error
	CreateQuestion(ctx context.Context, q *model.Question) error
	UpdateQuestion(ctx context.Context, q *model.Question) error
	CreateChoice(ctx context.Context, c *model.Choice) error
	UpdateChoice(ctx context.Context, c *model.Choice) error
}

// RescoreQueue schedules a background rescore of an exam's finished sessions.
type RescoreQueue interface {
	EnqueueRescore(ctx context.Context, examID uuid.UUID) error
}

// QuestionWithChoices is the staff view of a question, answer key included.
type QuestionWithChoices struct {
	model.Question
	Choices []model.Choice `json:"choices"`
}

// CatalogService manages exams, questions and choices.
type CatalogService struct {
	repo    CatalogRepository
	rescore RescoreQueue
	log     zerolog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(repo CatalogRepository, rescore RescoreQueue, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		repo:    repo,
		rescore: rescore,
		log:     log.With().Str("component", "catalog_service").Logger(),
	}
}

// GetExam retrieves an exam by id.
func (s *CatalogService) GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	e, err := s.repo.GetExam(ctx, examID)
	if err != nil {
		return nil, storeErr("get exam", err)
	}
	return e, nil
}

// ListExams pages through exams; instructorID 0 lists every exam.
func (s *CatalogService) ListExams(ctx context.Context, instructorID, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)

	exams, total, err := s.repo.ListExams(ctx, instructorID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, storeErr("list exams", err)
	}
	if exams == nil {
		exams = []model.Exam{}
	}

	return exams, newPagination(page, perPage, total), nil
}

// CreateExam validates and inserts a new exam.
func (s *CatalogService) CreateExam(ctx context.Context, e *model.Exam) error {
	if !e.EndTime.After(e.StartTime) {
		return ErrInvalidWindow
	}
	if err := s.repo.CreateExam(ctx, e); err != nil {
		return storeErr("create exam", err)
	}
	s.log.Info().
		Str("exam_id", e.ID.String()).
		Int("instructor_id", e.InstructorID).
		Msg("Exam created")
	return nil
}

// UpdateExam applies a partial update to an exam.
func (s *CatalogService) UpdateExam(ctx context.Context, e *model.Exam, req *model.UpdateExamRequest) error {
	if req.Title != "" {
		e.Title = req.Title
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.StartTime != nil {
		e.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		e.EndTime = *req.EndTime
	}
	if req.DurationMinutes > 0 {
		e.DurationMinutes = req.DurationMinutes
	}
	if !e.EndTime.After(e.StartTime) {
		return ErrInvalidWindow
	}

	if err := s.repo.UpdateExam(ctx, e); err != nil {
		return storeErr("update exam", err)
	}
	return nil
}

// ListQuestions returns the exam's questions in presentation order with their choices.
func (s *CatalogService) ListQuestions(ctx context.Context, examID uuid.UUID) ([]QuestionWithChoices, error) {
	questions, err := s.repo.ListQuestionsForExam(ctx, examID, model.OrderByPosition)
	if err != nil {
		return nil, storeErr("list questions", err)
	}

	out := make([]QuestionWithChoices, 0, len(questions))
	for _, q := range questions {
		choices, err := s.repo.ListChoicesForQuestion(ctx, q.ID)
		if err != nil {
			return nil, storeErr("list choices", err)
		}
		if choices == nil {
			choices = []model.Choice{}
		}
		out = append(out, QuestionWithChoices{Question: q, Choices: choices})
	}
	return out, nil
}

// GetQuestion retrieves a question by id.
func (s *CatalogService) GetQuestion(ctx context.Context, questionID uuid.UUID) (*model.Question, error) {
	q, err := s.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, storeErr("get question", err)
	}
	return q, nil
}

// AddQuestion appends a question to an exam.
func (s *CatalogService) AddQuestion(ctx context.Context, examID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error) {
	qt := model.QuestionType(req.Type)
	if !qt.Valid() {
		return nil, ErrUnknownQuestion
	}

	q := &model.Question{
		ExamID:   examID,
		Text:     req.Text,
		Type:     qt,
		Points:   req.Points,
		OrderNum: req.OrderNum,
		AudioURL: req.AudioURL,
		ImageURL: req.ImageURL,
	}
	if err := s.repo.CreateQuestion(ctx, q); err != nil {
		return nil, storeErr("create question", err)
	}
	return q, nil
}

// UpdateQuestion edits a question. Changing its points or type rescores the exam.
func (s *CatalogService) UpdateQuestion(ctx context.Context, q *model.Question, req *model.UpdateQuestionRequest) error {
	scoring := false
	if req.Text != "" {
		q.Text = req.Text
	}
	if req.Type != "" {
		qt := model.QuestionType(req.Type)
		if !qt.Valid() {
			return ErrUnknownQuestion
		}
		scoring = scoring || qt.IsMultipleChoice() != q.Type.IsMultipleChoice()
		q.Type = qt
	}
	if req.Points != nil {
		scoring = scoring || *req.Points != q.Points
		q.Points = *req.Points
	}
	if req.OrderNum != nil {
		q.OrderNum = *req.OrderNum
	}
	if req.AudioURL != nil {
		q.AudioURL = *req.AudioURL
	}
	if req.ImageURL != nil {
		q.ImageURL = *req.ImageURL
	}

	if err := s.repo.UpdateQuestion(ctx, q); err != nil {
		return storeErr("update question", err)
	}
	if scoring {
		s.enqueueRescore(ctx, q.ExamID)
	}
	return nil
}

// AddChoice adds a choice to a multiple-choice question.
func (s *CatalogService) AddChoice(ctx context.Context, q *model.Question, req *model.AddChoiceRequest) (*model.Choice, error) {
	if !q.Type.IsMultipleChoice() {
		return nil, ErrNotMultiChoice
	}

	c := &model.Choice{QuestionID: q.ID, Text: req.Text, IsCorrect: req.IsCorrect}
	if err := s.repo.CreateChoice(ctx, c); err != nil {
		return nil, storeErr("create choice", err)
	}
	return c, nil
}

// GetChoice retrieves a choice with its question.
func (s *CatalogService) GetChoice(ctx context.Context, choiceID uuid.UUID) (*model.Choice, *model.Question, error) {
	c, err := s.repo.GetChoice(ctx, choiceID)
	if err != nil {
		return nil, nil, storeErr("get choice", err)
	}
	q, err := s.repo.GetQuestion(ctx, c.QuestionID)
	if err != nil {
		return nil, nil, storeErr("get question", err)
	}
	return c, q, nil
}

// UpdateChoice edits a choice. Flipping its correctness rescores the exam.
func (s *CatalogService) UpdateChoice(ctx context.Context, c *model.Choice, examID uuid.UUID, req *model.UpdateChoiceRequest) error {
	scoring := false
	if req.Text != "" {
		c.Text = req.Text
	}
	if req.IsCorrect != nil {
		scoring = *req.IsCorrect != c.IsCorrect
		c.IsCorrect = *req.IsCorrect
	}

	if err := s.repo.UpdateChoice(ctx, c); err != nil {
		return storeErr("update choice", err)
	}
	if scoring {
		s.enqueueRescore(ctx, examID)
	}
	return nil
}

// RequestRescore schedules a rescore of every finished session of an exam.
func (s *CatalogService) RequestRescore(ctx context.Context, examID uuid.UUID) error {
	if _, err := s.GetExam(ctx, examID); err != nil {
		return err
	}
	if err := s.rescore.EnqueueRescore(ctx, examID); err != nil {
		return &StorageError{Op: "enqueue rescore", Err: err}
	}
	return nil
}

// enqueueRescore is best effort: the edit already succeeded, and staff can
// trigger a rescore by hand if the queue is down.
func (s *CatalogService) enqueueRescore(ctx context.Context, examID uuid.UUID) {
	if err := s.rescore.EnqueueRescore(ctx, examID); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to enqueue rescore")
	}
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

func newPagination(page, perPage, total int) *response.Pagination {
	return &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
}
