package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-session-engine/internal/authz"
	"github.com/stemsi/exam-session-engine/internal/middleware"
	"github.com/stemsi/exam-session-engine/internal/model"
	"github.com/stemsi/exam-session-engine/internal/response"
	"github.com/stemsi/exam-session-engine/internal/service"
	"github.com/stemsi/exam-session-engine/internal/validator"
)

// ExamHandler handles exam, question and choice management endpoints.
type ExamHandler struct {
	catalog *service.CatalogService
	log     zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(catalog *service.CatalogService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		catalog: catalog,
		log:     log.With().Str("component", "exam_handler").Logger(),
	}
}

// ListExams godoc
// GET /api/v1/staff/exams
// Lists exams with pagination. Instructors see only their own.
func (h *ExamHandler) ListExams(c *gin.Context) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	ownerID, ok := authz.Scope(p, authz.ReadExam)
	if !ok {
		response.Fail(c, http.StatusForbidden, response.ErrPermissionDenied)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	exams, pagination, err := h.catalog.ListExams(c.Request.Context(), ownerID, page, perPage)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams}, pagination)
}

// CreateExam godoc
// POST /api/v1/staff/exams
// Creates an exam owned by the caller, or by instructor_id for managers.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	owner := p.UserID
	if req.InstructorID != 0 {
		owner = req.InstructorID
	}
	if err := authz.Check(p, authz.ManageExam, owner); err != nil {
		failWithError(c, h.log, err)
		return
	}

	exam := &model.Exam{
		Title:           req.Title,
		Description:     req.Description,
		InstructorID:    owner,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
	}
	if err := h.catalog.CreateExam(c.Request.Context(), exam); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// GetExam godoc
// GET /api/v1/staff/exams/:exam_id
func (h *ExamHandler) GetExam(c *gin.Context) {
	exam, _, ok := authorizedExam(c, h.catalog, h.log, authz.ReadExam)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// UpdateExam godoc
// PUT /api/v1/staff/exams/:exam_id
// Applies a partial update to the exam's details or schedule.
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	exam, _, ok := authorizedExam(c, h.catalog, h.log, authz.ManageExam)
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.catalog.UpdateExam(c.Request.Context(), exam, &req); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// ListQuestions godoc
// GET /api/v1/staff/exams/:exam_id/questions
// Returns the questions in presentation order with their answer key.
func (h *ExamHandler) ListQuestions(c *gin.Context) {
	exam, _, ok := authorizedExam(c, h.catalog, h.log, authz.ReadExam)
	if !ok {
		return
	}

	questions, err := h.catalog.ListQuestions(c.Request.Context(), exam.ID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// AddQuestion godoc
// POST /api/v1/staff/exams/:exam_id/questions
func (h *ExamHandler) AddQuestion(c *gin.Context) {
	exam, _, ok := authorizedExam(c, h.catalog, h.log, authz.ManageExam)
	if !ok {
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.catalog.AddQuestion(c.Request.Context(), exam.ID, &req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": q})
}

// UpdateQuestion godoc
// PUT /api/v1/staff/questions/:question_id
// Changing points or switching between answer families rescores the exam.
func (h *ExamHandler) UpdateQuestion(c *gin.Context) {
	q, ok := h.loadQuestion(c)
	if !ok {
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.catalog.UpdateQuestion(c.Request.Context(), q, &req); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// AddChoice godoc
// POST /api/v1/staff/questions/:question_id/choices
func (h *ExamHandler) AddChoice(c *gin.Context) {
	q, ok := h.loadQuestion(c)
	if !ok {
		return
	}

	var req model.AddChoiceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	choice, err := h.catalog.AddChoice(c.Request.Context(), q, &req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"choice": choice})
}

// UpdateChoice godoc
// PUT /api/v1/staff/choices/:choice_id
// Flipping is_correct rescores the exam.
func (h *ExamHandler) UpdateChoice(c *gin.Context) {
	choiceID, err := uuid.Parse(c.Param("choice_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	choice, q, err := h.catalog.GetChoice(c.Request.Context(), choiceID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	if !authorizeOwner(c, h.catalog, h.log, q.ExamID, authz.ManageExam) {
		return
	}

	var req model.UpdateChoiceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.catalog.UpdateChoice(c.Request.Context(), choice, q.ExamID, &req); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"choice": choice})
}

// RescoreExam godoc
// POST /api/v1/staff/exams/:exam_id/rescore
// Queues a recomputation of every finished attempt.
func (h *ExamHandler) RescoreExam(c *gin.Context) {
	exam, _, ok := authorizedExam(c, h.catalog, h.log, authz.ManageExam)
	if !ok {
		return
	}

	if err := h.catalog.RequestRescore(c.Request.Context(), exam.ID); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"message": "rescore queued"})
}

func (h *ExamHandler) loadQuestion(c *gin.Context) (*model.Question, bool) {
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}

	q, err := h.catalog.GetQuestion(c.Request.Context(), questionID)
	if err != nil {
		failWithError(c, h.log, err)
		return nil, false
	}
	if !authorizeOwner(c, h.catalog, h.log, q.ExamID, authz.ManageExam) {
		return nil, false
	}
	return q, true
}
