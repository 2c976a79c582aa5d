package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-session-engine/internal/middleware"
	"github.com/stemsi/exam-session-engine/internal/model"
	"github.com/stemsi/exam-session-engine/internal/response"
	"github.com/stemsi/exam-session-engine/internal/service"
	"github.com/stemsi/exam-session-engine/internal/validator"
)

// StudentPortalHandler handles student-facing endpoints (taking an exam, own results).
type StudentPortalHandler struct {
	sessionService *service.ExamSessionService
	resultService  *service.ResultService
	log            zerolog.Logger
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	sessionService *service.ExamSessionService,
	resultService *service.ResultService,
	log zerolog.Logger,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		sessionService: sessionService,
		resultService:  resultService,
		log:            log.With().Str("component", "student_portal_handler").Logger(),
	}
}

// studentView hides the score of an attempt until staff approve it.
func studentView(sess *model.ExamSession) *model.ExamSession {
	out := *sess
	if !out.IsApproved {
		out.Score = nil
	}
	return &out
}

// StartExam godoc
// POST /api/v1/student/exams/:exam_id/start
// Opens (or resumes) the student's attempt and returns the first question.
func (h *StudentPortalHandler) StartExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	res, err := h.sessionService.StartSession(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	res.Session = studentView(res.Session)
	response.Success(c, http.StatusOK, res)
}

// GetRemainingTime godoc
// GET /api/v1/student/exams/:exam_id/remaining
// Returns the seconds left on the attempt's timer.
func (h *StudentPortalHandler) GetRemainingTime(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	remaining, err := h.sessionService.GetRemainingTime(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"remaining_seconds": remaining.Seconds()})
}

// GetQuestion godoc
// GET /api/v1/student/exams/:exam_id/questions/:question_id
// Returns a question of the attempt so students can navigate back.
func (h *StudentPortalHandler) GetQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, questionID, ok := parseExamQuestion(c)
	if !ok {
		return
	}

	q, err := h.sessionService.GetQuestion(c.Request.Context(), claims.UserID, examID, questionID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// SubmitAnswer godoc
// PUT /api/v1/student/exams/:exam_id/questions/:question_id/answer
// Stores (or replaces) the answer and returns the next question.
func (h *StudentPortalHandler) SubmitAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, questionID, ok := parseExamQuestion(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.sessionService.SubmitAnswer(c.Request.Context(), claims.UserID, examID, questionID,
		service.AnswerPayload{ChoiceID: req.ChoiceID, Text: req.TextAnswer})
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// FinishExam godoc
// POST /api/v1/student/exams/:exam_id/finish
// Scores the attempt. Safe to repeat; the score is recomputed each time.
func (h *StudentPortalHandler) FinishExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sess, err := h.sessionService.FinishSession(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": studentView(sess)})
}

// ListResults godoc
// GET /api/v1/student/results
// Lists the student's attempts; scores appear once approved.
func (h *StudentPortalHandler) ListResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	results, err := h.resultService.ListForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

func parseExamQuestion(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, uuid.Nil, false
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, uuid.Nil, false
	}
	return examID, questionID, true
}
