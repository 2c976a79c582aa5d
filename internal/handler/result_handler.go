package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-session-engine/internal/authz"
	"github.com/stemsi/exam-session-engine/internal/response"
	"github.com/stemsi/exam-session-engine/internal/service"
)

// ResultHandler handles staff result endpoints.
type ResultHandler struct {
	catalog *service.CatalogService
	results *service.ResultService
	log     zerolog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(catalog *service.CatalogService, results *service.ResultService, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		catalog: catalog,
		results: results,
		log:     log.With().Str("component", "result_handler").Logger(),
	}
}

// ListExamResults godoc
// GET /api/v1/staff/exams/:exam_id/results
// Returns paginated student results for an exam.
func (h *ResultHandler) ListExamResults(c *gin.Context) {
	exam, _, ok := authorizedExam(c, h.catalog, h.log, authz.ReadResult)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	results, pagination, err := h.results.ListForExam(c.Request.Context(), exam.ID, page, perPage)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, pagination)
}

// ApproveResult godoc
// POST /api/v1/staff/exams/:exam_id/results/:student_id/approve
// Publishes a finished attempt's score to the student.
func (h *ResultHandler) ApproveResult(c *gin.Context) {
	exam, _, ok := authorizedExam(c, h.catalog, h.log, authz.Approve)
	if !ok {
		return
	}

	studentID, err := strconv.Atoi(c.Param("student_id"))
	if err != nil || studentID < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sess, err := h.results.Approve(c.Request.Context(), studentID, exam.ID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": sess})
}
