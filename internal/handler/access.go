package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-session-engine/internal/authz"
	"github.com/stemsi/exam-session-engine/internal/middleware"
	"github.com/stemsi/exam-session-engine/internal/model"
	"github.com/stemsi/exam-session-engine/internal/response"
	"github.com/stemsi/exam-session-engine/internal/service"
)

// authorizedExam loads the exam named by the :exam_id param and checks the
// caller against capability cap, the exam's instructor being the owner.
// It writes the failure response itself and returns ok=false.
func authorizedExam(c *gin.Context, catalog *service.CatalogService, log zerolog.Logger, cap authz.Capability) (*model.Exam, authz.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, p, false
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, p, false
	}

	exam, err := catalog.GetExam(c.Request.Context(), examID)
	if err != nil {
		failWithError(c, log, err)
		return nil, p, false
	}

	if err := authz.Check(p, cap, exam.InstructorID); err != nil {
		failWithError(c, log, err)
		return nil, p, false
	}
	return exam, p, true
}

// authorizeOwner checks cap against the instructor of examID.
func authorizeOwner(c *gin.Context, catalog *service.CatalogService, log zerolog.Logger, examID uuid.UUID, cap authz.Capability) bool {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return false
	}

	exam, err := catalog.GetExam(c.Request.Context(), examID)
	if err != nil {
		failWithError(c, log, err)
		return false
	}

	if err := authz.Check(p, cap, exam.InstructorID); err != nil {
		failWithError(c, log, err)
		return false
	}
	return true
}
