package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-session-engine/internal/authz"
	"github.com/stemsi/exam-session-engine/internal/response"
	"github.com/stemsi/exam-session-engine/internal/service"
)

// errorStatus maps a service error to its HTTP status and response code.
func errorStatus(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrAlreadyCompleted):
		return http.StatusConflict, response.ErrExamAlreadyCompleted
	case errors.Is(err, service.ErrOutOfWindow):
		return http.StatusForbidden, response.ErrExamOutOfWindow
	case errors.Is(err, service.ErrNoQuestions):
		return http.StatusUnprocessableEntity, response.ErrNoQuestions
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, service.ErrInvalidChoice):
		return http.StatusBadRequest, response.ErrInvalidChoice
	case errors.Is(err, service.ErrInvalidQuestionType), errors.Is(err, service.ErrUnknownQuestion):
		return http.StatusBadRequest, response.ErrInvalidQuestionType
	case errors.Is(err, service.ErrInvalidWindow):
		return http.StatusBadRequest, response.ErrInvalidWindow
	case errors.Is(err, service.ErrNotMultiChoice):
		return http.StatusBadRequest, response.ErrNotMultipleChoice
	case errors.Is(err, service.ErrSessionNotFinished):
		return http.StatusConflict, response.ErrSessionNotFinished
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, response.ErrInvalidCredentials
	case errors.Is(err, authz.ErrDenied):
		return http.StatusForbidden, response.ErrPermissionDenied
	case errors.Is(err, service.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, response.ErrStorageUnavailable
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

// failWithError writes the envelope for err. Server-side failures are logged.
func failWithError(c *gin.Context, log zerolog.Logger, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", response.RequestID(c)).
			Str("path", c.FullPath()).
			Msg("Request failed")
	}
	response.Fail(c, status, code)
}
