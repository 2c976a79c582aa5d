package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func TestFailEnvelopeCarriesCodeAndRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/x", func(c *gin.Context) { Fail(c, http.StatusConflict, ErrExamAlreadyCompleted) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, ErrExamAlreadyCompleted, body.Error.Code)
	assert.Equal(t, GetMessage(ErrExamAlreadyCompleted), body.Error.Message)
	assert.Equal(t, "req-1", body.Metadata.RequestID)
}

func TestSuccessWithPagination(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		SuccessWithPagination(c, http.StatusOK, []int{1, 2}, &Pagination{Page: 1, PerPage: 2, TotalItems: 3, TotalPages: 2})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Nil(t, body.Error)
	require.NotNil(t, body.Pagination)
	assert.Equal(t, 2, body.Pagination.TotalPages)
	assert.NotEmpty(t, body.Metadata.RequestID, "falls back to a generated id")
}

func TestEveryCodeHasMessage(t *testing.T) {
	codes := []ErrCode{
		ErrInvalidCredentials, ErrSessionInvalidated, ErrTokenRequired, ErrTokenInvalid, ErrTokenExpired,
		ErrForbidden, ErrPermissionDenied, ErrValidation, ErrInvalidID, ErrInvalidPayload,
		ErrInvalidChoice, ErrInvalidQuestionType, ErrInvalidWindow, ErrInvalidRole, ErrNotFound, ErrConflict,
		ErrExamAlreadyCompleted, ErrExamOutOfWindow, ErrNoQuestions, ErrNotMultipleChoice, ErrSessionNotFinished,
		ErrRateLimitExceeded, ErrStorageUnavailable, ErrInternal,
	}
	fallback := GetMessage("SOMETHING_ELSE")
	for _, c := range codes {
		assert.NotEqual(t, fallback, GetMessage(c), string(c))
	}
}

func TestRequestIDReplacesUnsafeCallerIDs(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/x", func(c *gin.Context) { Success(c, http.StatusOK, nil) })

	cases := map[string]bool{
		"trace-42_a.b:c":            true,
		strings.Repeat("a", 64):     true,
		strings.Repeat("a", 65):     false,
		"has space":                 false,
		"line\u2028break":          false,
		"<script>alert(1)</script>": false,
	}
	for supplied, kept := range cases {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(HeaderRequestID, supplied)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		got := w.Header().Get(HeaderRequestID)
		if kept {
			assert.Equal(t, supplied, got)
		} else {
			assert.NotEqual(t, supplied, got)
			_, err := uuid.Parse(got)
			assert.NoError(t, err, "generated id for %q", supplied)
		}
	}
}
