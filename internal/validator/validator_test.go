package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exam-session-engine/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindBody(t *testing.T, body string, dst any) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	Setup()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return Bind(c, dst)
}

func TestBind_Valid(t *testing.T) {
	var req model.AddQuestionRequest
	fields := bindBody(t, `{"text":"2+2?","question_type":"image_mcq","points":5}`, &req)
	require.Nil(t, fields)
	assert.Equal(t, "image_mcq", req.Type)
}

func TestBind_UnknownQuestionType(t *testing.T) {
	var req model.AddQuestionRequest
	fields := bindBody(t, `{"text":"2+2?","question_type":"true_false","points":5}`, &req)
	require.NotNil(t, fields)
	assert.Contains(t, fields["question_type"], "must be one of mcq")
}

func TestBind_UsesJSONFieldNames(t *testing.T) {
	var req model.LoginRequest
	fields := bindBody(t, `{"email":"not-an-email"}`, &req)
	require.NotNil(t, fields)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
}

func TestBind_MalformedJSON(t *testing.T) {
	var req model.LoginRequest
	fields := bindBody(t, `{"email":`, &req)
	require.NotNil(t, fields)
	assert.Contains(t, fields, "detail")
}

func TestSetup_Idempotent(t *testing.T) {
	Setup()
	Setup()
	var req model.UpdateQuestionRequest
	fields := bindBody(t, `{"question_type":"essay"}`, &req)
	assert.Nil(t, fields)
}
