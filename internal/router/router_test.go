package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-session-engine/internal/config"
	"github.com/stemsi/exam-session-engine/internal/handler"
	"github.com/stemsi/exam-session-engine/internal/model"
	"github.com/stemsi/exam-session-engine/internal/response"
	"github.com/stemsi/exam-session-engine/internal/service"
	"github.com/stemsi/exam-session-engine/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "secret-pass"

type memUsers struct {
	mu    sync.Mutex
	users []model.User
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUsers) GetByID(_ context.Context, id int) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = len(m.users) + 1
	m.users = append(m.users, *u)
	return nil
}

func newTestRouter(t *testing.T, loginRate int) *gin.Engine {
	t.Helper()
	validator.Setup()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		GinMode:            gin.TestMode,
		JWTSecret:          "router-test-secret",
		JWTExpiry:          time.Hour,
		BcryptCost:         bcrypt.MinCost,
		LoginRatePerMinute: loginRate,
	}
	log := zerolog.Nop()

	users := &memUsers{}
	authService := service.NewAuthService(cfg, users, rdb, log)
	ctx := context.Background()
	for _, u := range []model.User{
		{Email: "student@example.com", FirstName: "Stu", Role: model.RoleStudent},
		{Email: "employee@example.com", FirstName: "Emp", Role: model.RoleEmployee},
	} {
		require.NoError(t, authService.CreateUser(ctx, &u, testPassword))
	}

	// Stores are never reached: every request here stops in middleware or auth.
	sessions := service.NewExamSessionService(nil, nil, log)
	catalog := service.NewCatalogService(nil, nil, log)
	results := service.NewResultService(nil, nil, log)

	return SetupRouter(authService, &Handlers{
		Auth:          handler.NewAuthHandler(authService, log),
		StudentPortal: handler.NewStudentPortalHandler(sessions, results, log),
		Exam:          handler.NewExamHandler(catalog, log),
		Result:        handler.NewResultHandler(catalog, results, log),
		WS:            handler.NewWSHandler(sessions, log, nil),
	}, cfg)
}

type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.ErrorBody `json:"error"`
}

func do(t *testing.T, r http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func login(t *testing.T, r http.Handler, email string) string {
	t.Helper()
	w, env := do(t, r, http.MethodPost, "/api/v1/auth/login", "",
		`{"email":"`+email+`","password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	return body.Token
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, 30)
	w, _ := do(t, r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAuthFlow(t *testing.T) {
	r := newTestRouter(t, 30)
	token := login(t, r, "student@example.com")

	w, env := do(t, r, http.MethodGet, "/api/v1/auth/me", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var me struct {
		User        model.User `json:"user"`
		Permissions []string   `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, model.RoleStudent, me.User.Role)
	assert.Equal(t, []string{string(model.PermissionExamsTake)}, me.Permissions)

	w, _ = do(t, r, http.MethodPost, "/api/v1/auth/logout", token, "")
	require.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, r, http.MethodGet, "/api/v1/auth/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.ErrSessionInvalidated, env.Error.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	r := newTestRouter(t, 30)
	w, env := do(t, r, http.MethodPost, "/api/v1/auth/login", "",
		`{"email":"student@example.com","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.ErrInvalidCredentials, env.Error.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	r := newTestRouter(t, 2)
	body := `{"email":"student@example.com","password":"wrong-pass"}`

	for range 2 {
		w, _ := do(t, r, http.MethodPost, "/api/v1/auth/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w, env := do(t, r, http.MethodPost, "/api/v1/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, response.ErrRateLimitExceeded, env.Error.Code)
}

func TestRoutePermissions(t *testing.T) {
	r := newTestRouter(t, 30)
	student := login(t, r, "student@example.com")
	employee := login(t, r, "employee@example.com")
	examPath := "/api/v1/staff/exams/00000000-0000-0000-0000-000000000001"

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		status int
		code   response.ErrCode
	}{
		{"staff route without token", http.MethodGet, "/api/v1/staff/exams", "", http.StatusUnauthorized, response.ErrTokenRequired},
		{"garbage token", http.MethodGet, "/api/v1/staff/exams", "not-a-jwt", http.StatusUnauthorized, response.ErrTokenInvalid},
		{"student on staff route", http.MethodGet, "/api/v1/staff/exams", student, http.StatusForbidden, response.ErrPermissionDenied},
		{"employee cannot write exams", http.MethodPut, examPath, employee, http.StatusForbidden, response.ErrPermissionDenied},
		{"employee cannot approve", http.MethodPost, examPath + "/results/1/approve", employee, http.StatusForbidden, response.ErrPermissionDenied},
		{"employee cannot take exams", http.MethodPost, "/api/v1/student/exams/x/start", employee, http.StatusForbidden, response.ErrPermissionDenied},
		{"websocket without token", http.MethodGet, "/ws/v1/student/exams/x/stream", "", http.StatusUnauthorized, response.ErrTokenRequired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := do(t, r, tc.method, tc.path, tc.token, "")
			assert.Equal(t, tc.status, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}
