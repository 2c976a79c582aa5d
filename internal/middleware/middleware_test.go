package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exam-session-engine/internal/model"
	"github.com/stemsi/exam-session-engine/internal/response"
	"github.com/stemsi/exam-session-engine/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeAuth struct {
	claims     map[string]*service.Claims
	sessionErr error
}

func (f *fakeAuth) ValidateToken(tokenStr string) (*service.Claims, error) {
	c, ok := f.claims[tokenStr]
	if !ok {
		return nil, errors.New("bad token")
	}
	return c, nil
}

func (f *fakeAuth) ValidateSession(context.Context, int, string) error {
	return f.sessionErr
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{claims: map[string]*service.Claims{
		"student":    {UserID: 1, Role: model.RoleStudent, Permissions: model.PermissionsFor(model.RoleStudent)},
		"instructor": {UserID: 2, Role: model.RoleInstructor, Permissions: model.PermissionsFor(model.RoleInstructor)},
	}}
}

func do(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireJWT(t *testing.T) {
	auth := newFakeAuth()
	r := gin.New()
	r.GET("/me", RequireJWT(auth), func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		require.True(t, ok)
		c.String(http.StatusOK, "%d", p.UserID)
	})

	w := do(r, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), string(response.ErrTokenRequired))

	w = do(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), string(response.ErrTokenInvalid))

	w = do(r, http.MethodGet, "/me", map[string]string{"Authorization": "bearer instructor"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Body.String())
}

func TestRequireWSAuthReadsQueryToken(t *testing.T) {
	r := gin.New()
	r.GET("/ws", RequireWSAuth(newFakeAuth()), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ws?token=student", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/ws", nil).Code)
}

func TestRequireAnyPermission(t *testing.T) {
	auth := newFakeAuth()
	r := gin.New()
	r.GET("/take", RequireJWT(auth), RequirePermission(model.PermissionExamsTake), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/write", RequireJWT(auth), RequireAnyPermission(model.PermissionExamsWriteAll, model.PermissionExamsWriteOwn), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/open", RequirePermission(model.PermissionExamsTake), func(c *gin.Context) { c.Status(http.StatusOK) })

	student := map[string]string{"Authorization": "Bearer student"}
	instructor := map[string]string{"Authorization": "Bearer instructor"}

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/take", student).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/take", instructor).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/write", instructor).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/write", student).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/open", nil).Code)
}

func TestCheckActiveLogin(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"active", nil, http.StatusOK},
		{"replaced", service.ErrSessionInvalidated, http.StatusUnauthorized},
		{"logged out", service.ErrNoActiveSession, http.StatusUnauthorized},
		{"redis down", errors.New("dial tcp: refused"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := newFakeAuth()
			auth.sessionErr = tc.err
			r := gin.New()
			r.GET("/x", RequireJWT(auth), CheckActiveLogin(auth), func(c *gin.Context) { c.Status(http.StatusOK) })

			w := do(r, http.MethodGet, "/x", map[string]string{"Authorization": "Bearer student"})
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(2)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))

	r := gin.New()
	r.POST("/login", NewRateLimiter(1).Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/login", nil).Code)
	w := do(r, http.MethodPost, "/login", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), string(response.ErrRateLimitExceeded))
}

func TestBrotliCompressesLargeBodies(t *testing.T) {
	large := strings.Repeat("exam session ", 500)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := do(r, http.MethodGet, "/large", map[string]string{"Accept-Encoding": "gzip, br;q=1.0"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "br", w.Header().Get("Content-Encoding"))
	body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, large, string(body))

	w = do(r, http.MethodGet, "/small", map[string]string{"Accept-Encoding": "br"})
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", w.Body.String())

	w = do(r, http.MethodGet, "/large", nil)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, large, w.Body.String())
}

func TestCacheControl(t *testing.T) {
	r := gin.New()
	r.GET("/x", CacheControl("no-store"), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, "no-store", do(r, http.MethodGet, "/x", nil).Header().Get("Cache-Control"))
}
