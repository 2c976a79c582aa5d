package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exam-session-engine/internal/response"
	"github.com/stemsi/exam-session-engine/internal/service"
)

// LoginValidator checks a token id against the active login.
// Implemented by service.AuthService.
type LoginValidator interface {
	ValidateSession(ctx context.Context, userID int, jti string) error
}

// CheckActiveLogin rejects tokens that are no longer the user's latest login,
// either because of a newer login or a logout.
func CheckActiveLogin(auth LoginValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		err := auth.ValidateSession(c.Request.Context(), claims.UserID, claims.ID)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, service.ErrNoActiveSession), errors.Is(err, service.ErrSessionInvalidated):
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
		default:
			response.AbortFail(c, http.StatusServiceUnavailable, response.ErrStorageUnavailable)
		}
	}
}
