package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/feedstream/pkg/helpers"
	"github.com/oksasatya/feedstream/pkg/response"
)

const (
	CtxUserIDKey    = "userID"
	CtxUserEmailKey = "userEmail"
)

// Auth reads the Authorization header, validates the bearer token and
// injects the caller identity into the Gin context. It always runs to
// completion before any handler: no handler behind it ever executes on
// behalf of an unauthenticated caller.
//
// An invalid or expired token is the caller's fault and yields 401; a
// verifier fault (anything besides helpers.ErrInvalidToken) yields 500.
func Auth(tokens *helpers.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			resp := response.Error[any](c, http.StatusUnauthorized, "not authenticated", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == header || raw == "" {
			resp := response.Error[any](c, http.StatusUnauthorized, "not authenticated", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			if errors.Is(err, helpers.ErrInvalidToken) {
				resp := response.Error[any](c, http.StatusUnauthorized, "not authenticated", nil)
				c.AbortWithStatusJSON(resp.Status, resp)
				return
			}
			resp := response.Error[any](c, http.StatusInternalServerError, "token verification failed", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxUserEmailKey, claims.Email)
		c.Next()
	}
}
