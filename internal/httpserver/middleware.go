package httpserver

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"farmstand/internal/domain"
	"github.com/gin-gonic/gin"
)

type ctxKey string

const (
	sessionCtxKey ctxKey = "session"
	opsKeyHeader         = "X-Ops-Key"
)

// sessionMiddleware resolves the bearer token into a domain.Session carried on the request context.
func sessionMiddleware(sessions sessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			abortWithError(c, http.StatusUnauthorized, apiError{Code: "unauthorized", Message: "missing bearer token"})
			return
		}
		session, err := sessions.LookupByToken(c.Request.Context(), token)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		ctx := context.WithValue(c.Request.Context(), sessionCtxKey, session)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) domain.Session {
	s, _ := c.Request.Context().Value(sessionCtxKey).(domain.Session)
	return s
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// opsKeyMiddleware guards operator routes. An empty configured key disables them.
func opsKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			abortWithError(c, http.StatusForbidden, apiError{Code: "forbidden", Message: "operator routes disabled"})
			return
		}
		got := c.GetHeader(opsKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			abortWithError(c, http.StatusUnauthorized, apiError{Code: "unauthorized", Message: "invalid operator key"})
			return
		}
		c.Next()
	}
}
