package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/logger"
)

const (
	SessionKey    = "session"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// SessionResolver turns a bearer token into a session
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*auth.Session, error)
}

// BearerToken extracts the token of the Authorization header. SSE clients
// cannot set headers, so the access_token query parameter is accepted too.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader(AuthHeaderKey)
	if strings.HasPrefix(header, BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	}
	return c.Query("access_token")
}

// Session resolves the bearer token, when one is sent, and stores the session
// for downstream handlers. Requests without a token continue with no session.
func Session(resolver SessionResolver, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		session, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			logger.FromGin(c, log).Debug("session rejected", zap.Error(err))
			AbortWithError(c, err)
			return
		}

		c.Set(SessionKey, session)
		c.Next()
	}
}

// RequireSession rejects requests that carry no session at all
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentSession(c) == nil {
			AbortWithError(c, apperr.ErrUnauthenticated)
			return
		}
		c.Next()
	}
}

// CurrentSession returns the session of the request, or nil
func CurrentSession(c *gin.Context) *auth.Session {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil
	}
	session, _ := v.(*auth.Session)
	return session
}
