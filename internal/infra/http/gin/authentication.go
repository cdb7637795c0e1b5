package ginserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"eventbook/internal/app/services/auth"
	domainbooking "eventbook/internal/domain/booking"
)

// TokenResolver verifies bearer tokens.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (domainbooking.Actor, error)
}

// AuthMiddleware attaches the token's actor to the request context. Requests
// without a token pass through unauthenticated; a bad token is rejected.
type AuthMiddleware struct {
	Service TokenResolver
	Logger  *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	actor, err := m.Service.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.DebugContext(c.Request.Context(), "token validation failed", "error", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "invalid bearer token", Code: "unauthorized"})
		return
	}
	c.Request = c.Request.WithContext(auth.WithActor(c.Request.Context(), actor))
	c.Set("actor_id", actor.ID)
	c.Next()
}

func extractBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
