package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/serializer"
	"github.com/lexflow/lexflow-api/internal/modules/service"
	"github.com/lexflow/lexflow-api/internal/pkg/jwtutil"
)

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, *jwtutil.UserClaims, error)
}

// BearerToken reads the token from the Authorization header, falling back to
// the token query parameter used by websocket clients.
func BearerToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return c.Query("token")
}

// UserAuth returns a middleware that authenticates requests using user JWTs.
// It sets the user and its claims in the context and tags the current span.
func UserAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, claims, err := auth.Authenticate(c.Request.Context(), BearerToken(c))
		if err != nil {
			switch {
			case errors.Is(err, service.ErrTokenMissing),
				errors.Is(err, service.ErrTokenRevoked),
				errors.Is(err, jwtutil.ErrTokenExpired),
				errors.Is(err, jwtutil.ErrTokenInvalid):
				c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr(err.Error()))
			case errors.Is(err, service.ErrUnauthorized):
				c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr(service.PublicMessage(err)))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, serializer.DBErr("", err))
			}
			return
		}

		span := trace.SpanFromContext(c.Request.Context())
		if span.SpanContext().IsValid() {
			span.SetAttributes(
				attribute.String("user_id", user.ID.String()),
				attribute.String("tenant_id", user.TenantID.String()),
			)
		}

		c.Set("user", user)
		c.Set("claims", claims)
		c.Next()
	}
}
