package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

var middlewareTracer = otel.Tracer("auth-middleware")

// Gin context keys set once a request is authenticated
const (
	UserIDKey    = "user_id"
	UsernameKey  = "username"
	UserRolesKey = "user_roles"
	ClaimsKey    = "claims"
)

// extractToken reads the bearer token from the Authorization header, falling
// back to the token query parameter browsers use for websocket upgrades.
func extractToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}
	token := c.Query("token")
	return token, token != ""
}

// RequireAuth rejects requests without a valid token.
func RequireAuth(jm *JWTManager) gin.HandlerFunc {
	return authenticate(jm, true)
}

// OptionalAuth attaches the caller's claims when a valid token is present.
func OptionalAuth(jm *JWTManager) gin.HandlerFunc {
	return authenticate(jm, false)
}

func authenticate(jm *JWTManager, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := middlewareTracer.Start(c.Request.Context(), "auth.authenticate")
		defer span.End()
		span.SetAttributes(attribute.Bool("auth.required", required))

		token, ok := extractToken(c)
		if !ok {
			span.SetAttributes(attribute.Bool("auth.authenticated", false))
			if required {
				abort(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Missing or invalid authorization header")
				return
			}
			c.Next()
			return
		}

		claims, err := jm.Verify(ctx, token)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.Bool("auth.authenticated", false))
			jm.logger.Warn("rejected token", "error", err, "path", c.Request.URL.Path, "required", required)
			if required {
				abort(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Invalid or expired token")
				return
			}
			c.Next()
			return
		}

		span.SetAttributes(
			attribute.Bool("auth.authenticated", true),
			attribute.String("user.id", claims.Subject),
		)
		c.Set(UserIDKey, claims.Subject)
		c.Set(UsernameKey, claims.Username)
		c.Set(UserRolesKey, claims.Roles)
		c.Set(ClaimsKey, claims)

		jm.logger.Debug("user authenticated",
			"user_id", claims.Subject,
			"username", claims.Username,
			"path", c.Request.URL.Path,
			"method", c.Request.Method)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := c.Get(ClaimsKey)
		if cl, ok := claims.(*Claims); !ok || !cl.HasRole(role) {
			abort(c, http.StatusForbidden, models.ErrCodeForbidden, "Insufficient permissions")
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: message, Code: code})
}
