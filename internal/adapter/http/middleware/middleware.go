package middleware

import (
	"net/http"
	"strings"
	"time"

	"custodial-wallet-backend/internal/core/domain"
	"custodial-wallet-backend/internal/core/ports"
	"custodial-wallet-backend/pkg/apperror"
	"custodial-wallet-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// HeaderAPIKey carries the raw key secret on programmatic requests.
	HeaderAPIKey = "X-API-Key"

	// CtxPrincipal is the context key under which the resolved principal
	// is stored for downstream handlers.
	CtxPrincipal = "principal"
)

// Auth resolves request credentials into a principal. The decision order
// is fixed: a present API key is authoritative and a failure on it is
// final, even when a bearer token rides alongside; only keyless requests
// fall to token verification.
func Auth(authSvc ports.AuthService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(HeaderAPIKey)
		bearer := bearerToken(c)

		principal, err := authSvc.Resolve(c.Request.Context(), apiKey, bearer)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(CtxPrincipal, principal)
		c.Next()
	}
}

// RequireScopes gates an operation on the principal holding at least one
// of the given scopes. Token principals hold the wildcard and always pass.
func RequireScopes(scopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			response.Error(c, apperror.ErrUnauthenticated())
			c.Abort()
			return
		}
		if !principal.Can(scopes...) {
			response.Error(c, apperror.ErrForbidden())
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireTokenOrigin restricts a route to session-token principals.
// Key management is never reachable with an API key, so a leaked key
// cannot mint or revoke siblings.
func RequireTokenOrigin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			response.Error(c, apperror.ErrUnauthenticated())
			c.Abort()
			return
		}
		if principal.Origin != domain.OriginToken {
			response.Error(c, apperror.ErrForbidden())
			c.Abort()
			return
		}
		c.Next()
	}
}

// PrincipalFrom extracts the resolved principal from the request context.
func PrincipalFrom(c *gin.Context) (*domain.Principal, bool) {
	v, ok := c.Get(CtxPrincipal)
	if !ok {
		return nil, false
	}
	principal, ok := v.(*domain.Principal)
	return principal, ok
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return ""
	}
	return authHeader[len(prefix):]
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// MaxBodySize returns middleware that limits the request body size.
// Once the limit is exceeded the reader returns an error and the
// request is rejected with 413 Payload Too Large.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
