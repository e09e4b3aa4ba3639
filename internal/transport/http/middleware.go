package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// HeaderUser carries the caller identity attached by the upstream
	// authentication layer. The server trusts it as-is.
	HeaderUser = "X-User"

	// ContextKeyNickname is the gin context key for the caller's nickname.
	ContextKeyNickname = "nickname"
)

// IdentityMiddleware copies the trusted identity header into the request
// context. An absent header leaves the identity empty; handlers that
// require a caller reject those requests themselves.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyNickname, c.GetHeader(HeaderUser))
		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}

// callerNickname returns the identity attached by IdentityMiddleware.
// Empty means the caller is unresolved.
func callerNickname(c *gin.Context) string {
	return c.GetString(ContextKeyNickname)
}
