package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"paylite-payment-service/pkg/apperror"
	"paylite-payment-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// HeaderAPIKey authenticates API clients on payment routes.
	HeaderAPIKey = "X-API-Key"
	// HeaderIdempotencyKey scopes at-most-once payment creation.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderSignature carries the provider HMAC over the webhook body.
	HeaderSignature = "X-PSP-Signature"

	// Context keys
	CtxClientName = "client_name"
)

// APIKeyAuth creates a middleware that gates payment routes on a static
// API key. Keys map to client names in configuration; the comparison is
// constant-time so key length and prefix leak nothing.
func APIKeyAuth(apiKeys map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(HeaderAPIKey)
		if provided == "" {
			response.Error(c, apperror.ErrMissingAPIKey())
			c.Abort()
			return
		}

		for key, client := range apiKeys {
			if subtle.ConstantTimeCompare([]byte(key), []byte(provided)) == 1 {
				c.Set(CtxClientName, client)
				c.Next()
				return
			}
		}

		response.Error(c, apperror.ErrInvalidAPIKey())
		c.Abort()
	}
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

// MaxBodySize limits request body size to prevent memory exhaustion.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
