package handler

import (
	"paylite-payment-service/internal/adapter/http/middleware"
	redisStore "paylite-payment-service/internal/adapter/storage/redis"
	"paylite-payment-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	PaymentSvc     ports.PaymentService
	WebhookSvc     ports.WebhookService
	APIKeys        map[string]string               // key -> client name
	RateLimitStore *redisStore.RateLimitStore      // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- API-keyed routes (client API) ---
	apiKeyAuth := middleware.APIKeyAuth(deps.APIKeys)
	paymentHandler := NewPaymentHandler(deps.PaymentSvc)
	payments := v1.Group("/payments", apiKeyAuth)
	{
		payments.POST("", rl("payments"), paymentHandler.CreatePayment)
		payments.GET("/:paymentId", rl("payments_get"), paymentHandler.GetPayment)
	}

	// --- Provider routes (no API key; authenticated by HMAC signature) ---
	webhookHandler := NewWebhookHandler(deps.WebhookSvc)
	webhooks := v1.Group("/webhooks")
	{
		webhooks.POST("/psp", rl("webhooks"), webhookHandler.HandlePSPWebhook)
	}

	return r
}
