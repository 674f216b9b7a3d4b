// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, authentication, idempotency, and rate limiting.
package httpapi

import (
	"net/http"
	"path"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/CachoMX/vhlabs/internal/auth"
	"github.com/CachoMX/vhlabs/internal/cache"
	"github.com/CachoMX/vhlabs/internal/config"
	"github.com/CachoMX/vhlabs/internal/http/handlers"
	"github.com/CachoMX/vhlabs/internal/http/middleware"
	"github.com/CachoMX/vhlabs/internal/notify"
	"github.com/CachoMX/vhlabs/internal/services"
)

// Infra bundles the external collaborators the services need besides the
// database.
type Infra struct {
	Cache    *cache.Cache
	Provider auth.Provider // GoTrue (usually behind a circuit breaker)
	Verifier auth.Verifier // bearer token check for the API group
	Webhook  *notify.Webhook
}

// NewServices builds the application services over db and infra.
func NewServices(db *gorm.DB, infra Infra, cfg config.Config) handlers.Services {
	return handlers.Services{
		Contacts: &services.ContactService{DB: db, ExportMaxRows: cfg.ExportMaxRows},
		Contents: &services.ContentService{
			DB:            db,
			Cache:         infra.Cache,
			TTL:           cfg.Cache.LongTTL,
			ExportMaxRows: cfg.ExportMaxRows,
		},
		Distributions: &services.DistributionService{
			DB:             db,
			Cache:          infra.Cache,
			TTL:            cfg.Cache.LongTTL,
			Webhook:        infra.Webhook,
			IdempotencyTTL: cfg.IdempotencyTTL,
			ExportMaxRows:  cfg.ExportMaxRows,
		},
		Prompts:   &services.PromptService{DB: db},
		Analytics: &services.AnalyticsService{DB: db, ExportMaxRows: cfg.ExportMaxRows},
		Dashboard: &services.DashboardService{
			DB:       db,
			Cache:    infra.Cache,
			LongTTL:  cfg.Cache.LongTTL,
			ShortTTL: cfg.Cache.ShortTTL,
		},
		Auth: &services.AuthService{Provider: infra.Provider},
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the dashboard API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. gzip, CORS and security headers
//
// The API group then adds authentication, idempotency (before the rate
// limiter so replays bypass it) and the per-user rate limiter.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, infra Infra, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"apikey", "X-Supabase-Auth"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Compression for list and CSV payloads
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	svcs := NewServices(db, infra, cfg)
	h := handlers.New(svcs)

	base := groupWithPrefix(r, cfg.APIBasePath)

	// Sign-in is public. It gets its own IP-keyed limiter, and tokens must
	// never be cached.
	login := base.Group("/auth")
	login.Use(
		middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP()).Handler(),
		middleware.SecurityHeaders(middleware.SecurityOptions{NoStore: true}),
	)
	login.POST("/login", h.Login)

	api := base.Group("")
	api.Use(
		middleware.Authenticate(middleware.AuthOptions{
			Verifier: infra.Verifier,
			Disabled: cfg.Supabase.AuthDisabled,
		}),
		// Only sends store results to replay, so only they honor the key.
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{
			MaxLen: 200,
			Routes: []string{http.MethodPost + " " + path.Join(base.BasePath(), "/distributions")},
		}, svcs.Distributions.HasResult),
		middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).Handler(),
	)
	{
		// Auth
		api.POST("/auth/logout", h.Logout)
		api.GET("/auth/me", h.Me)

		// Contacts
		api.GET("/contacts", h.ListContacts)
		api.GET("/contacts/export", h.ExportContacts)
		api.GET("/contacts/:id", h.GetContact)
		api.GET("/segments", h.ListSegments)
		api.GET("/investor-statuses", h.ListInvestorStatuses)

		// Content
		api.GET("/contents", h.ListContents)
		api.POST("/contents", h.CreateContent)
		api.GET("/contents/export", h.ExportContents)
		api.GET("/contents/:id", h.GetContent)
		api.PATCH("/contents/:id", h.UpdateContent)
		api.POST("/contents/:id/archive", h.ArchiveContent)
		api.GET("/contents/:id/hooks", h.ListContentHooks)
		api.GET("/contents/:id/distributions", h.ListContentDistributions)

		// Distributions
		api.GET("/distributions", h.ListDistributions)
		api.POST("/distributions", h.CreateDistributions)
		api.GET("/distributions/export", h.ExportDistributions)
		api.GET("/distributions/performance", h.DistributionPerformance)
		api.GET("/distributions/by-channel", h.DistributionsByChannel)

		// Prompts
		api.GET("/prompts", h.ListPrompts)
		api.POST("/prompts", h.CreatePrompt)
		api.GET("/prompts/:id", h.GetPrompt)
		api.POST("/prompts/:id/render", h.RenderPrompt)
		api.PATCH("/prompts/:id/active", h.TogglePromptActive)
		api.POST("/prompt-families/:promptId/versions", h.CreatePromptVersion)

		// Analytics
		api.GET("/analytics/events", h.ListAnalyticsEvents)
		api.GET("/analytics/events/export", h.ExportAnalyticsEvents)
		api.GET("/analytics/workflows", h.ListWorkflowLogs)

		// Dashboard
		api.GET("/dashboard/kpis", h.DashboardKPIs)
		api.GET("/dashboard/contact-breakdown", h.DashboardContactBreakdown)
		api.GET("/dashboard/engagement", h.DashboardEngagement)
		api.GET("/dashboard/recent-activity", h.DashboardRecentActivity)
		api.GET("/dashboard/system-health", h.DashboardSystemHealth)
	}
}

// corsMiddleware returns the CORS posture: allow all when no origins are
// configured, otherwise echo allowlisted origins.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition", "ETag", handlers.HeaderIdempotentReplay},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true // AllowCredentials must stay false
		return []gin.HandlerFunc{
			// Force ACAO: * even for requests without an Origin header.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
