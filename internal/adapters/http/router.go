package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/geosurvey/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, 429, "rate_limited", "too many requests, please try again later")
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1, 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Get("/projects", timeout.NewWithContext(ListProjectsHandler(deps), 15*time.Second))
	v1.Post("/projects", timeout.NewWithContext(CreateProjectHandler(deps), 15*time.Second))
	v1.Get("/projects/:id", timeout.NewWithContext(GetProjectHandler(deps), 15*time.Second))
	v1.Get("/projects/:id/locations", timeout.NewWithContext(ListLocationsHandler(deps), 15*time.Second))
	v1.Post("/projects/:id/locations", timeout.NewWithContext(CreateLocationHandler(deps), 15*time.Second))
	v1.Get("/projects/:id/locations/map", timeout.NewWithContext(LocationMapHandler(deps), 15*time.Second))
	v1.Get("/projects/:id/locations/export", timeout.NewWithContext(ExportLocationsHandler(deps), 15*time.Second))
	v1.Get("/locations/template", timeout.NewWithContext(TemplateHandler(deps), 15*time.Second))
	v1.Put("/locations/:id", timeout.NewWithContext(UpdateLocationHandler(deps), 15*time.Second))

	// Imports get a longer budget; a batch is one transaction and is never retried.
	v1.Post("/projects/:id/locations/import", timeout.NewWithContext(ImportLocationsHandler(deps), 60*time.Second))
	v1.Post("/projects/:id/locations/import/preview", timeout.NewWithContext(PreviewImportHandler(deps), 30*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app, deps.DocsPath)

	// WebSocket: location events for one project
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if c.Query("project_id") == "" {
			return errBadRequest(c, "project_id is required")
		}
		return c.Next()
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.Events)))
}
