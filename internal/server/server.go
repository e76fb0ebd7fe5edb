// Package server contains the HTTP handlers for the application's API
// endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	_ "github.com/bluedream1831-collab/threads/docs" // swagger docs
	"github.com/bluedream1831-collab/threads/internal/blob"
	"github.com/bluedream1831-collab/threads/internal/cache"
	"github.com/bluedream1831-collab/threads/internal/config"
	"github.com/bluedream1831-collab/threads/internal/database"
	"github.com/bluedream1831-collab/threads/internal/generation"
	"github.com/bluedream1831-collab/threads/internal/middleware"
	"github.com/bluedream1831-collab/threads/internal/models"
	"github.com/bluedream1831-collab/threads/internal/prompt"
	"github.com/bluedream1831-collab/threads/internal/repository"
	"github.com/bluedream1831-collab/threads/internal/store"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	registry    *store.Registry
	provider    generation.Provider
	blobs       *blob.Store
	builder     *prompt.Builder
	historyRepo repository.HistoryRepository
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	blobs := blob.NewStore(redisClient, blob.DefaultTTL)

	// A missing key does not block startup; generation routes surface an
	// auth error until a credential is configured.
	var provider generation.Provider
	if cfg.GeminiAPIKey != "" {
		gemini, err := generation.NewGemini(context.Background(), generation.Config{
			APIKey:          cfg.GeminiAPIKey,
			ImageModel:      cfg.ImageModel,
			VideoModel:      cfg.VideoModel,
			VideoResolution: cfg.VideoResolution,
			VideoAspect:     cfg.VideoAspect,
			PollInterval:    time.Duration(cfg.VideoPollSeconds) * time.Second,
			MaxPolls:        cfg.VideoMaxPolls,
		}, blobs)
		if err != nil {
			return nil, fmt.Errorf("provider client failed: %w", err)
		}
		provider = gemini
	} else {
		middleware.Logger.Warn("no provider API key configured, generation is disabled")
	}

	middleware.InitMiddleware(cfg)

	return NewServerWithDeps(cfg, db, redisClient, provider, blobs), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, provider generation.Provider, blobs *blob.Store) *Server {
	prom := middleware.InitMetrics("threads-muse")

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		registry:       store.NewRegistry(time.Duration(cfg.SessionTTLMinutes) * time.Minute),
		provider:       provider,
		blobs:          blobs,
		builder:        prompt.NewBuilder(cfg.PostCount, float32(cfg.Temperature)),
		historyRepo:    repository.NewHistoryRepository(db),
	}
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and Session ID
	app.Use(middleware.ContextMiddleware())

	// OpenTelemetry spans per request
	app.Use(middleware.TracingMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware runs before middlewares that can short-circuit
	// (e.g. limiter) so browser clients still receive CORS headers on
	// error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Session bootstrap and blob serving are the only unauthenticated
	// routes: the first has nothing to authenticate yet and the second is
	// fetched by media elements that cannot attach headers.
	api.Post("/sessions", middleware.RateLimit(
		s.redis, 20, time.Minute, "create_session"), s.CreateSession)
	api.Get("/blobs/:id", s.GetBlob)

	// Protected routes
	protected := api.Group("", middleware.SessionRequired)

	protected.Get("/session", s.GetSessionState)

	selection := protected.Group("/selection")
	selection.Put("/", s.UpdateSelection)
	selection.Post("/keywords", s.AddKeyword)
	selection.Delete("/keywords", s.RemoveKeywords)

	protected.Post("/generate", middleware.RateLimit(
		s.redis, 10, time.Minute, "generate"), s.GeneratePosts)

	posts := protected.Group("/posts")
	posts.Get("/", s.GetPosts)
	// Define specific /:index/:resource routes BEFORE the generic /:index route
	posts.Post("/:index/edit", s.StartEdit)
	posts.Delete("/:index/edit", s.CancelEdit)
	posts.Post("/:index/panel", s.TogglePanel)
	posts.Post("/:index/reactions/:kind", s.ToggleReaction)
	posts.Get("/:index/export", s.ExportPost)
	posts.Post("/:index/visual", middleware.RateLimit(
		s.redis, 10, time.Minute, "visual"), s.CreateVisual)
	posts.Get("/:index/visual", s.GetVisual)
	posts.Delete("/:index/visual", s.DeleteVisual)
	posts.Post("/:index/schedule", s.SchedulePost)
	posts.Put("/:index", s.UpdatePost)

	schedule := protected.Group("/schedule")
	schedule.Get("/", s.GetSchedule)
	schedule.Delete("/:id", s.RemoveSchedule)

	protected.Get("/history", s.GetHistory)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: rate limiting fails open and blobs fall back to
	// memory, so its absence degrades readiness rather than failing it.
	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	providerStatus := "configured"
	if s.provider == nil {
		providerStatus = "unconfigured"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"provider": providerStatus,
		},
		"time": time.Now(),
	})
}

// session resolves the authenticated session from the request.
func (s *Server) session(c *fiber.Ctx) (*store.Session, error) {
	id, _ := c.Locals("sessionID").(string)
	if id == "" {
		return nil, models.NewAuthError("Session token required", nil)
	}
	sess, ok := s.registry.Get(id)
	if !ok {
		return nil, models.NewAuthError("Session expired", nil)
	}
	return sess, nil
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "Threads Muse API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	s.registry.StartSweeper(s.shutdownCtx, 5*time.Minute)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
