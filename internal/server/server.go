// Package server contains the HTTP handlers for the application's routes.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"chirp/internal/auth"
	"chirp/internal/cache"
	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/middleware"
	"chirp/internal/models"
	"chirp/internal/repository"
	"chirp/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	sessions       *session.Manager
	promMiddleware *fiberprometheus.FiberPrometheus
	credentials    *auth.CredentialStore
	userRepo       repository.UserRepository
	messageRepo    repository.MessageRepository
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour

	// Sessions live in Redis; without Redis an in-process store keeps a
	// single node fully functional.
	var store session.Store
	if redisClient != nil {
		store = session.NewRedisStore(redisClient, ttl)
	} else {
		store = session.NewMemoryStore(ttl)
	}

	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		sessions:       session.NewManager(store, ttl),
		promMiddleware: middleware.InitMetrics("chirp-api"),
		credentials:    auth.NewCredentialStore(userRepo),
		userRepo:       userRepo,
		messageRepo:    messageRepo,
	}
}

// Sessions exposes the session manager, mainly for tests.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Session cookie + per-request acting user resolution, before logging so
	// request logs carry user_id.
	app.Use(middleware.EnsureSession(s.sessions))
	app.Use(middleware.CurrentUser(s.sessions, s.userRepo, s.config.JWTSecret))

	// Structured Logging middleware
	app.Use(middleware.StructuredLogger())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Every response is personal or volatile; disable client caching.
	app.Use(middleware.NoCache())

	// CORS middleware should run before middlewares that can short-circuit
	// (e.g. limiter) so browser clients still receive CORS headers on errors.
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
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
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
	// Health and metrics
	app.Get("/health", s.HealthCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Home feed / anonymous landing
	app.Get("/", s.Home)

	// Signup/login/logout
	app.Get("/signup", s.SignupForm)
	app.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	app.Get("/login", s.LoginForm)
	app.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	app.Get("/logout", s.Logout)

	protected := middleware.LoginRequired(s.sessions)

	// User routes. Specific /users/:resource routes come BEFORE the generic
	// /users/:id route.
	app.Get("/users", s.ListUsers)
	app.Get("/users/profile", protected, s.ProfileForm)
	app.Post("/users/profile", protected, s.UpdateProfile)
	app.Post("/users/delete", protected, s.DeleteAccount)
	app.Post("/users/follow/:id", protected, s.AddFollow)
	app.Post("/users/stop-following/:id", protected, s.StopFollowing)
	app.Post("/users/add_like/:id", protected, s.ToggleLike)
	app.Get("/users/:id", s.ShowUser)
	app.Get("/users/:id/following", protected, s.ShowFollowing)
	app.Get("/users/:id/followers", protected, s.ShowFollowers)
	app.Get("/users/:id/likes", protected, s.ShowLikes)

	// Message routes
	app.Get("/messages/new", protected, s.NewMessageForm)
	app.Post("/messages/new", protected, s.CreateMessage)
	app.Get("/messages/:id", s.ShowMessage)
	app.Post("/messages/:id/delete", protected, s.DeleteMessage)

	// Dedicated not-found payload for everything else
	app.Use(func(c *fiber.Ctx) error {
		return models.RespondWithError(c, fiber.StatusNotFound,
			&models.AppError{Code: "NOT_FOUND", Message: "Page not found"})
	})
}

// ErrorHandler renders a generic error payload for unhandled failures so raw
// internal errors never reach the client.
func (s *Server) ErrorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok && e.Code < fiber.StatusInternalServerError {
		return models.RespondWithError(c, e.Code, e)
	}
	middleware.Logger.Error("unhandled error", "error", err.Error(), "path", c.Path())
	return models.RespondWithError(c, fiber.StatusInternalServerError,
		models.NewInternalError(err))
}

// NewApp builds the Fiber application with middleware and routes wired.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "chirp",
		ErrorHandler: s.ErrorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// HealthCheck reports database and Redis connectivity.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"status": "healthy",
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Shutdown gracefully releases server resources.
func (s *Server) Shutdown(ctx context.Context) error {
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

	return nil
}
