// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "petbuddies/docs" // swagger docs
	"petbuddies/internal/cache"
	"petbuddies/internal/config"
	"petbuddies/internal/database"
	"petbuddies/internal/featureflags"
	"petbuddies/internal/middleware"
	"petbuddies/internal/models"
	"petbuddies/internal/notifications"
	"petbuddies/internal/repository"
	"petbuddies/internal/service"
	"petbuddies/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
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
	userRepo       repository.UserRepository
	petRepo        repository.PetRepository
	dictRepo       repository.DictRepository
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager
	store          storage.ObjectStore
	photos         *service.PhotoService
	lifecycle      *service.LifecycleService
	queries        *service.QueryService
	ratings        *service.RatingService
	reports        *service.ReportService
	moderation     *service.ModerationService
	userService    *service.UserService
	petService     *service.PetService
	dictService    *service.DictService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis is optional; without it the server runs uncached and notifies in-process.
	redisClient := cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and optionally
// performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	store, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("petbuddies-api"),
		userRepo:       repository.NewUserRepository(db),
		petRepo:        repository.NewPetRepository(db),
		dictRepo:       repository.NewDictRepository(db),
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		store:          store,
	}

	server.photos = service.NewPhotoService(store, cfg)
	server.lifecycle = service.NewLifecycleService(db)
	server.queries = service.NewQueryService(db, server.userRepo, server.photos)
	server.ratings = service.NewRatingService(db)
	server.reports = service.NewReportService(db)
	server.moderation = service.NewModerationService(db)
	server.userService = service.NewUserService(server.userRepo, server.petRepo, server.photos)
	server.petService = service.NewPetService(server.petRepo, server.photos)
	server.dictService = service.NewDictService(server.dictRepo)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Propagates request and user ids into the request context for logging.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(middleware.TracingMiddleware())

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
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
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "PetBuddies Backend Metrics Dashboard",
	}))

	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.Logout)

	// Public dictionaries
	dicts := api.Group("/dicts")
	dicts.Get("/cities/:term", middleware.RateLimit(
		s.redis, 60, time.Minute, "city_search"), s.SearchCities)
	dicts.Get("/report-types", s.GetReportTypes)

	// Protected routes
	protected := api.Group("", s.AuthRequired())
	active := s.ActiveUserRequired()

	protected.Get("/auth/me", s.Me)

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", active, s.UpdateMyProfile)
	users.Put("/me/photo", active, s.UploadMyPhoto)
	// Specific /:id/:resource routes before generic /:id
	users.Post("/:id/report", active, middleware.RateLimit(
		s.redis, 5, time.Hour, "report_user"), s.ReportUser)
	users.Get("/:id", s.GetUserProfile)

	pets := protected.Group("/pets")
	pets.Post("/", active, s.CreatePet)
	pets.Get("/me", s.GetMyPets)
	pets.Put("/:id/photo", active, s.UploadPetPhoto)
	pets.Get("/:id", s.GetPet)
	pets.Delete("/:id", active, s.DeletePet)

	posts := protected.Group("/posts")
	posts.Post("/", active, middleware.RateLimit(
		s.redis, 10, time.Hour, "create_post"), s.CreatePost)
	posts.Get("/dashboard", s.GetDashboard)
	posts.Get("/me", s.GetMyPosts)
	posts.Get("/:id/edit", s.GetPostEdit)
	posts.Put("/:id/edit", active, s.UpdatePost)
	posts.Post("/:id/applications/cancel", active, s.CancelMyApplication)
	posts.Post("/:id/applications/:userId/accept", active, s.AcceptApplication)
	posts.Post("/:id/applications/:userId/decline", active, s.DeclineApplication)
	posts.Post("/:id/applications", active, s.ApplyToPost)
	posts.Get("/:id/applications", s.GetApplicants)
	posts.Post("/:id/reviews/:userId", active, s.RateUser)
	posts.Put("/:id", active, s.UpdatePost)
	posts.Delete("/:id", active, s.ClosePost)
	posts.Get("/:id", s.GetPost)

	applications := protected.Group("/applications")
	applications.Get("/me", s.GetMyApplications)
	applications.Get("/count", s.GetApplicationsCount)

	protected.Get("/ws", s.WebsocketUpgrade(), s.WebsocketHandler())

	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/dashboard", s.GetAdminDashboard)
	admin.Get("/reports", s.GetAdminReports)
	admin.Post("/reports/:id/consider", s.ConsiderReport)
	admin.Get("/users", s.GetAdminUsers)
	admin.Get("/users/:userId", s.GetAdminUserDetail)
	admin.Post("/users/:userId/ban", s.BanUser)
	admin.Post("/users/:userId/unban", s.UnbanUser)
	admin.Post("/users/:userId/promote", s.PromoteToAdmin)
	admin.Post("/users/:userId/demote", s.DemoteFromAdmin)
	admin.Get("/admins", s.GetAdmins)
	admin.Delete("/posts/:postId", s.RemovePost)
	admin.Get("/feature-flags", s.GetFeatureFlags)
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

	// Redis is optional, so its absence does not fail readiness.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(uint)

		admin, err := s.isAdmin(c, userID)
		if err != nil {
			return s.respondError(c, models.NewInternalError(err))
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		return c.Next()
	}
}

// ActiveUserRequired rejects banned users. It guards every mutating route.
func (s *Server) ActiveUserRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(uint)

		banned, err := s.isBannedByUserID(c.UserContext(), userID)
		if err != nil {
			return s.respondError(c, err)
		}
		if banned {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Account is banned"))
		}
		return c.Next()
	}
}

// AuthRequired returns the authentication middleware. The session token is
// read from the cookie first, then the Authorization header, then ?token=.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := middleware.TokenFromRequest(c, s.config.CookieName)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := middleware.ParseSessionToken(tokenString, s.config.JWTSecret)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		if claims.ID != "" {
			revoked, err := cache.IsTokenRevoked(c.UserContext(), claims.ID)
			if err != nil {
				middleware.Logger.WarnContext(c.UserContext(), "token revocation check failed",
					slog.String("error", err.Error()))
			}
			if revoked {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Token has been revoked"))
			}
		}

		userID, _ := claims.UserID()
		c.Locals("userID", userID)
		c.Locals("claims", claims)
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, userID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// App builds the Fiber application with middleware and routes. It is
// created once and reused by Start and by tests.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	bodyLimitMB := s.config.ImageMaxUploadSizeMB
	if bodyLimitMB <= 0 {
		bodyLimitMB = 10
	}

	app := fiber.New(fiber.Config{
		AppName:   "PetBuddies API",
		BodyLimit: (bodyLimitMB + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			return s.respondError(c, models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	// Fan out Redis notifications to local websocket clients.
	if s.redis != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()),
					slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
