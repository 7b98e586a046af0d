// Package server contains the HTTP handlers and routing of the Yatube web application.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alex-zharinov/hw05-final/internal/bootstrap"
	"github.com/alex-zharinov/hw05-final/internal/cache"
	"github.com/alex-zharinov/hw05-final/internal/config"
	"github.com/alex-zharinov/hw05-final/internal/database"
	"github.com/alex-zharinov/hw05-final/internal/middleware"
	"github.com/alex-zharinov/hw05-final/internal/repository"
	"github.com/alex-zharinov/hw05-final/internal/service"
	"github.com/alex-zharinov/hw05-final/web"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
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
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       *middleware.Sessions
	pages          *cache.PageStore
	images         *service.ImageService

	feedService    *service.FeedService
	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	accountService *service.AccountService
}

// NewServer connects the stores described by cfg and builds a server on top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedGroups: cfg.SeedGroups})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil: the page cache then lives in process memory and
// sessions cannot be revoked.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("server requires a database")
	}

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)

	images := service.NewImageService(cfg)
	follows := service.NewFollowService(followRepo, userRepo)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("yatube"),
		sessions:       middleware.NewSessions(cfg, redisClient),
		pages:          cache.NewPageStore(redisClient),
		images:         images,

		feedService:    service.NewFeedService(postRepo, groupRepo, userRepo, follows),
		postService:    service.NewPostService(postRepo, groupRepo, commentRepo, images, redisClient),
		commentService: service.NewCommentService(commentRepo, postRepo),
		followService:  follows,
		accountService: service.NewAccountService(userRepo),
	}
	return s, nil
}

// App builds the Fiber application with middleware and routes. It is built once
// and reused by Start.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "Yatube",
		Views:        newViewEngine(),
		ErrorHandler: s.handleError,
		BodyLimit:    s.bodyLimit(),
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// bodyLimit leaves room for the multipart envelope around the largest accepted image.
func (s *Server) bodyLimit() int {
	mb := s.config.ImageMaxUploadSizeMB
	if mb <= 0 {
		mb = service.DefaultImageMaxUploadSizeMB
	}
	return (mb + 1) * 1024 * 1024
}

// PageStore exposes the Redis page cache store, e.g. to clear it. It is nil
// when the server runs without Redis.
func (s *Server) PageStore() *cache.PageStore {
	return s.pages
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Identity before the context middleware so the user id reaches the logger.
	app.Use(s.sessions.Middleware())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))
	app.Use(middleware.StructuredLogger())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   http.FS(web.Static()),
		MaxAge: 3600,
	}))
	app.Static("/media", s.images.MediaRoot(), fiber.Static{ByteRange: true})

	loginRequired := middleware.LoginRequired()

	app.Get("/", s.indexCache(), s.Index)
	app.Get("/group/:slug", s.GroupPosts)
	app.Get("/follow", loginRequired, s.FollowIndex)

	profile := app.Group("/profile/:username")
	profile.Get("/", s.Profile)
	profile.Get("/follow", loginRequired, s.ProfileFollow)
	profile.Get("/unfollow", loginRequired, s.ProfileUnfollow)

	app.Get("/create", loginRequired, s.PostCreateForm)
	app.Post("/create", loginRequired, s.PostCreate)

	posts := app.Group("/posts/:id")
	posts.Get("/", s.PostDetail)
	posts.Get("/edit", loginRequired, s.PostEditForm)
	posts.Post("/edit", loginRequired, s.PostEdit)
	// Any method, so an anonymous GET still lands on the login page.
	posts.All("/comment", loginRequired, s.AddComment)

	auth := app.Group("/auth")
	auth.Get("/login", s.LoginForm)
	auth.Post("/login", middleware.RateLimit(
		s.redis, s.loginRateLimit(), 5*time.Minute, "login"), s.Login)
	auth.Get("/signup", s.SignupForm)
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.All("/logout", s.Logout)

	about := app.Group("/about")
	about.Get("/author", s.AboutAuthor)
	about.Get("/tech", s.AboutTech)
}

func (s *Server) loginRateLimit() int {
	if s.config.LoginRateLimit > 0 {
		return s.config.LoginRateLimit
	}
	return 10
}

// LivenessCheck reports that the process is up
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the database is reachable. Redis is optional: without it the
// page cache falls back to memory, so only the database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database":   dbStatus,
			"redis":      redisStatus,
			"page_cache": s.pageCacheBackend(),
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	slog.Info("server starting", "port", s.config.Port, "env", s.config.Env)
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests, then closes the database and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			slog.Error("error shutting down HTTP server", "error", err)
		}
	}

	if err := database.Close(s.db); err != nil {
		slog.Error("error closing database", "error", err)
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			slog.Error("error closing redis", "error", err)
		}
	}

	slog.Info("server shutdown complete")
	return nil
}
