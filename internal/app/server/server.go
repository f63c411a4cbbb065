package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/terrawatt/terrawatt/internal/app/config"
	"github.com/terrawatt/terrawatt/internal/app/handlers"
	"github.com/terrawatt/terrawatt/internal/app/middleware"
	"github.com/terrawatt/terrawatt/internal/domain/services"
	"github.com/terrawatt/terrawatt/internal/infrastructure/auth/supabase"
	"github.com/terrawatt/terrawatt/internal/infrastructure/cache"
	"github.com/terrawatt/terrawatt/internal/infrastructure/database"
	"github.com/terrawatt/terrawatt/internal/infrastructure/database/models"
	"github.com/terrawatt/terrawatt/internal/infrastructure/repositories/postgresql"
	"github.com/terrawatt/terrawatt/internal/infrastructure/storage/local"
	"github.com/terrawatt/terrawatt/internal/realtime"
	"github.com/terrawatt/terrawatt/pkg/logger"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	router *gin.Engine
	server *http.Server
	db     *database.DB
	cache  services.CacheService
}

// New creates a new server instance
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	if cfg.GetDatabaseURL() == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	db, err := database.New(cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.AutoMigrate(models.GetAllModels()...); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Cache is optional: a missing redis disables summary caching but never
	// blocks startup.
	var cacheService services.CacheService
	if cfg.Redis.Enabled {
		cacheService, err = cache.NewRedisCacheService(cfg.Redis.URL)
		if err != nil {
			log.Warn("Failed to connect to redis, continuing without cache", "error", err)
			cacheService = nil
		}
	}

	authService, err := supabase.NewAuthService(supabase.Config{
		URL:    cfg.Supabase.URL,
		APIKey: cfg.Supabase.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}

	repos := postgresql.NewRepositories(db)
	storageService := local.NewStorageService(cfg.Storage.Path)
	versionService := services.NewVersionService(repos.VersionRepo, repos.LandRepo, repos.AuditRepo, cacheService)
	hub := realtime.NewHub(repos.TaskRepo, repos.MessageRepo, cacheService, log)

	// Configure Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg))
	router.Use(loggingMiddleware(log))

	server := &Server{
		config: cfg,
		logger: log,
		router: router,
		db:     db,
		cache:  cacheService,
	}

	server.setupRoutes(repos, authService, storageService, versionService, hub)

	return server, nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Error("Error closing cache connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Error closing database connection", "error", err)
		}
	}

	return s.server.Shutdown(ctx)
}

// setupRoutes configures all application routes
func (s *Server) setupRoutes(
	repos *postgresql.Repositories,
	authService services.AuthService,
	storageService services.StorageService,
	versionService *services.VersionService,
	hub *realtime.Hub,
) {
	// Upload limits flow from the application config into the handlers.
	handlerCfg := handlers.NewHandlerConfig()
	handlerCfg.MaxFileSize = s.config.Limits.MaxFileSize
	handlerCfg.AllowedFileTypes = s.config.Limits.AllowedFileTypes

	documentHandler := handlers.NewDocumentHandler(versionService, storageService, handlerCfg)
	landHandler := handlers.NewLandHandler(repos.LandRepo, handlerCfg)
	taskHandler := handlers.NewTaskHandler(repos.TaskRepo, repos.MessageRepo, handlerCfg)
	realtimeHandler := handlers.NewRealtimeHandler(hub, authService, repos.UserRepo, s.config.Server.AllowedOrigins, handlerCfg)

	// Health check endpoint
	s.router.GET("/health", s.healthCheck)

	// API v1 group
	v1 := s.router.Group("/api/v1")
	{
		// Websocket endpoint authenticates via query parameter, not header
		realtimeHandler.RegisterRoutes(v1)

		// Protected routes
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(authService, repos.UserRepo))
		{
			documentHandler.RegisterRoutes(protected)
			landHandler.RegisterRoutes(protected)
			taskHandler.RegisterRoutes(protected)

			// Exposes connection internals, admins only
			protected.GET("/status", middleware.AdminRequiredMiddleware(), s.systemStatus)
		}
	}
}

// Health check handler
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": s.config.Environment,
	})
}

// System status handler
func (s *Server) systemStatus(c *gin.Context) {
	dbStatus := "healthy"
	if err := s.db.Ping(); err != nil {
		dbStatus = "unhealthy"
	}

	cacheStatus := "not_configured"
	if s.cache != nil {
		if err := s.cache.Ping(c.Request.Context()); err != nil {
			cacheStatus = "unhealthy"
		} else {
			cacheStatus = "healthy"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"database":  dbStatus,
		"cache":     cacheStatus,
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	})
}

// corsMiddleware configures CORS
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	return cors.New(corsConfig)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// Process request
		c.Next()

		// Log request details
		latency := time.Since(start)
		if raw != "" {
			path = path + "?" + raw
		}

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		}
		if userID, ok := middleware.GetUserID(c); ok {
			attrs = append(attrs, "user_id", userID)
		}
		log.Info("HTTP Request", attrs...)
	}
}
