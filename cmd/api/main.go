package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dafibh/contribboard/contribboard-backend/internal/config"
	"github.com/dafibh/contribboard/contribboard-backend/internal/domain"
	"github.com/dafibh/contribboard/contribboard-backend/internal/handler"
	"github.com/dafibh/contribboard/contribboard-backend/internal/middleware"
	"github.com/dafibh/contribboard/contribboard-backend/internal/repository/fallback"
	"github.com/dafibh/contribboard/contribboard-backend/internal/repository/firebase"
	"github.com/dafibh/contribboard/contribboard-backend/internal/repository/postgres"
	"github.com/dafibh/contribboard/contribboard-backend/internal/repository/sqlite"
	"github.com/dafibh/contribboard/contribboard-backend/internal/service"
	"github.com/dafibh/contribboard/contribboard-backend/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	for _, warning := range cfg.Warnings() {
		log.Warn().Msg(warning)
	}

	// Server context ends on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open local fallback storage
	storage, closeStorage := openLocalStorage(ctx, cfg)
	defer closeStorage()

	// Initialize repositories
	remote := firebase.NewClient(firebase.Config{
		DatabaseURL: cfg.Firebase.DatabaseURL,
		AuthToken:   cfg.Firebase.AuthToken,
	})
	local := fallback.NewStore(storage)

	// Initialize WebSocket hub
	hub := websocket.NewHub()

	// Initialize services
	sessions := service.NewSessionStore()
	registrationService := service.NewRegistrationService(remote, local, sessions)
	registrationService.SetEventPublisher(hub)
	leaderboardService := service.NewLeaderboardService(remote, log.Logger, service.LeaderboardConfig{
		QualifyingPRs: cfg.QualifyingPRs,
	})
	leaderboardService.SetEventPublisher(hub)
	hub.FollowLeaderboard(leaderboardService)
	syncService := service.NewSyncService(remote, local)

	// Start the live leaderboard
	leaderboardService.Start(ctx)

	// Initialize middleware
	sessionMiddleware := middleware.NewSessionMiddleware(sessions)
	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	defer rateLimiter.Stop()

	// Initialize handlers
	handlers := handler.Handlers{
		Intro:        handler.NewIntroHandler(cfg.EventName, cfg.QualifyingPRs),
		Registration: handler.NewRegistrationHandler(registrationService),
		Leaderboard:  handler.NewLeaderboardHandler(leaderboardService),
		Sync:         handler.NewSyncHandler(syncService),
		WebSocket:    handler.NewWebSocketHandler(hub, cfg.CORSOrigins),
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, middleware.SessionHeader},
		ExposeHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:        86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": sessions.Count(),
			"clients":  hub.TotalClientCount(),
		})
	})

	// Register API routes
	handler.RegisterRoutes(e, sessionMiddleware, rateLimiter, handlers)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	<-ctx.Done()

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openLocalStorage opens the PostgreSQL or SQLite backend named by
// LOCAL_STORE_URL and returns it with its close function
func openLocalStorage(ctx context.Context, cfg *config.Config) (domain.LocalStorage, func()) {
	if cfg.IsPostgresStore() {
		pool, err := pgxpool.New(ctx, cfg.LocalStoreURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		if err := pool.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to ping database")
		}
		repo, err := postgres.NewLocalStorageRepository(ctx, pool)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to prepare local storage")
		}
		log.Info().Str("backend", "postgres").Msg("Local storage ready")
		return repo, pool.Close
	}

	if dir := filepath.Dir(cfg.LocalStoreURL); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("path", dir).Msg("Failed to create local storage directory")
		}
	}
	repo, err := sqlite.NewLocalStorageRepository(ctx, cfg.LocalStoreURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open local storage")
	}
	log.Info().Str("backend", "sqlite").Str("path", cfg.LocalStoreURL).Msg("Local storage ready")
	return repo, func() {
		if err := repo.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close local storage")
		}
	}
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
