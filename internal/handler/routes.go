package handler

import (
	"github.com/dafibh/contribboard/contribboard-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// Handlers groups the API handlers
type Handlers struct {
	Intro        *IntroHandler
	Registration *RegistrationHandler
	Leaderboard  *LeaderboardHandler
	Sync         *SyncHandler
	WebSocket    *WebSocketHandler
}

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, sessionMiddleware *middleware.SessionMiddleware, rateLimiter *middleware.RateLimiter, h Handlers) {
	// WebSocket leaderboard feed
	e.GET("/ws", h.WebSocket.HandleWS)

	// API version 1
	api := e.Group("/api/v1")

	api.GET("/intro", h.Intro.GetIntro)

	// Registration and login (rate limited per client IP)
	limited := middleware.RateLimitMiddleware(rateLimiter)
	api.POST("/registrations", h.Registration.Register, limited)
	api.POST("/sessions", h.Registration.Login, limited)
	api.DELETE("/sessions", h.Registration.Logout)

	// Session routes (protected)
	session := api.Group("/session")
	session.Use(sessionMiddleware.RequireSession())
	session.GET("/profile", h.Registration.GetProfile)
	session.PATCH("/profile", h.Registration.UpdateProfile)
	session.POST("/repos", h.Registration.AddRepository)

	api.GET("/registrants/:usn", h.Registration.GetRegistrant)

	// Leaderboard routes
	leaderboard := api.Group("/leaderboard")
	leaderboard.GET("", h.Leaderboard.GetLeaderboard)
	leaderboard.POST("/reload", h.Leaderboard.Reload)

	api.POST("/sync", h.Sync.Sync)
}
