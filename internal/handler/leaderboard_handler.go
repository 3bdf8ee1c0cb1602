package handler

import (
	"net/http"

	"github.com/dafibh/contribboard/contribboard-backend/internal/domain"
	"github.com/dafibh/contribboard/contribboard-backend/internal/service"
	"github.com/labstack/echo/v4"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatText selects the plain-text leaderboard rendering
const FormatText = "text"

// displayLanguages are the locales totals are formatted for
var displayLanguages = language.NewMatcher([]language.Tag{
	language.English,
	language.German,
	language.French,
	language.Spanish,
})

// LeaderboardProvider exposes the live leaderboard
type LeaderboardProvider interface {
	Board() domain.Board
	Reload()
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	leaderboard LeaderboardProvider
}

// NewLeaderboardHandler creates a new LeaderboardHandler
func NewLeaderboardHandler(leaderboard LeaderboardProvider) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// GetLeaderboard handles GET /leaderboard
// Query: format=text renders a plain-text table instead of JSON
func (h *LeaderboardHandler) GetLeaderboard(c echo.Context) error {
	board := h.leaderboard.Board()

	if c.QueryParam("format") == FormatText {
		status := http.StatusOK
		switch {
		case board.PermissionDenied:
			status = http.StatusServiceUnavailable
		case board.Error != "":
			status = http.StatusBadGateway
		}
		return c.String(status, service.RenderText(board, printerFor(c)))
	}

	switch {
	case board.PermissionDenied:
		return NewServiceUnavailableError(c, board.Error)
	case board.Error != "":
		return NewBadGatewayError(c, board.Error)
	}

	return c.JSON(http.StatusOK, board)
}

// Reload handles POST /leaderboard/reload
func (h *LeaderboardHandler) Reload(c echo.Context) error {
	h.leaderboard.Reload()
	return c.JSON(http.StatusAccepted, h.leaderboard.Board())
}

// printerFor picks a number format from the Accept-Language header
func printerFor(c echo.Context) *message.Printer {
	tag, _ := language.MatchStrings(displayLanguages, c.Request().Header.Get("Accept-Language"))
	return message.NewPrinter(tag)
}
