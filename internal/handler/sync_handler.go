package handler

import (
	"net/http"

	"github.com/dafibh/contribboard/contribboard-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// SyncHandler pushes locally saved profiles to the remote store
type SyncHandler struct {
	syncService *service.SyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// Sync handles POST /sync
func (h *SyncHandler) Sync(c echo.Context) error {
	result, err := h.syncService.Sync(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to read local profiles")
		return NewInternalError(c, "Failed to read local profiles")
	}

	return c.JSON(http.StatusOK, result)
}
