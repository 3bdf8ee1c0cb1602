package handler

import (
	"errors"
	"net/http"

	"github.com/dafibh/contribboard/contribboard-backend/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type             string            `json:"type"`
	Title            string            `json:"title"`
	Status           int               `json:"status"`
	Detail           string            `json:"detail,omitempty"`
	Instance         string            `json:"instance,omitempty"`
	Errors           []ValidationError `json:"errors,omitempty"`
	PermissionDenied bool              `json:"permissionDenied,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation         = "https://contribboard.app/errors/validation"
	ErrorTypeNotFound           = "https://contribboard.app/errors/not-found"
	ErrorTypeUnauthorized       = "https://contribboard.app/errors/unauthorized"
	ErrorTypeForbidden          = "https://contribboard.app/errors/forbidden"
	ErrorTypeServiceUnavailable = "https://contribboard.app/errors/service-unavailable"
	ErrorTypeBadGateway         = "https://contribboard.app/errors/bad-gateway"
	ErrorTypeInternal           = "https://contribboard.app/errors/internal"
)

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return c.JSON(http.StatusBadRequest, ProblemDetails{
		Type:     ErrorTypeValidation,
		Title:    "Validation Error",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errors,
	})
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return c.JSON(http.StatusNotFound, ProblemDetails{
		Type:     ErrorTypeNotFound,
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnauthorized, ProblemDetails{
		Type:     ErrorTypeUnauthorized,
		Title:    "Unauthorized",
		Status:   http.StatusUnauthorized,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewForbiddenError creates a forbidden error response
func NewForbiddenError(c echo.Context, detail string) error {
	return c.JSON(http.StatusForbidden, ProblemDetails{
		Type:     ErrorTypeForbidden,
		Title:    "Forbidden",
		Status:   http.StatusForbidden,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewServiceUnavailableError reports that the remote store refused a read
func NewServiceUnavailableError(c echo.Context, detail string) error {
	return c.JSON(http.StatusServiceUnavailable, ProblemDetails{
		Type:             ErrorTypeServiceUnavailable,
		Title:            "Service Unavailable",
		Status:           http.StatusServiceUnavailable,
		Detail:           detail,
		Instance:         c.Request().URL.Path,
		PermissionDenied: true,
	})
}

// NewBadGatewayError reports a remote store failure with its raw message
func NewBadGatewayError(c echo.Context, detail string) error {
	return c.JSON(http.StatusBadGateway, ProblemDetails{
		Type:     ErrorTypeBadGateway,
		Title:    "Bad Gateway",
		Status:   http.StatusBadGateway,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return c.JSON(http.StatusInternalServerError, ProblemDetails{
		Type:     ErrorTypeInternal,
		Title:    "Internal Server Error",
		Status:   http.StatusInternalServerError,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// writeServiceError maps a service error onto its problem response
func writeServiceError(c echo.Context, err error, action string) error {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: vErr.Field, Message: vErr.Message},
		})
	case errors.Is(err, domain.ErrValidation):
		return NewValidationError(c, err.Error(), nil)
	case errors.Is(err, domain.ErrNoSession):
		return NewUnauthorizedError(c, "Login first")
	case errors.Is(err, domain.ErrProfileNotFound):
		return NewNotFoundError(c, "Profile not found")
	case errors.Is(err, domain.ErrIncorrectPassword):
		return NewForbiddenError(c, "Incorrect password.")
	case domain.IsPermissionDenied(err):
		return NewServiceUnavailableError(c, err.Error())
	default:
		log.Error().Err(err).Str("path", c.Request().URL.Path).Msg(action)
		return NewBadGatewayError(c, err.Error())
	}
}
