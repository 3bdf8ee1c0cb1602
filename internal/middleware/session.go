package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// SessionHeader carries the session token issued at login
const SessionHeader = "X-Session-Token"

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// SessionTokenKey is the context key for the session token
	SessionTokenKey contextKey = "session_token"
	// SessionUSNKey is the context key for the logged-in identifier
	SessionUSNKey contextKey = "session_usn"
)

// SessionProvider resolves a session token to the identifier it belongs to
type SessionProvider interface {
	SessionUSN(token string) (usn string, ok bool)
}

// SessionMiddleware guards routes that act on the logged-in profile
type SessionMiddleware struct {
	provider SessionProvider
}

// NewSessionMiddleware creates a new SessionMiddleware
func NewSessionMiddleware(provider SessionProvider) *SessionMiddleware {
	return &SessionMiddleware{provider: provider}
}

// RequireSession rejects requests without a live session token
func (m *SessionMiddleware) RequireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := SessionToken(c.Request().Header.Get(SessionHeader))
			if token == "" {
				return unauthorizedError(c, "Login required")
			}

			usn, ok := m.provider.SessionUSN(token)
			if !ok {
				log.Debug().Msg("Request rejected: unknown session token")
				return unauthorizedError(c, "Session expired or unknown, please log in again")
			}

			ctx := context.WithValue(c.Request().Context(), SessionTokenKey, token)
			ctx = context.WithValue(ctx, SessionUSNKey, usn)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// SessionToken normalizes a raw header value. A "Bearer " prefix is accepted.
func SessionToken(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	return raw
}

// GetSessionToken extracts the session token from the context
func GetSessionToken(c echo.Context) string {
	if token, ok := c.Request().Context().Value(SessionTokenKey).(string); ok {
		return token
	}
	return ""
}

// GetSessionUSN extracts the logged-in identifier from the context
func GetSessionUSN(c echo.Context) string {
	if usn, ok := c.Request().Context().Value(SessionUSNKey).(string); ok {
		return usn
	}
	return ""
}
