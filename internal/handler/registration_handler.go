package handler

import (
	"net/http"

	"github.com/dafibh/contribboard/contribboard-backend/internal/domain"
	"github.com/dafibh/contribboard/contribboard-backend/internal/middleware"
	"github.com/dafibh/contribboard/contribboard-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// RegistrationHandler handles registration, sessions and profile edits
type RegistrationHandler struct {
	registrationService *service.RegistrationService
}

// NewRegistrationHandler creates a new RegistrationHandler
func NewRegistrationHandler(registrationService *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registrationService}
}

// RegisterRequest represents the registration form
type RegisterRequest struct {
	USN      string `json:"usn"`
	Name     string `json:"name"`
	GitHub   string `json:"github"`
	Holopin  string `json:"holopin"`
	Phone    string `json:"phno"`
	Password string `json:"password"`
}

// RegisterResponse represents the registration outcome
type RegisterResponse struct {
	Profile       ProfileResponse `json:"profile"`
	Degraded      bool            `json:"degraded"`
	Message       string          `json:"message"`
	NextMode      string          `json:"nextMode"`
	LoginPassword string          `json:"loginPassword,omitempty"`
}

// LoginRequest represents the login form
type LoginRequest struct {
	USN      string `json:"usn"`
	Password string `json:"password"`
}

// LoginResponse carries the new session token and profile
type LoginResponse struct {
	Token    string          `json:"token"`
	Profile  ProfileResponse `json:"profile"`
	Local    bool            `json:"local"`
	Degraded bool            `json:"degraded"`
	Message  string          `json:"message,omitempty"`
}

// UpdateProfileRequest represents the profile edit form. Omitted fields are
// left unchanged.
type UpdateProfileRequest struct {
	Name            *string `json:"name"`
	GitHub          *string `json:"github"`
	Holopin         *string `json:"holopin"`
	Phone           *string `json:"phno"`
	CurrentPassword string  `json:"currentPassword"`
}

// UpdateProfileResponse represents the profile edit outcome
type UpdateProfileResponse struct {
	Profile  ProfileResponse `json:"profile"`
	Local    bool            `json:"local"`
	Degraded bool            `json:"degraded"`
	Message  string          `json:"message"`
}

// AddRepositoryRequest represents the contribution form
type AddRepositoryRequest struct {
	URL string `json:"url"`
}

// AddRepositoryResponse represents the contribution outcome
type AddRepositoryResponse struct {
	ID         string             `json:"id"`
	Repository RepositoryResponse `json:"repository"`
	Profile    ProfileResponse    `json:"profile"`
	Local      bool               `json:"local"`
	Degraded   bool               `json:"degraded"`
	Message    string             `json:"message"`
}

// RepositoryResponse represents one contribution
type RepositoryResponse struct {
	URL       string `json:"url"`
	CreatedAt int64  `json:"createdAt,omitempty"`
	AddedBy   string `json:"addedBy,omitempty"`
}

// ProfileResponse represents a profile as shown to clients. The password is
// never returned.
type ProfileResponse struct {
	USN           string                        `json:"usn"`
	Name          string                        `json:"name"`
	GitHub        string                        `json:"github"`
	Holopin       string                        `json:"holopin"`
	Phone         string                        `json:"phno"`
	HasPassword   bool                          `json:"hasPassword"`
	CreatedAt     int64                         `json:"createdAt,omitempty"`
	ModifiedAt    int64                         `json:"modifiedAt,omitempty"`
	Contributions int                           `json:"contributions"`
	Repos         map[string]RepositoryResponse `json:"repos"`
}

// LookupResponse represents a registrant lookup
type LookupResponse struct {
	Profile  ProfileResponse `json:"profile"`
	Local    bool            `json:"local"`
	Degraded bool            `json:"degraded"`
	Message  string          `json:"message,omitempty"`
}

// Register handles POST /registrations
func (h *RegistrationHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	result, err := h.registrationService.Register(c.Request().Context(), service.RegisterInput{
		USN:      req.USN,
		Name:     req.Name,
		GitHub:   req.GitHub,
		Holopin:  req.Holopin,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return writeServiceError(c, err, "Failed to register")
	}

	log.Info().Str("usn", result.Profile.USN).Bool("degraded", result.Degraded).Msg("Registrant created")

	return c.JSON(http.StatusCreated, RegisterResponse{
		Profile:       toProfileResponse(result.Profile),
		Degraded:      result.Degraded,
		Message:       result.Message,
		NextMode:      result.NextMode,
		LoginPassword: result.LoginPassword,
	})
}

// Login handles POST /sessions
func (h *RegistrationHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	sess, result, err := h.registrationService.Login(c.Request().Context(), req.USN, req.Password)
	if err != nil {
		return writeServiceError(c, err, "Failed to log in")
	}

	return c.JSON(http.StatusCreated, LoginResponse{
		Token:    sess.ID,
		Profile:  toProfileResponse(sess.Profile),
		Local:    result.Local,
		Degraded: result.Degraded,
		Message:  result.Message,
	})
}

// Logout handles DELETE /sessions
func (h *RegistrationHandler) Logout(c echo.Context) error {
	token := middleware.SessionToken(c.Request().Header.Get(middleware.SessionHeader))
	if token != "" {
		h.registrationService.Logout(token)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": service.MsgLoggedOut})
}

// GetProfile handles GET /session/profile
func (h *RegistrationHandler) GetProfile(c echo.Context) error {
	sess, err := h.registrationService.CurrentProfile(middleware.GetSessionToken(c))
	if err != nil {
		return writeServiceError(c, err, "Failed to get profile")
	}
	return c.JSON(http.StatusOK, toProfileResponse(sess.Profile))
}

// UpdateProfile handles PATCH /session/profile
func (h *RegistrationHandler) UpdateProfile(c echo.Context) error {
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	update := domain.ProfileUpdate{
		Name:    req.Name,
		GitHub:  req.GitHub,
		Holopin: req.Holopin,
		Phone:   req.Phone,
	}

	result, err := h.registrationService.Modify(c.Request().Context(), middleware.GetSessionToken(c), update, req.CurrentPassword)
	if err != nil {
		return writeServiceError(c, err, "Failed to update profile")
	}

	log.Info().
		Str("usn", middleware.GetSessionUSN(c)).
		Bool("local", result.Local).
		Bool("degraded", result.Degraded).
		Msg("Profile updated")

	return c.JSON(http.StatusOK, UpdateProfileResponse{
		Profile:  toProfileResponse(result.Profile),
		Local:    result.Local,
		Degraded: result.Degraded,
		Message:  result.Message,
	})
}

// AddRepository handles POST /session/repos
func (h *RegistrationHandler) AddRepository(c echo.Context) error {
	var req AddRepositoryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	result, err := h.registrationService.AddRepository(c.Request().Context(), middleware.GetSessionToken(c), req.URL)
	if err != nil {
		return writeServiceError(c, err, "Failed to add repo")
	}

	return c.JSON(http.StatusCreated, AddRepositoryResponse{
		ID:         result.ID,
		Repository: toRepositoryResponse(result.Repository),
		Profile:    toProfileResponse(result.Profile),
		Local:      result.Local,
		Degraded:   result.Degraded,
		Message:    result.Message,
	})
}

// GetRegistrant handles GET /registrants/:usn
func (h *RegistrationHandler) GetRegistrant(c echo.Context) error {
	profile, result, err := h.registrationService.Lookup(c.Request().Context(), c.Param("usn"))
	if err != nil {
		return writeServiceError(c, err, "Failed to look up registrant")
	}

	return c.JSON(http.StatusOK, LookupResponse{
		Profile:  toProfileResponse(profile),
		Local:    result.Local,
		Degraded: result.Degraded,
		Message:  result.Message,
	})
}

func toProfileResponse(p domain.Profile) ProfileResponse {
	repos := make(map[string]RepositoryResponse, len(p.Repos))
	for id, r := range p.Repos {
		repos[id] = toRepositoryResponse(r)
	}
	return ProfileResponse{
		USN:           p.USN,
		Name:          p.Name,
		GitHub:        p.GitHub,
		Holopin:       p.Holopin,
		Phone:         p.Phone,
		HasPassword:   p.HasPassword(),
		CreatedAt:     p.CreatedAt,
		ModifiedAt:    p.ModifiedAt,
		Contributions: p.ContributionCount(),
		Repos:         repos,
	}
}

func toRepositoryResponse(r domain.Repository) RepositoryResponse {
	return RepositoryResponse{
		URL:       r.URL,
		CreatedAt: r.CreatedAt,
		AddedBy:   r.AddedBy,
	}
}
