package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dafibh/contribboard/contribboard-backend/internal/domain"
	"github.com/dafibh/contribboard/contribboard-backend/internal/normalize"
	"github.com/dafibh/contribboard/contribboard-backend/internal/repository/fallback"
	"github.com/dafibh/contribboard/contribboard-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// NextModeLogin is the client mode a registration always leads to
const NextModeLogin = "login"

// User-facing outcome messages
const (
	MsgRegistered        = "Registered"
	MsgRegisteredLocally = "Registered locally (permission denied when writing to DB)"
	MsgUpdated           = "Updated"
	MsgUpdatedLocally    = "Updated locally (saved on the server until sync)"
	MsgUpdateDenied      = "Permission denied — changes saved locally."
	MsgRepoAdded         = "Repo added"
	MsgRepoDenied        = "Permission denied — repo saved locally until sync."
	MsgLoggedOut         = "Logged out"
)

const (
	localRepoIDPrefix = "local_"

	// forbiddenKeyCharacters cannot appear in a remote store key
	forbiddenKeyCharacters = ".#$[]/"
	maxIdentifierLength    = 768
)

// RegistrationService handles registration, login, profile edits and
// contribution entry. Writes go to the remote store first and fall back to the
// local store when the remote store denies permission.
type RegistrationService struct {
	remote         domain.RemoteStore
	local          *fallback.Store
	sessions       *SessionStore
	eventPublisher websocket.EventPublisher
	now            func() time.Time
}

// NewRegistrationService creates a new RegistrationService
func NewRegistrationService(remote domain.RemoteStore, local *fallback.Store, sessions *SessionStore) *RegistrationService {
	return &RegistrationService{
		remote:   remote,
		local:    local,
		sessions: sessions,
		now:      time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *RegistrationService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *RegistrationService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(websocket.TopicLeaderboard, event)
	}
}

// RegisterInput holds the registration form
type RegisterInput struct {
	USN      string
	Name     string
	GitHub   string
	Holopin  string
	Phone    string
	Password string
}

// RegisterResult reports where the registration landed
type RegisterResult struct {
	Profile  domain.Profile
	Degraded bool
	Message  string
	// NextMode is always "login"; registering never starts a session
	NextMode string
	// LoginPassword is the chosen password, offered to prefill the next login
	LoginPassword string
}

// LoginResult carries lookup diagnostics alongside a new session
type LoginResult struct {
	Local    bool
	Degraded bool
	Message  string
}

// ModifyResult reports the outcome of a profile edit
type ModifyResult struct {
	Profile  domain.Profile
	Local    bool
	Degraded bool
	Message  string
}

// AddRepositoryResult reports the outcome of adding a contribution
type AddRepositoryResult struct {
	ID         string
	Repository domain.Repository
	Profile    domain.Profile
	Local      bool
	Degraded   bool
	Message    string
}

// location is where a profile was found
type location struct {
	path    string // remote path, empty when local
	local   bool
	profile domain.Profile
}

// lookupReport collects read failures hit while locating a profile
type lookupReport struct {
	denied  error
	readErr error
}

func (r lookupReport) message() string {
	if r.denied != nil {
		return r.denied.Error()
	}
	return ""
}

// Register writes a new profile to its canonical path. A permission denial
// stores it locally instead. Existing profiles under the same identifier are
// overwritten.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	input.USN = strings.TrimSpace(input.USN)

	if err := validateIdentifier(input.USN); err != nil {
		return nil, err
	}
	if isBlank(input.Name) {
		return nil, domain.NewValidationError("name", "name is required")
	}
	if isBlank(input.GitHub) {
		return nil, domain.NewValidationError("github", "github is required")
	}

	profile := domain.Profile{
		USN:       input.USN,
		Name:      input.Name,
		GitHub:    input.GitHub,
		Holopin:   input.Holopin,
		Phone:     input.Phone,
		CreatedAt: s.now().UnixMilli(),
	}
	if input.Password != "" {
		pw := input.Password
		profile.Password = &pw
	}

	result := &RegisterResult{
		Profile:       profile,
		Message:       MsgRegistered,
		NextMode:      NextModeLogin,
		LoginPassword: input.Password,
	}

	err := s.remote.Set(ctx, domain.ProfilePath(input.USN), profile)
	switch {
	case err == nil:
	case domain.IsPermissionDenied(err):
		log.Warn().Err(err).Str("usn", input.USN).Msg("Remote write denied, registering locally")
		if err := s.local.Put(ctx, input.USN, profile); err != nil {
			return nil, fmt.Errorf("saving registration locally: %w", err)
		}
		result.Degraded = true
		result.Message = MsgRegisteredLocally
	default:
		log.Error().Err(err).Str("usn", input.USN).Msg("Failed to register")
		return nil, err
	}

	s.publishEvent(websocket.RegistrantCreated(map[string]interface{}{
		"usn":   input.USN,
		"local": result.Degraded,
	}))

	result.Profile.Repos = map[string]domain.Repository{}
	return result, nil
}

// Login locates the profile for usn and starts a session with it. The password
// is not compared here; it is kept as the session credential for later edits.
func (s *RegistrationService) Login(ctx context.Context, usn, password string) (*Session, *LoginResult, error) {
	usn = strings.TrimSpace(usn)
	if err := validateIdentifier(usn); err != nil {
		return nil, nil, err
	}

	loc, report, err := s.locate(ctx, usn, false, false)
	if err != nil {
		return nil, nil, err
	}
	if loc == nil {
		if report.readErr != nil {
			return nil, nil, report.readErr
		}
		return nil, nil, domain.ErrProfileNotFound
	}

	sess := s.sessions.Create(usn, loc.profile, password)

	log.Info().Str("usn", usn).Bool("local", loc.local).Msg("Session started")

	return sess, &LoginResult{
		Local:    loc.local,
		Degraded: report.denied != nil,
		Message:  report.message(),
	}, nil
}

// Logout ends the session for token
func (s *RegistrationService) Logout(token string) {
	s.sessions.Delete(token)
}

// CurrentProfile returns the profile held by the session for token
func (s *RegistrationService) CurrentProfile(token string) (*Session, error) {
	return s.sessions.Get(token)
}

// Lookup locates a profile the same way Login does without starting a session
func (s *RegistrationService) Lookup(ctx context.Context, usn string) (domain.Profile, *LoginResult, error) {
	usn = strings.TrimSpace(usn)
	if err := validateIdentifier(usn); err != nil {
		return domain.Profile{}, nil, err
	}

	loc, report, err := s.locate(ctx, usn, false, false)
	if err != nil {
		return domain.Profile{}, nil, err
	}
	if loc == nil {
		if report.readErr != nil {
			return domain.Profile{}, nil, report.readErr
		}
		return domain.Profile{}, nil, domain.ErrProfileNotFound
	}
	return loc.profile, &LoginResult{
		Local:    loc.local,
		Degraded: report.denied != nil,
		Message:  report.message(),
	}, nil
}

// Modify merges update into the session's stored profile. A stored password must
// match currentPassword, or the login password when currentPassword is empty.
func (s *RegistrationService) Modify(ctx context.Context, token string, update domain.ProfileUpdate, currentPassword string) (*ModifyResult, error) {
	sess, err := s.sessions.Get(token)
	if err != nil {
		return nil, err
	}
	usn := sess.USN

	loc, report, err := s.locate(ctx, usn, true, true)
	if err != nil {
		return nil, err
	}
	if loc == nil && report.denied == nil {
		return nil, domain.ErrProfileNotFound
	}

	if loc != nil && loc.profile.HasPassword() {
		provided := currentPassword
		if provided == "" {
			provided = sess.Credential
		}
		if provided != *loc.profile.Password {
			log.Warn().Str("usn", usn).Msg("Profile edit rejected: incorrect password")
			return nil, domain.ErrIncorrectPassword
		}
	}

	modifiedAt := s.now().UnixMilli()
	result := &ModifyResult{}

	switch {
	case report.denied != nil && (loc == nil || loc.local):
		if _, err := s.local.Merge(ctx, usn, update, modifiedAt); err != nil {
			return nil, err
		}
		result.Local = true
		result.Degraded = true
		result.Message = MsgUpdateDenied
	case loc.local:
		if _, err := s.local.Merge(ctx, usn, update, modifiedAt); err != nil {
			return nil, err
		}
		result.Local = true
		result.Message = MsgUpdatedLocally
	default:
		err := s.remote.Update(ctx, loc.path, update.Fields(modifiedAt))
		switch {
		case err == nil:
			result.Message = MsgUpdated
		case domain.IsPermissionDenied(err):
			log.Warn().Err(err).Str("usn", usn).Str("path", loc.path).Msg("Remote update denied, saving locally")
			if _, err := s.local.Merge(ctx, usn, update, modifiedAt); err != nil {
				return nil, err
			}
			result.Local = true
			result.Degraded = true
			result.Message = MsgUpdateDenied
		default:
			log.Error().Err(err).Str("usn", usn).Str("path", loc.path).Msg("Failed to update profile")
			return nil, err
		}
	}

	updated, err := s.sessions.UpdateProfile(token, func(p *domain.Profile) {
		update.Apply(p, modifiedAt)
	})
	if err != nil {
		return nil, err
	}
	result.Profile = updated.Profile
	return result, nil
}

// AddRepository appends a contribution to the session's profile. A permission
// denial stores it locally under a local_ id that orders by creation time.
func (s *RegistrationService) AddRepository(ctx context.Context, token, url string) (*AddRepositoryResult, error) {
	sess, err := s.sessions.Get(token)
	if err != nil {
		return nil, err
	}

	url = strings.TrimSpace(url)
	if url == "" {
		return nil, domain.NewValidationError("url", "url is required")
	}

	createdAt := s.now().UnixMilli()
	repo := domain.Repository{
		URL:       url,
		CreatedAt: createdAt,
		AddedBy:   sess.USN,
	}
	result := &AddRepositoryResult{Repository: repo, Message: MsgRepoAdded}

	id, err := s.remote.Push(ctx, domain.ReposPath(sess.USN), repo)
	switch {
	case err == nil:
		result.ID = id
	case domain.IsPermissionDenied(err):
		log.Warn().Err(err).Str("usn", sess.USN).Msg("Remote push denied, saving repo locally")
		id = localRepoID(createdAt)
		if err := s.local.AddRepository(ctx, sess.USN, id, repo); err != nil {
			return nil, err
		}
		result.ID = id
		result.Local = true
		result.Degraded = true
		result.Message = MsgRepoDenied
	default:
		log.Error().Err(err).Str("usn", sess.USN).Msg("Failed to add repo")
		return nil, err
	}

	updated, err := s.sessions.UpdateProfile(token, func(p *domain.Profile) {
		if p.Repos == nil {
			p.Repos = map[string]domain.Repository{}
		}
		p.Repos[id] = repo
	})
	if err != nil {
		return nil, err
	}
	result.Profile = updated.Profile

	s.publishEvent(websocket.RepositoryCreated(map[string]interface{}{
		"usn":   sess.USN,
		"id":    id,
		"url":   url,
		"local": result.Local,
	}))

	return result, nil
}

// locate runs the lookup order: canonical path, legacy nested path, the
// registrants root, then the local store. With scanRoot the root is also
// searched as a flat map by each entry's own usn. With strict a read error ends
// the remote lookup: a permission denial moves on to the local store and any
// other error is returned. Without strict every remote path is tried.
func (s *RegistrationService) locate(ctx context.Context, usn string, scanRoot, strict bool) (*location, lookupReport, error) {
	var report lookupReport

	candidates := []struct {
		path  string
		match func(raw any) (string, domain.Profile, bool)
	}{
		{domain.ProfilePath(usn), func(raw any) (string, domain.Profile, bool) {
			return domain.ProfilePath(usn), normalize.Profile(raw), true
		}},
		{domain.LegacyProfilePath(usn), func(raw any) (string, domain.Profile, bool) {
			return domain.LegacyProfilePath(usn), normalize.Profile(raw), true
		}},
		{domain.RegistersPath, func(raw any) (string, domain.Profile, bool) {
			if scanRoot {
				key, p, ok := normalize.FindByUSN(raw, usn)
				if !ok {
					return "", p, false
				}
				if key == "" {
					return domain.RegistersPath, p, true
				}
				return domain.ProfilePath(key), p, true
			}
			p, ok := normalize.RootProfile(raw, usn)
			return domain.RegistersPath, p, ok
		}},
	}

	for _, c := range candidates {
		snap, err := s.remote.Get(ctx, c.path)
		if err != nil {
			log.Warn().Err(err).Str("usn", usn).Str("path", c.path).Msg("Read failed during profile lookup")
			if domain.IsPermissionDenied(err) {
				report.denied = err
			} else {
				report.readErr = err
			}
			if !strict {
				continue
			}
			if report.readErr != nil {
				return nil, report, report.readErr
			}
			break
		}
		if !snap.Exists {
			continue
		}
		if path, p, ok := c.match(snap.Value); ok {
			return &location{path: path, profile: p}, report, nil
		}
	}

	p, ok, err := s.local.Get(ctx, usn)
	if err != nil {
		return nil, report, err
	}
	if ok {
		return &location{local: true, profile: p}, report, nil
	}
	return nil, report, nil
}

// localRepoID builds a fallback repository id. The random suffix keeps two
// repos added in the same millisecond apart.
func localRepoID(createdAt int64) string {
	return fmt.Sprintf("%s%d-%s", localRepoIDPrefix, createdAt, uuid.NewString()[:8])
}

// isBlank reports whether a required field has no content. Fields are stored
// exactly as entered; only the usn is trimmed because it names a path.
func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// validateIdentifier checks usn can address a path segment in the remote store
func validateIdentifier(usn string) error {
	if usn == "" {
		return domain.NewValidationError("usn", "usn is required")
	}
	if strings.ContainsAny(usn, forbiddenKeyCharacters) {
		return domain.NewValidationError("usn", fmt.Sprintf("usn must not contain any of %q", forbiddenKeyCharacters))
	}
	if len(usn) > maxIdentifierLength {
		return domain.NewValidationError("usn", fmt.Sprintf("usn must be at most %d bytes", maxIdentifierLength))
	}
	return nil
}
