package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dafibh/contribboard/contribboard-backend/internal/domain"
	"github.com/dafibh/contribboard/contribboard-backend/internal/repository/fallback"
	"github.com/dafibh/contribboard/contribboard-backend/internal/testutil"
	"github.com/dafibh/contribboard/contribboard-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.UnixMilli(1700000000000)

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []websocket.Event
}

func (p *recordingPublisher) Publish(topic string, event websocket.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type registrationFixture struct {
	svc       *RegistrationService
	remote    *testutil.MockRemoteStore
	storage   *testutil.MockLocalStorage
	local     *fallback.Store
	sessions  *SessionStore
	publisher *recordingPublisher
}

func newRegistrationFixture() *registrationFixture {
	remote := testutil.NewMockRemoteStore()
	storage := testutil.NewMockLocalStorage()
	local := fallback.NewStore(storage)
	sessions := NewSessionStore()
	publisher := &recordingPublisher{}

	svc := NewRegistrationService(remote, local, sessions)
	svc.SetEventPublisher(publisher)
	svc.now = func() time.Time { return fixedNow }

	return &registrationFixture{
		svc:       svc,
		remote:    remote,
		storage:   storage,
		local:     local,
		sessions:  sessions,
		publisher: publisher,
	}
}

func (f *registrationFixture) login(t *testing.T, usn, password string) *Session {
	t.Helper()
	sess, _, err := f.svc.Login(context.Background(), usn, password)
	require.NoError(t, err)
	return sess
}

func strPtr(s string) *string { return &s }

func TestRegister_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input RegisterInput
		field string
	}{
		{"missing usn", RegisterInput{Name: "Asha", GitHub: "ashadev"}, "usn"},
		{"blank usn", RegisterInput{USN: "   ", Name: "Asha", GitHub: "ashadev"}, "usn"},
		{"missing name", RegisterInput{USN: "1AB20CS001", GitHub: "ashadev"}, "name"},
		{"missing github", RegisterInput{USN: "1AB20CS001", Name: "Asha"}, "github"},
		{"whitespace name", RegisterInput{USN: "1AB20CS001", Name: " \t ", GitHub: "ashadev"}, "name"},
		{"whitespace github", RegisterInput{USN: "1AB20CS001", Name: "Asha", GitHub: "  "}, "github"},
		{"path separator in usn", RegisterInput{USN: "a/b", Name: "Asha", GitHub: "ashadev"}, "usn"},
		{"forbidden key character", RegisterInput{USN: "a.b", Name: "Asha", GitHub: "ashadev"}, "usn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRegistrationFixture()

			result, err := f.svc.Register(context.Background(), tt.input)

			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, domain.ErrValidation))

			var vErr *domain.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)

			assert.Empty(t, f.remote.Calls(), "validation must happen before any I/O")
			assert.Empty(t, f.storage.Items)
		})
	}
}

func TestRegister_StoresFieldsAsEntered(t *testing.T) {
	f := newRegistrationFixture()

	result, err := f.svc.Register(context.Background(), RegisterInput{
		USN:     "  1AB20CS001 ",
		Name:    " Asha Rao ",
		GitHub:  "ashadev ",
		Holopin: " ",
	})
	require.NoError(t, err)

	assert.Equal(t, "1AB20CS001", result.Profile.USN)
	stored, ok := f.remote.Value("registers/1AB20CS001")
	require.True(t, ok, "usn is trimmed before it becomes a path")
	profile := stored.(map[string]any)
	assert.Equal(t, " Asha Rao ", profile["name"])
	assert.Equal(t, "ashadev ", profile["github"])
	assert.Equal(t, " ", profile["holopin"])
}

func TestRegister_WritesCanonicalPath(t *testing.T) {
	f := newRegistrationFixture()

	result, err := f.svc.Register(context.Background(), RegisterInput{
		USN:      "1AB20CS001",
		Name:     "Asha",
		GitHub:   "ashadev",
		Holopin:  "asha-badges",
		Phone:    "9999999999",
		Password: "secret",
	})
	require.NoError(t, err)

	assert.False(t, result.Degraded)
	assert.Equal(t, MsgRegistered, result.Message)
	assert.Equal(t, NextModeLogin, result.NextMode)
	assert.Equal(t, "secret", result.LoginPassword)

	stored, ok := f.remote.Value("registers/1AB20CS001")
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"usn":       "1AB20CS001",
		"name":      "Asha",
		"github":    "ashadev",
		"holopin":   "asha-badges",
		"phno":      "9999999999",
		"password":  "secret",
		"createdAt": float64(fixedNow.UnixMilli()),
	}, stored)

	assert.Equal(t, 0, f.sessions.Count(), "registration never starts a session")
	assert.Equal(t, []string{"registrant.created"}, f.publisher.types())
}

func TestRegister_OmitsEmptyPassword(t *testing.T) {
	f := newRegistrationFixture()

	result, err := f.svc.Register(context.Background(), RegisterInput{USN: "u1", Name: "A", GitHub: "a"})
	require.NoError(t, err)
	assert.Empty(t, result.LoginPassword)

	stored, ok := f.remote.Value("registers/u1")
	require.True(t, ok)
	assert.NotContains(t, stored.(map[string]any), "password")
}

func TestRegister_OverwritesExistingIdentifier(t *testing.T) {
	f := newRegistrationFixture()
	f.remote.Seed("registers/u1", map[string]any{"name": "Old", "repos": map[string]any{"r1": map[string]any{"url": "x"}}})

	_, err := f.svc.Register(context.Background(), RegisterInput{USN: "u1", Name: "New", GitHub: "new"})
	require.NoError(t, err)

	stored, _ := f.remote.Value("registers/u1")
	assert.Equal(t, "New", stored.(map[string]any)["name"])
	assert.NotContains(t, stored.(map[string]any), "repos")
}

func TestRegister_PermissionDeniedSavesLocally(t *testing.T) {
	f := newRegistrationFixture()
	f.remote.DenyWrites = true

	result, err := f.svc.Register(context.Background(), RegisterInput{
		USN:    "1AB20CS001",
		Name:   "Asha",
		GitHub: "ashadev",
	})
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.Equal(t, MsgRegisteredLocally, result.Message)
	assert.Equal(t, NextModeLogin, result.NextMode)

	assert.Contains(t, f.storage.Items, fallback.StorageKey)
	local, ok, err := f.local.Get(context.Background(), "1AB20CS001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Asha", local.Name)
	assert.Equal(t, "ashadev", local.GitHub)
	assert.Equal(t, "1AB20CS001", local.USN)
	assert.Equal(t, fixedNow.UnixMilli(), local.CreatedAt)

	_, exists := f.remote.Value("registers/1AB20CS001")
	assert.False(t, exists)
	assert.Equal(t, 0, f.sessions.Count())
}

func TestRegister_GenericErrorIsSurfaced(t *testing.T) {
	f := newRegistrationFixture()
	boom := errors.New("network unreachable")
	f.remote.FailPaths["registers/u1"] = boom

	result, err := f.svc.Register(context.Background(), RegisterInput{USN: "u1", Name: "A", GitHub: "a"})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.storage.Items, "only permission denial falls back locally")
	assert.Empty(t, f.publisher.types())
}

func TestLogin_LookupOrder(t *testing.T) {
	tests := []struct {
		name  string
		seed  func(r *testutil.MockRemoteStore)
		usn   string
		found string
	}{
		{
			name: "canonical path",
			seed: func(r *testutil.MockRemoteStore) {
				r.Seed("registers/u1", map[string]any{"usn": "u1", "name": "Canonical"})
			},
			usn:   "u1",
			found: "Canonical",
		},
		{
			name: "legacy nested path",
			seed: func(r *testutil.MockRemoteStore) {
				r.Seed("registers/user/u1", map[string]any{"usn": "u1", "name": "Nested"})
			},
			usn:   "u1",
			found: "Nested",
		},
		{
			name: "root single profile with matching usn",
			seed: func(r *testutil.MockRemoteStore) {
				r.Seed("registers", map[string]any{"usn": "solo", "name": "Solo"})
			},
			usn:   "solo",
			found: "Solo",
		},
		{
			name: "canonical wins over legacy",
			seed: func(r *testutil.MockRemoteStore) {
				r.Seed("registers/u1", map[string]any{"name": "Canonical"})
				r.Seed("registers/user/u1", map[string]any{"name": "Nested"})
			},
			usn:   "u1",
			found: "Canonical",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRegistrationFixture()
			tt.seed(f.remote)

			sess, result, err := f.svc.Login(context.Background(), tt.usn, "")
			require.NoError(t, err)

			assert.Equal(t, tt.found, sess.Profile.Name)
			assert.Equal(t, tt.usn, sess.USN)
			assert.NotNil(t, sess.Profile.Repos)
			assert.False(t, result.Local)
			assert.Equal(t, 1, f.sessions.Count())
		})
	}
}

func TestLogin_RootProfileWithOtherUSNIsNotAMatch(t *testing.T) {
	f := newRegistrationFixture()
	f.remote.Seed("registers", map[string]any{"usn": "solo", "name": "Solo"})

	sess, _, err := f.svc.Login(context.Background(), "someone-else", "")

	assert.Nil(t, sess)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	assert.Equal(t, 0, f.sessions.Count())
}

func TestLogin_NormalizesLegacyRepoKey(t *testing.T) {
	f := newRegistrationFixture()
	f.remote.Seed("registers/u1", map[string]any{
		"name": "Legacy",
		"repo": map[string]any{"r1": map[string]any{"url": "https://x"}},
	})

	sess := f.login(t, "u1", "")

	require.Len(t, sess.Profile.Repos, 1)
	assert.Equal(t, "https://x", sess.Profile.Repos["r1"].URL)
}

func TestLogin_FallsBackToLocalStore(t *testing.T) {
	f := newRegistrationFixture()
	require.NoError(t, f.local.Put(context.Background(), "u1", domain.Profile{USN: "u1", Name: "Local"}))

	sess, result, err := f.svc.Login(context.Background(), "u1", "pw")
	require.NoError(t, err)

	assert.Equal(t, "Local", sess.Profile.Name)
	assert.Equal(t, "pw", sess.Credential)
	assert.True(t, result.Local)
	assert.False(t, result.Degraded)
}

func TestLogin_PermissionDeniedReadsStillTryLocal(t *testing.T) {
	f := newRegistrationFixture()
	f.remote.DenyReads = true
	require.NoError(t, f.local.Put(context.Background(), "u1", domain.Profile{USN: "u1", Name: "Local"}))

	sess, result, err := f.svc.Login(context.Background(), "u1", "")
	require.NoError(t, err)

	assert.Equal(t, "Local", sess.Profile.Name)
	assert.True(t, result.Local)
	assert.True(t, result.Degraded)
	assert.NotEmpty(t, result.Message)

	// every remote path is attempted before the local store
	assert.Equal(t, []string{
		"GET registers/u1",
		"GET registers/user/u1",
		"GET registers",
	}, f.remote.Calls())
}

func TestLogin_DoesNotVerifyPassword(t *testing.T) {
	f := newRegistrationFixture()
	f.remote.Seed("registers/u1", map[string]any{"name": "Guarded", "password": "secret"})

	sess, _, err := f.svc.Login(context.Background(), "u1", "not-the-password")

	require.NoError(t, err)
	assert.Equal(t, "Guarded", sess.Profile.Name)
	assert.Equal(t, "not-the-password", sess.Credential)
}

func TestLogin_NotFound(t *testing.T) {
	f := newRegistrationFixture()

	sess, result, err := f.svc.Login(context.Background(), "ghost", "")

	assert.Nil(t, sess)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	assert.Equal(t, 0, f.sessions.Count())
}

func TestLogin_GenericReadErrorWithoutMatchIsSurfaced(t *testing.T) {
	f := newRegistrationFixture()
	boom := errors.New("connection reset")
	f.remote.FailPaths["registers/u1"] = boom

	_, _, err := f.svc.Login(context.Background(), "u1", "")

	assert.ErrorIs(t, err, boom)
}

func TestLogin_GenericReadErrorDoesNotHideLaterMatch(t *testing.T) {
	f := newRegistrationFixture()
	f.remote.FailPaths["registers/u1"] = errors.New("connection reset")
	f.remote.Seed("registers/user/u1", map[string]any{"name": "Nested"})

	sess, _, err := f.svc.Login(context.Background(), "u1", "")

	require.NoError(t, err)
	assert.Equal(t, "Nested", sess.Profile.Name)
}

func TestLookup_DoesNotCreateSession(t *testing.T) {
	f := newRegistrationFixture()
	f.remote.Seed("registers/u1", map[string]any{"name": "Asha"})

	profile, _, err := f.svc.Lookup(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, "Asha", profile.Name)
	assert.Equal(t, 0, f.sessions.Count())
}

func TestLogoutAndCurrentProfile(t *testing.T) {
	f := newRegistrationFixture()
	f.remote.Seed("registers/u1", map[string]any{"name": "Asha"})
	sess := f.login(t, "u1", "")

	current, err := f.svc.CurrentProfile(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", current.Profile.Name)

	f.svc.Logout(sess.ID)

	_, err = f.svc.CurrentProfile(sess.ID)
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestModify_RequiresSession(t *testing.T) {
	f := newRegistrationFixture()

	result, err := f.svc.Modify(context.Background(), "missing", domain.ProfileUpdate{Name: strPtr("X")}, "")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrNoSession)
	assert.Empty(t, f.remote.Calls())
}

func TestModify_UpdatesRemoteWithPartialMerge(t *testing.T) {
	f := newRegistrationFixture()
	f.remote.Seed("registers/u1", map[string]any{
		"usn":    "u1",
		"name":   "Asha",
		"github": "ashadev",
		"repos":  map[string]any{"r1": map[string]any{"url": "https://x"}},
	})
	sess := f.login(t, "u1", "")

	result, err := f.svc.Modify(context.Background(), sess.ID, domain.ProfileUpdate{Name: strPtr("Asha K")}, "")
	require.NoError(t, err)

	assert.Equal(t, MsgUpdated, result.Message)
	assert.False(t, result.Local)
	assert.False(t, result.Degraded)

	stored, _ := f.remote.Value("registers/u1")
	obj := stored.(map[string]any)
	assert.Equal(t, "Asha K", obj["name"])
	assert.Equal(t, "ashadev", obj["github"], "untouched fields survive a partial update")
	assert.Equal(t, float64(fixedNow.UnixMilli()), obj["modifiedAt"])
	assert.Contains(t, obj, "repos")

	assert.Equal(t, "Asha K", result.Profile.Name)
	assert.Equal(t, fixedNow.UnixMilli(), result.Profile.ModifiedAt)

	current, err := f.svc.CurrentProfile(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha K", current.Profile.Name)
	assert.Len(t, current.Profile.Repos, 1)
}

func TestModify_IncorrectPasswordLeavesRecordUnchanged(t *testing.T) {
	f := newRegistrationFixture()
	f.remote.Seed("registers/u1", map[string]any{"name": "Asha", "password": "secret"})
	sess := f.login(t, "u1", "also-wrong")
	before, _ := f.remote.Value("registers/u1")

	result, err := f.svc.Modify(context.Background(), sess.ID, domain.ProfileUpdate{Name: strPtr("Mallory")}, "wrong")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrIncorrectPassword)
	assert.Equal(t, "incorrect password", err.Error())

	after, _ := f.remote.Value("registers/u1")
	assert.Equal(t, before, after)
	assert.NotContains(t, f.remote.Calls(), "UPDATE registers/u1")

	current, _ := f.svc.CurrentProfile(sess.ID)
	assert.Equal(t, "Asha", current.Profile.Name)
}

func TestModify_PasswordRules(t *testing.T) {
	tests := []struct {
		name       string
		stored     any
		credential string
		supplied   string
		wantErr    error
	}{
		{"no stored password allows anyone", nil, "", "", nil},
		{"empty stored password allows anyone", "", "", "whatever", nil},
		{"supplied password matches", "secret", "", "secret", nil},
		{"falls back to login password", "secret", "secret", "", nil},
		{"supplied password takes precedence over login password", "secret", "secret", "wrong", domain.ErrIncorrectPassword},
		{"no password supplied at all", "secret", "", "", domain.ErrIncorrectPassword},
		{"comparison is exact", "secret", "", "Secret", domain.ErrIncorrectPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRegistrationFixture()
			record := map[string]any{"name": "Asha"}
			if tt.stored != nil {
				record["password"] = tt.stored
			}
			f.remote.Seed("registers/u1", record)
			sess := f.login(t, "u1", tt.credential)

			_, err := f.svc.Modify(context.Background(), sess.ID, domain.ProfileUpdate{Name: strPtr("New")}, tt.supplied)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestModify_FindsProfileInFlatMapByOwnUSN(t *testing.T) {
	f := newRegistrationFixture()
	f.remote.Seed("registers", map[string]any{
		"k1": map[string]any{"usn": "u1", "name": "Keyed Differently"},
		"k2": map[string]any{"usn": "u2", "name": "Other"},
	})
	sess := f.sessions.Create("u1", domain.Profile{USN: "u1"}, "")

	result, err := f.svc.Modify(context.Background(), sess.ID, domain.ProfileUpdate{GitHub: strPtr("newgh")}, "")
	require.NoError(t, err)
	assert.Equal(t, MsgUpdated, result.Message)

	stored, _ := f.remote.Value("registers/k1")
	assert.Equal(t, "newgh", stored.(map[string]any)["github"])
	assert.Contains(t, f.remote.Calls(), "UPDATE registers/k1")
}

func TestModify_RootSingleProfile(t *testing.T) {
	f := newRegistrationFixture()
	f.remote.Seed("registers", map[string]any{"usn": "solo", "name": "Solo"})
	sess := f.login(t, "solo", "")

	_, err := f.svc.Modify(context.Background(), sess.ID, domain.ProfileUpdate{Holopin: strPtr("h")}, "")
	require.NoError(t, err)

	stored, _ := f.remote.Value("registers")
	assert.Equal(t, "h", stored.(map[string]any)["holopin"])
}

func TestModify_LocalRecord(t *testing.T) {
	f := newRegistrationFixture()
	require.NoError(t, f.local.Put(context.Background(), "u1", domain.Profile{USN: "u1", Name: "Local", GitHub: "lg"}))
	sess := f.login(t, "u1", "")

	result, err := f.svc.Modify(context.Background(), sess.ID, domain.ProfileUpdate{Name: strPtr("Local Edited")}, "")
	require.NoError(t, err)

	assert.Equal(t, MsgUpdatedLocally, result.Message)
	assert.True(t, result.Local)
	assert.False(t, result.Degraded)

	local, _, err := f.local.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Local Edited", local.Name)
	assert.Equal(t, "lg", local.GitHub)
	assert.Equal(t, fixedNow.UnixMilli(), local.ModifiedAt)

	for _, call := range f.remote.Calls() {
		assert.NotContains(t, call, "UPDATE")
	}
}

func TestModify_LocalRecordStillChecksPassword(t *testing.T) {
	f := newRegistrationFixture()
	pw := "secret"
	require.NoError(t, f.local.Put(context.Background(), "u1", domain.Profile{USN: "u1", Password: &pw}))
	sess := f.login(t, "u1", "")

	_, err := f.svc.Modify(context.Background(), sess.ID, domain.ProfileUpdate{Name: strPtr("X")}, "bad")

	assert.ErrorIs(t, err, domain.ErrIncorrectPassword)
}

func TestModify_UpdateDeniedFallsBackToLocal(t *testing.T) {
	f := newRegistrationFixture()
	f.remote.Seed("registers/u1", map[string]any{"name": "Asha"})
	sess := f.login(t, "u1", "")
	f.remote.DenyWrites = true

	result, err := f.svc.Modify(context.Background(), sess.ID, domain.ProfileUpdate{Name: strPtr("Asha K")}, "")
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.True(t, result.Local)
	assert.Equal(t, MsgUpdateDenied, result.Message)
	assert.Equal(t, "Asha K", result.Profile.Name)

	local, ok, err := f.local.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u1", local.USN)
	assert.Equal(t, "Asha K", local.Name)

	stored, _ := f.remote.Value("registers/u1")
	assert.Equal(t, "Asha", stored.(map[string]any)["name"])
}

func TestModify_ReadDeniedFallsBackToLocal(t *testing.T) {
	f := newRegistrationFixture()
	sess := f.sessions.Create("u1", domain.Profile{USN: "u1", Name: "Asha"}, "")
	f.remote.DenyReads = true

	result, err := f.svc.Modify(context.Background(), sess.ID, domain.ProfileUpdate{Phone: strPtr("123")}, "")
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.Equal(t, MsgUpdateDenied, result.Message)
	assert.Equal(t, "123", result.Profile.Phone)

	local, ok, _ := f.local.Get(context.Background(), "u1")
	require.True(t, ok)
	assert.Equal(t, "123", local.Phone)
}

func TestModify_NotFound(t *testing.T) {
	f := newRegistrationFixture()
	sess := f.sessions.Create("u1", domain.Profile{USN: "u1"}, "")

	result, err := f.svc.Modify(context.Background(), sess.ID, domain.ProfileUpdate{Name: strPtr("X")}, "")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	assert.Empty(t, f.storage.Items)
}

func TestModify_GenericUpdateErrorIsSurfaced(t *testing.T) {
	f := newRegistrationFixture()
	f.remote.Seed("registers/u1", map[string]any{"name": "Asha"})
	sess := f.login(t, "u1", "")
	boom := errors.New("timeout")
	f.remote.UpdateFn = func(ctx context.Context, path string, fields map[string]any) error {
		return boom
	}

	_, err := f.svc.Modify(context.Background(), sess.ID, domain.ProfileUpdate{Name: strPtr("X")}, "")

	assert.ErrorIs(t, err, boom)
	current, _ := f.svc.CurrentProfile(sess.ID)
	assert.Equal(t, "Asha", current.Profile.Name)
}

func TestAddRepository_RequiresSessionAndURL(t *testing.T) {
	f := newRegistrationFixture()

	_, err := f.svc.AddRepository(context.Background(), "missing", "https://x")
	assert.ErrorIs(t, err, domain.ErrNoSession)

	sess := f.sessions.Create("u1", domain.Profile{USN: "u1"}, "")
	_, err = f.svc.AddRepository(context.Background(), sess.ID, "  ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, f.remote.Calls())
}

func TestAddRepository_PushesUnderRepos(t *testing.T) {
	f := newRegistrationFixture()
	f.remote.Seed("registers/u1", map[string]any{"name": "Asha"})
	sess := f.login(t, "u1", "")

	result, err := f.svc.AddRepository(context.Background(), sess.ID, "https://github.com/org/repo/pull/1")
	require.NoError(t, err)

	assert.Equal(t, MsgRepoAdded, result.Message)
	assert.False(t, result.Local)
	assert.NotEmpty(t, result.ID)

	stored, ok := f.remote.Value("registers/u1/repos/" + result.ID)
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"url":       "https://github.com/org/repo/pull/1",
		"createdAt": float64(fixedNow.UnixMilli()),
		"addedBy":   "u1",
	}, stored)

	require.Contains(t, result.Profile.Repos, result.ID)
	current, _ := f.svc.CurrentProfile(sess.ID)
	assert.Len(t, current.Profile.Repos, 1)
	assert.Contains(t, f.publisher.types(), "repository.created")
}

func TestAddRepository_PermissionDeniedSavesLocally(t *testing.T) {
	f := newRegistrationFixture()
	f.remote.Seed("registers/u1", map[string]any{"name": "Asha"})
	sess := f.login(t, "u1", "")
	f.remote.DenyWrites = true

	result, err := f.svc.AddRepository(context.Background(), sess.ID, "https://x")
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.True(t, result.Local)
	assert.Equal(t, MsgRepoDenied, result.Message)
	assert.True(t, strings.HasPrefix(result.ID, "local_1700000000000-"), result.ID)

	local, ok, err := f.local.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u1", local.USN)
	require.Contains(t, local.Repos, result.ID)
	assert.Equal(t, "https://x", local.Repos[result.ID].URL)
	assert.Equal(t, "u1", local.Repos[result.ID].AddedBy)

	current, _ := f.svc.CurrentProfile(sess.ID)
	assert.Contains(t, current.Profile.Repos, result.ID)
}

func TestAddRepository_DeniedInSameMillisecondKeepsBoth(t *testing.T) {
	f := newRegistrationFixture()
	f.remote.Seed("registers/u1", map[string]any{"name": "Asha"})
	sess := f.login(t, "u1", "")
	f.remote.DenyWrites = true

	first, err := f.svc.AddRepository(context.Background(), sess.ID, "https://x")
	require.NoError(t, err)
	second, err := f.svc.AddRepository(context.Background(), sess.ID, "https://y")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)

	local, _, err := f.local.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, local.Repos, 2)
	assert.Equal(t, "https://x", local.Repos[first.ID].URL)
	assert.Equal(t, "https://y", local.Repos[second.ID].URL)

	current, _ := f.svc.CurrentProfile(sess.ID)
	assert.Len(t, current.Profile.Repos, 2)
}

func TestAddRepository_GenericErrorIsSurfaced(t *testing.T) {
	f := newRegistrationFixture()
	sess := f.sessions.Create("u1", domain.Profile{USN: "u1"}, "")
	boom := errors.New("bad gateway")
	f.remote.FailPaths["registers/u1/repos"] = boom

	result, err := f.svc.AddRepository(context.Background(), sess.ID, "https://x")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.storage.Items)
}
