package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FIREBASE_API_KEY", "FIREBASE_AUTH_DOMAIN", "FIREBASE_DATABASE_URL", "FIREBASE_PROJECT_ID",
		"FIREBASE_STORAGE_BUCKET", "FIREBASE_MESSAGING_SENDER_ID", "FIREBASE_APP_ID", "FIREBASE_AUTH_TOKEN",
		"LOCAL_STORE_URL", "PORT", "CORS_ORIGINS", "ENV", "EVENT_NAME", "EVENT_QUALIFYING_PRS",
		"RATE_LIMIT_PER_MINUTE", "RATE_LIMIT_BURST",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/local_storage.db", cfg.LocalStoreURL)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 6, cfg.QualifyingPRs)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.Equal(t, 10, cfg.RateLimitBurst)
	assert.False(t, cfg.IsPostgresStore())
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("FIREBASE_DATABASE_URL", "https://demo-default-rtdb.firebaseio.com")
	t.Setenv("FIREBASE_AUTH_TOKEN", "secret")
	t.Setenv("LOCAL_STORE_URL", "postgres://localhost/contribboard")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("EVENT_QUALIFYING_PRS", " 4 ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://demo-default-rtdb.firebaseio.com", cfg.Firebase.DatabaseURL)
	assert.Equal(t, "secret", cfg.Firebase.AuthToken)
	assert.True(t, cfg.IsPostgresStore())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 4, cfg.QualifyingPRs)
	assert.Empty(t, cfg.Warnings())
}

func TestLoad_InvalidNumbers(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"EVENT_QUALIFYING_PRS", "six"},
		{"EVENT_QUALIFYING_PRS", "0"},
		{"RATE_LIMIT_PER_MINUTE", "-1"},
		{"RATE_LIMIT_BURST", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestWarnings_MissingDatabaseURL(t *testing.T) {
	cfg := &Config{}

	warnings := cfg.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "FIREBASE_DATABASE_URL")
	assert.Contains(t, warnings[0], ExampleDatabaseURL)
}
