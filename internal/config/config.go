package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ExampleDatabaseURL is shown when the database URL is missing
const ExampleDatabaseURL = "https://your-project-default-rtdb.asia-southeast1.firebasedatabase.app"

// Config holds all configuration for the application
type Config struct {
	// Firebase project settings
	Firebase FirebaseConfig

	// LocalStoreURL selects the local fallback storage: a SQLite file path, or a
	// postgres:// URL
	LocalStoreURL string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// Event
	EventName     string
	QualifyingPRs int

	// Rate limiting for registration and login
	RateLimitPerMinute int
	RateLimitBurst     int
}

// FirebaseConfig holds the Firebase web app configuration
type FirebaseConfig struct {
	APIKey            string
	AuthDomain        string
	DatabaseURL       string
	ProjectID         string
	StorageBucket     string
	MessagingSenderID string
	AppID             string
	AuthToken         string // Optional: REST auth parameter
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Firebase: FirebaseConfig{
			APIKey:            getEnv("FIREBASE_API_KEY", ""),
			AuthDomain:        getEnv("FIREBASE_AUTH_DOMAIN", ""),
			DatabaseURL:       getEnv("FIREBASE_DATABASE_URL", ""),
			ProjectID:         getEnv("FIREBASE_PROJECT_ID", ""),
			StorageBucket:     getEnv("FIREBASE_STORAGE_BUCKET", ""),
			MessagingSenderID: getEnv("FIREBASE_MESSAGING_SENDER_ID", ""),
			AppID:             getEnv("FIREBASE_APP_ID", ""),
			AuthToken:         getEnv("FIREBASE_AUTH_TOKEN", ""),
		},
		LocalStoreURL: getEnv("LOCAL_STORE_URL", "data/local_storage.db"),
		Port:          getEnv("PORT", "8080"),
		CORSOrigins:   strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:           getEnv("ENV", "development"),
		EventName:     getEnv("EVENT_NAME", "Hacktoberfest 2025"),
	}

	var err error
	if cfg.QualifyingPRs, err = getEnvInt("EVENT_QUALIFYING_PRS", 6); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getEnvInt("RATE_LIMIT_PER_MINUTE", 30); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getEnvInt("RATE_LIMIT_BURST", 10); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Warnings returns configuration problems that do not stop the server
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Firebase.DatabaseURL == "" {
		warnings = append(warnings, fmt.Sprintf(
			"FIREBASE_DATABASE_URL is not set; every remote read and write will fail. Set it to your Realtime Database URL, e.g. %s",
			ExampleDatabaseURL))
	}
	return warnings
}

// IsPostgresStore reports whether the local store lives in PostgreSQL
func (c *Config) IsPostgresStore() bool {
	return strings.HasPrefix(c.LocalStoreURL, "postgres://") || strings.HasPrefix(c.LocalStoreURL, "postgresql://")
}

func (c *Config) validate() error {
	if c.LocalStoreURL == "" {
		return fmt.Errorf("LOCAL_STORE_URL must not be empty")
	}
	if c.QualifyingPRs <= 0 {
		return fmt.Errorf("EVENT_QUALIFYING_PRS must be positive, got %d", c.QualifyingPRs)
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimitPerMinute)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive, got %d", c.RateLimitBurst)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
