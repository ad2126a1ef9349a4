// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr    string
	DBPath        string
	SecretKey     []byte // 32-byte AES-256 key; nil when credential storage is disabled.
	ManifestDir   string
	CDPURL        string
	LogLevel      slog.Level
	AlertInterval time.Duration
}

// HasSecretKey returns true when a credential encryption key was configured.
// Without it the composition root still starts, but stored credentials are
// reported as invalid.
func (c *Config) HasSecretKey() bool {
	return len(c.SecretKey) == 32
}

// Load reads configuration from environment variables and returns a validated Config.
// Optional variables with defaults: SETOOLKIT_LISTEN_ADDR (127.0.0.1:8484),
// SETOOLKIT_DB_PATH (setoolkit.db), SETOOLKIT_ALERT_INTERVAL (1m),
// SETOOLKIT_LOG_LEVEL (info). SETOOLKIT_SECRET_KEY must be 64 hex characters when set.
// SETOOLKIT_MANIFEST_DIR and SETOOLKIT_CDP_URL are optional and disabled when empty.
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8484"
	if v, ok := os.LookupEnv("SETOOLKIT_LISTEN_ADDR"); ok && v != "" {
		listenAddr = v
	}

	dbPath := "setoolkit.db"
	if v, ok := os.LookupEnv("SETOOLKIT_DB_PATH"); ok && v != "" {
		dbPath = v
	}

	alertInterval := time.Minute
	if v, ok := os.LookupEnv("SETOOLKIT_ALERT_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SETOOLKIT_ALERT_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("SETOOLKIT_ALERT_INTERVAL must be positive, got %q", v)
		}
		alertInterval = parsed
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("SETOOLKIT_SECRET_KEY"); ok && v != "" {
		key, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("SETOOLKIT_SECRET_KEY is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("SETOOLKIT_SECRET_KEY must decode to 32 bytes, got %d", len(key))
		}
		secretKey = key
	}

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("SETOOLKIT_LOG_LEVEL"); ok && v != "" {
		if err := logLevel.UnmarshalText([]byte(strings.ToLower(v))); err != nil {
			return nil, fmt.Errorf("SETOOLKIT_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	return &Config{
		ListenAddr:    listenAddr,
		DBPath:        dbPath,
		SecretKey:     secretKey,
		ManifestDir:   strings.TrimSpace(os.Getenv("SETOOLKIT_MANIFEST_DIR")),
		CDPURL:        strings.TrimSpace(os.Getenv("SETOOLKIT_CDP_URL")),
		LogLevel:      logLevel,
		AlertInterval: alertInterval,
	}, nil
}
