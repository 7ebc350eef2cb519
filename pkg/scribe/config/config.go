package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the runtime configuration for the server.
type Config struct {
	Port     string `toml:"port"`
	DBPath   string `toml:"db_path"`
	MediaDir string `toml:"media_dir"`

	// Page sizes per feed. All default to 10.
	IndexPageSize   int `toml:"index_page_size"`
	GroupPageSize   int `toml:"group_page_size"`
	ProfilePageSize int `toml:"profile_page_size"`

	// FeedCacheTTL is how long the rendered global feed stays cached.
	FeedCacheTTL time.Duration `toml:"-"`

	FeedCacheTTLSeconds int `toml:"feed_cache_ttl_seconds"`

	// TokenValidity is how long issued auth tokens last.
	TokenValidity time.Duration `toml:"-"`

	TokenValidityHours int `toml:"token_validity_hours"`
}

// Default returns a Config with development defaults.
func Default() *Config {
	return &Config{
		Port:                "8080",
		DBPath:              "scribe.db",
		MediaDir:            "media",
		IndexPageSize:       10,
		GroupPageSize:       10,
		ProfilePageSize:     10,
		FeedCacheTTLSeconds: 20,
		TokenValidityHours:  24,
	}
}

// Load builds the configuration: defaults, then an optional TOML file named
// by SCRIBE_CONFIG, then environment variable overrides.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("SCRIBE_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DBPath = getEnv("SCRIBE_DB_PATH", cfg.DBPath)
	cfg.MediaDir = getEnv("SCRIBE_MEDIA_DIR", cfg.MediaDir)
	cfg.IndexPageSize = getEnvInt("SCRIBE_INDEX_PAGE_SIZE", cfg.IndexPageSize)
	cfg.GroupPageSize = getEnvInt("SCRIBE_GROUP_PAGE_SIZE", cfg.GroupPageSize)
	cfg.ProfilePageSize = getEnvInt("SCRIBE_PROFILE_PAGE_SIZE", cfg.ProfilePageSize)
	cfg.FeedCacheTTLSeconds = getEnvInt("SCRIBE_FEED_CACHE_TTL", cfg.FeedCacheTTLSeconds)
	cfg.TokenValidityHours = getEnvInt("SCRIBE_TOKEN_VALIDITY_HOURS", cfg.TokenValidityHours)

	cfg.FeedCacheTTL = time.Duration(cfg.FeedCacheTTLSeconds) * time.Second
	cfg.TokenValidity = time.Duration(cfg.TokenValidityHours) * time.Hour
	return cfg, nil
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)
	if exists {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
