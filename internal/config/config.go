package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the world tooling and dev server.
type Config struct {
	Server    ServerConfig
	Assets    AssetsConfig
	Streaming StreamingConfig
	Quality   QualityConfig
}

// ServerConfig holds dev asset server configuration.
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Environment  string

	RateLimit       int
	RateLimitWindow time.Duration
}

// AssetsConfig holds the directory layout contract shared by the
// compression pipeline, the budget validator and the asset server.
type AssetsConfig struct {
	SourceDir    string
	ChunksDir    string
	PropsDir     string
	ManifestDir  string
	ManifestName string
}

// StreamingConfig holds runtime chunk streaming configuration.
type StreamingConfig struct {
	MemoryBudgetBytes int64
}

// QualityConfig holds the default quality preference.
type QualityConfig struct {
	DefaultTier string
}

// Load reads configuration from environment variables and .env file.
// The .env file is loaded from the current working directory.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Environment variables can still be set directly.
		log.Printf("Warning: .env file not found (this is OK if using environment variables): %v", err)
	}

	config := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "8090"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
			Environment:     getEnv("ENVIRONMENT", "development"),
			RateLimit:       getIntEnv("SERVER_RATE_LIMIT", 300),
			RateLimitWindow: getDurationEnv("SERVER_RATE_LIMIT_WINDOW", 1*time.Minute),
		},
		Assets: AssetsConfig{
			SourceDir:    getEnv("ASSET_SOURCE_DIR", "assets/source"),
			ChunksDir:    getEnv("ASSET_CHUNKS_DIR", "assets/chunks"),
			PropsDir:     getEnv("ASSET_PROPS_DIR", "assets/props"),
			ManifestDir:  getEnv("ASSET_MANIFEST_DIR", "assets/manifests"),
			ManifestName: getEnv("ASSET_MANIFEST_NAME", "asset-manifest.json"),
		},
		Streaming: StreamingConfig{
			MemoryBudgetBytes: getInt64Env("STREAMING_MEMORY_BUDGET", 256*1024*1024),
		},
		Quality: QualityConfig{
			DefaultTier: getEnv("QUALITY_DEFAULT_TIER", "auto"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks that all required configuration values are sane.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}
	if c.Assets.SourceDir == "" || c.Assets.ChunksDir == "" || c.Assets.PropsDir == "" {
		return fmt.Errorf("asset directories must not be empty")
	}
	if c.Assets.ManifestName == "" {
		return fmt.Errorf("ASSET_MANIFEST_NAME is required")
	}
	if c.Streaming.MemoryBudgetBytes <= 0 {
		return fmt.Errorf("STREAMING_MEMORY_BUDGET must be positive")
	}
	switch c.Quality.DefaultTier {
	case "auto", "low", "medium", "high":
	default:
		return fmt.Errorf("QUALITY_DEFAULT_TIER must be one of auto|low|medium|high, got %q", c.Quality.DefaultTier)
	}
	return nil
}

// ManifestPath returns the full path of the build manifest.
func (c *AssetsConfig) ManifestPath() string {
	return filepath.Join(c.ManifestDir, c.ManifestName)
}

// IsDevelopment returns true if running in development mode.
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions for environment variable access

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid integer value for %s: %s, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return intValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("Warning: invalid integer value for %s: %s, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return intValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid duration value for %s: %s, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return duration
}
