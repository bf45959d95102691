package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingDatabaseURL is returned when no connection string is
// available. The retention client cannot be constructed without one.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL must be provided via argument or environment")

// Config holds the retention service settings.
type Config struct {
	// HTTP server
	ServerPort int

	// Backing store
	DatabaseURL string

	// Connection pool
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Retention defaults
	DefaultBatchSize int
	DefaultDaysOld   int
	MaxRequestTime   time.Duration

	// Logging
	LogFile string
}

// MonitorConfig holds the pipeline monitor settings. Repo and pipeline
// identifiers are explicit configuration here, not ambient globals read
// at call time.
type MonitorConfig struct {
	Repo            string
	PipelineID      string
	PipelineVersion string
	PipelineAPIURL  string
	PRNumber        int
	GitHubToken     string
	GitHubAPIURL    string
	StatusPath      string
	LogFile         string
}

// LoadConfig reads the retention service configuration from the
// environment, with an optional .env file. databaseURL overrides the
// DATABASE_URL variable when non-empty; absence of both is fatal.
func LoadConfig(databaseURL string) (*Config, error) {
	// Load .env if present
	_ = godotenv.Load()

	config := &Config{
		// Defaults
		ServerPort:        8080,
		DBMaxOpenConns:    10,
		DBMaxIdleConns:    5,
		DBConnMaxLifetime: time.Hour,
		DefaultBatchSize:  1000,
		DefaultDaysOld:    30,
		MaxRequestTime:    30 * time.Minute,
	}

	config.DatabaseURL = databaseURL
	if config.DatabaseURL == "" {
		config.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if config.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.ServerPort = p
		}
	}

	// Pool
	if val := os.Getenv("DB_MAX_OPEN_CONNS"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			config.DBMaxOpenConns = p
		}
	}
	if val := os.Getenv("DB_MAX_IDLE_CONNS"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			config.DBMaxIdleConns = p
		}
	}
	if val := os.Getenv("DB_CONN_MAX_LIFETIME"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			config.DBConnMaxLifetime = d
		}
	}

	// Retention
	if val := os.Getenv("DEFAULT_BATCH_SIZE"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			config.DefaultBatchSize = p
		}
	}
	if val := os.Getenv("DEFAULT_DAYS_OLD"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			config.DefaultDaysOld = p
		}
	}
	if val := os.Getenv("MAX_REQUEST_TIME"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			config.MaxRequestTime = d
		}
	}

	config.LogFile = os.Getenv("LOG_FILE")

	return config, nil
}

// LoadMonitorConfig reads the pipeline monitor configuration from the
// environment, with an optional .env file.
func LoadMonitorConfig() *MonitorConfig {
	_ = godotenv.Load()

	config := &MonitorConfig{
		Repo:         getEnv("REPO", "gtsurkav-sudo/JOJIAI"),
		GitHubAPIURL: getEnv("GITHUB_API_URL", "https://api.github.com"),
		StatusPath:   getEnv("STATUS_PATH", "docs/status.json"),
	}

	config.PipelineID = os.Getenv("PIPELINE_ID")
	config.PipelineVersion = os.Getenv("PIPELINE_VERSION")
	config.PipelineAPIURL = os.Getenv("PIPELINE_API_URL")
	if val := os.Getenv("PR_NUMBER"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			config.PRNumber = p
		}
	}

	config.GitHubToken = os.Getenv("GH_TOKEN")
	if config.GitHubToken == "" {
		// GitHub Actions token; unauthenticated (read only) otherwise
		config.GitHubToken = os.Getenv("GITHUB_TOKEN")
	}

	config.LogFile = os.Getenv("LOG_FILE")

	return config
}

// Helper for environment variables with a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
