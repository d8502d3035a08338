package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingAccount is returned when no source account is configured.
var ErrMissingAccount = errors.New("GITHUB_ACCOUNT is required")

// Config holds all configuration for the application
type Config struct {
	GitHubAccount string
	GitHubToken   string
	GitHubAPIURL  string
	UserAgent     string
	HTTPTimeout   time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	EnrichConcurrency  int
	FetchReadme        bool
	FollowListingPages bool
	PageGroupSize      int
	SyncInterval       time.Duration

	StoreBackend     string
	StoreLocation    string
	BoltPath         string
	DatastoreProject string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	LogLevel  string
	LogFormat string
}

// NewConfig creates a new Config instance
func NewConfig() *Config {
	return &Config{}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GITHUB_API_URL", "https://api.github.com")
	v.SetDefault("USER_AGENT", "reposync")
	v.SetDefault("HTTP_TIMEOUT", "10s")
	v.SetDefault("RATE_LIMIT_RPS", 0)
	v.SetDefault("RATE_LIMIT_BURST", 1)
	v.SetDefault("ENRICH_CONCURRENCY", 5)
	v.SetDefault("FETCH_README", true)
	v.SetDefault("FOLLOW_LISTING_PAGES", false)
	v.SetDefault("PAGE_GROUP_SIZE", 3)
	v.SetDefault("SYNC_INTERVAL", "0s")
	v.SetDefault("STORE_BACKEND", "bolt")
	v.SetDefault("STORE_LOCATION", "repositories")
	v.SetDefault("BOLT_PATH", "reposync.db")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 25)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Load loads configuration from environment variables. Values from the
// optional env files are applied first and never override the environment.
func (c *Config) Load(envFiles ...string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read env file %s: %w", file, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	// Required fields
	c.GitHubAccount = v.GetString("GITHUB_ACCOUNT")
	if c.GitHubAccount == "" {
		return ErrMissingAccount
	}

	c.GitHubToken = v.GetString("GITHUB_TOKEN")
	c.GitHubAPIURL = v.GetString("GITHUB_API_URL")
	c.UserAgent = v.GetString("USER_AGENT")
	c.RateLimitRPS = v.GetFloat64("RATE_LIMIT_RPS")
	c.RateLimitBurst = v.GetInt("RATE_LIMIT_BURST")
	c.EnrichConcurrency = v.GetInt("ENRICH_CONCURRENCY")
	c.FetchReadme = v.GetBool("FETCH_README")
	c.FollowListingPages = v.GetBool("FOLLOW_LISTING_PAGES")
	c.PageGroupSize = v.GetInt("PAGE_GROUP_SIZE")

	c.StoreBackend = v.GetString("STORE_BACKEND")
	c.StoreLocation = v.GetString("STORE_LOCATION")
	c.BoltPath = v.GetString("BOLT_PATH")
	c.DatastoreProject = v.GetString("DATASTORE_PROJECT")

	c.PostgresHost = v.GetString("POSTGRES_HOST")
	c.PostgresPort = v.GetString("POSTGRES_PORT")
	c.PostgresUser = v.GetString("POSTGRES_USER")
	c.PostgresPassword = v.GetString("POSTGRES_PASSWORD")
	c.PostgresDB = v.GetString("POSTGRES_DB")
	c.PostgresSSLMode = v.GetString("POSTGRES_SSLMODE")
	c.DBMaxOpenConns = v.GetInt("DB_MAX_OPEN_CONNS")
	c.DBMaxIdleConns = v.GetInt("DB_MAX_IDLE_CONNS")

	c.LogLevel = v.GetString("LOG_LEVEL")
	c.LogFormat = v.GetString("LOG_FORMAT")

	var err error
	if c.HTTPTimeout, err = parseDuration(v, "HTTP_TIMEOUT"); err != nil {
		return err
	}
	if c.SyncInterval, err = parseDuration(v, "SYNC_INTERVAL"); err != nil {
		return err
	}
	if c.DBConnMaxLifetime, err = parseDuration(v, "DB_CONN_MAX_LIFETIME"); err != nil {
		return err
	}

	if c.EnrichConcurrency < 1 {
		return fmt.Errorf("ENRICH_CONCURRENCY must be positive, got %d", c.EnrichConcurrency)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS cannot be negative, got %v", c.RateLimitRPS)
	}

	return nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s cannot be negative", key)
	}
	return d, nil
}
