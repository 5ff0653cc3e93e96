// Package config provides application configuration loaded from environment
// variables (with optional .env autoload for development).
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                 string        // e.g. "8080"
	BackofficePort       string        // e.g. "8081"
	Env                  string        // "development" | "production"
	ReadTimeout          time.Duration // default 10s
	WriteTimeout         time.Duration // default 10s
	BackofficeAllowedIPs string        // comma-separated IPs; "" = allow all
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// AuthConfig holds token verification and admin access settings.
// The platform's auth service issues the JWTs; this service only verifies
// them with the shared secret.
type AuthConfig struct {
	JWTSecret    string // must be set; shared with the platform auth service
	AdminKeyHash string // bcrypt hash of the backoffice X-Admin-Key
}

// FeedConfig holds fixture-provider API settings.
type FeedConfig struct {
	BaseURL        string        // fixtures/results provider base URL
	FetchTimeout   time.Duration // default 5s
	CacheTTL       time.Duration // default 30s
	SyncInterval   time.Duration // fixture import period, default 10m
	SettleInterval time.Duration // settlement poll period, default 30s
}

// BettingConfig holds stake limits. The house fee rate and streak multiplier
// table are product constants and live in the domain package.
type BettingConfig struct {
	MinStake int64 // minimum coins per prediction, default 1
	MaxStake int64 // maximum coins per prediction, 0 = unlimited
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Auth    AuthConfig
	Feed    FeedConfig
	Betting BettingConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}
	if c.IsProd() && c.Auth.AdminKeyHash == "" {
		errs = append(errs, errors.New("ADMIN_KEY_HASH must be set in production"))
	}
	if c.Betting.MinStake < 1 {
		errs = append(errs, fmt.Errorf("BETTING_MIN_STAKE must be >= 1, got %d", c.Betting.MinStake))
	}
	if c.Betting.MaxStake != 0 && c.Betting.MaxStake < c.Betting.MinStake {
		errs = append(errs, fmt.Errorf(
			"BETTING_MAX_STAKE (%d) must be 0 or >= BETTING_MIN_STAKE (%d)",
			c.Betting.MaxStake, c.Betting.MinStake))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails; call this early in main() to catch
// misconfigurations at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	// Best-effort .env load for local development; missing file is fine.
	_ = godotenv.Load()

	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:                 getEnv("SERVER_PORT", "8080"),
		BackofficePort:       getEnv("BACKOFFICE_PORT", "8081"),
		Env:                  getEnv("ENVIRONMENT", "development"),
		ReadTimeout:          getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:         getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		BackofficeAllowedIPs: getEnv("BACKOFFICE_ALLOWED_IPS", ""),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "tribun_prediction"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── Auth ──────────────────────────────────────────────────────────────────
	cfg.Auth = AuthConfig{
		JWTSecret:    getEnv("JWT_SECRET", ""),
		AdminKeyHash: getEnv("ADMIN_KEY_HASH", ""),
	}

	// ── Fixture feed ──────────────────────────────────────────────────────────
	cfg.Feed = FeedConfig{
		BaseURL:        getEnv("FEED_BASE_URL", "https://fixtures.tribunapp.dev"),
		FetchTimeout:   getDuration("FEED_FETCH_TIMEOUT", 5*time.Second),
		CacheTTL:       getDuration("FEED_CACHE_TTL", 30*time.Second),
		SyncInterval:   getDuration("FEED_SYNC_INTERVAL", 10*time.Minute),
		SettleInterval: getDuration("FEED_SETTLE_INTERVAL", 30*time.Second),
	}

	// ── Betting ───────────────────────────────────────────────────────────────
	minStake, err := getInt64("BETTING_MIN_STAKE", 1)
	if err != nil {
		return nil, fmt.Errorf("BETTING_MIN_STAKE: %w", err)
	}
	maxStake, err := getInt64("BETTING_MAX_STAKE", 0)
	if err != nil {
		return nil, fmt.Errorf("BETTING_MAX_STAKE: %w", err)
	}

	cfg.Betting = BettingConfig{
		MinStake: minStake,
		MaxStake: maxStake,
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
