// Package config loads the server configuration from a YAML file, an
// optional .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ocean-haven/booking/internal/pricing"
)

const (
	defaultListen          = ":3005"
	defaultDataDir         = "./data"
	defaultTimezone        = "America/Sao_Paulo"
	defaultSyncIntervalMin = 15
	defaultSyncHorizonDays = 365
	defaultFetchTimeoutSec = 15
	defaultFeedCacheTTLSec = 60
	defaultTokenTTLHours   = 7 * 24
	devJWTSecret           = "dev-secret"
)

// Config is the top-level server configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`
	// DataDir holds the sqlite database.
	DataDir string `yaml:"data_dir"`
	// StaticDir, when set, is served at / for the front end build.
	StaticDir string `yaml:"static_dir,omitempty"`

	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
	// OwnerEmails are granted the owner role when they register.
	OwnerEmails []string `yaml:"owner_emails"`

	// Timezone is the property's zone; calendar days are read in it.
	Timezone string `yaml:"timezone"`

	SyncIntervalMin int `yaml:"sync_interval_min"`
	// SyncHorizonDays bounds recurring-event expansion into the future.
	SyncHorizonDays int `yaml:"sync_horizon_days"`
	FetchTimeoutSec int `yaml:"fetch_timeout_sec"`
	FeedCacheTTLSec int `yaml:"feed_cache_ttl_sec"`

	Pricing pricing.Settings `yaml:"pricing"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          defaultListen,
		DataDir:         defaultDataDir,
		JWTSecret:       devJWTSecret,
		TokenTTLHours:   defaultTokenTTLHours,
		Timezone:        defaultTimezone,
		SyncIntervalMin: defaultSyncIntervalMin,
		SyncHorizonDays: defaultSyncHorizonDays,
		FetchTimeoutSec: defaultFetchTimeoutSec,
		FeedCacheTTLSec: defaultFeedCacheTTLSec,
		Pricing:         pricing.DefaultSettings(),
	}
}

// Normalize fills zero values with defaults so partial files still work.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.JWTSecret == "" {
		c.JWTSecret = devJWTSecret
	}
	if c.TokenTTLHours <= 0 {
		c.TokenTTLHours = defaultTokenTTLHours
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.SyncIntervalMin <= 0 {
		c.SyncIntervalMin = defaultSyncIntervalMin
	}
	if c.SyncHorizonDays <= 0 {
		c.SyncHorizonDays = defaultSyncHorizonDays
	}
	if c.FetchTimeoutSec <= 0 {
		c.FetchTimeoutSec = defaultFetchTimeoutSec
	}
	if c.FeedCacheTTLSec <= 0 {
		c.FeedCacheTTLSec = defaultFeedCacheTTLSec
	}

	def := pricing.DefaultSettings()
	if c.Pricing.Scheme == "" {
		c.Pricing.Scheme = def.Scheme
	}
	if c.Pricing.WeekdayRate <= 0 {
		c.Pricing.WeekdayRate = def.WeekdayRate
	}
	if c.Pricing.WeekendRate <= 0 {
		c.Pricing.WeekendRate = def.WeekendRate
	}
	if c.Pricing.FlatRate <= 0 {
		c.Pricing.FlatRate = def.FlatRate
	}
	if c.Pricing.WeekendDays == nil {
		c.Pricing.WeekendDays = def.WeekendDays
	}
	if c.Pricing.Tiers == nil {
		c.Pricing.Tiers = def.Tiers
	}
}

// Validate reports settings that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if err := c.Pricing.Validate(); err != nil {
		return fmt.Errorf("pricing: %w", err)
	}
	return nil
}

// Location returns the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsOwnerEmail reports whether email is one of the configured owners.
func (c *Config) IsOwnerEmail(email string) bool {
	for _, owner := range c.OwnerEmails {
		if strings.EqualFold(strings.TrimSpace(owner), email) {
			return true
		}
	}
	return false
}

// DatabasePath is the sqlite file inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "booking.db")
}

// TokenTTL returns the bearer token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// SyncInterval returns the external calendar sync period.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalMin) * time.Minute
}

// FetchTimeout returns the per-feed HTTP timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

// FeedCacheTTL returns how long a rendered merged feed is reused.
func (c *Config) FeedCacheTTL() time.Duration {
	return time.Duration(c.FeedCacheTTLSec) * time.Second
}

// Load reads the YAML file at path. A missing file is created with the
// defaults. ${VAR} references in the file are expanded from the
// environment, and JWT_SECRET, LISTEN_ADDR, DATA_DIR, OWNER_EMAIL and
// SYNC_INTERVAL_MIN override the file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.ApplyEnv()
	cfg.Normalize()
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from file into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(file string) error {
	if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", file, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("OWNER_EMAIL"); v != "" {
		c.OwnerEmails = strings.Split(v, ",")
	}
	if v := os.Getenv("SYNC_INTERVAL_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SyncIntervalMin = n
		}
	}
}

// Save writes cfg to path atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".booking-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
