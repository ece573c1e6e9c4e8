// Package config provides configuration types and defaults for trove.
package config

import (
	"fmt"
	"time"

	"github.com/zjrosen/trove/internal/tracing"
)

// CacheConfig holds dispatcher cache settings.
type CacheConfig struct {
	// Enabled controls process-wide caching of read operations.
	Enabled bool `mapstructure:"enabled"`

	// TTL is how long a cached API result stays valid.
	TTL time.Duration `mapstructure:"ttl"`

	// CleanupInterval is how often expired entries are purged.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig holds the shared token-bucket settings.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate against the API.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	// Burst is the bucket capacity (requests allowed to fire back-to-back).
	Burst int64 `mapstructure:"burst"`
}

// RetryConfig holds the bounded exponential backoff settings applied to
// transient transport failures.
type RetryConfig struct {
	MaxTries        uint          `mapstructure:"max_tries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// Config holds all configuration options for trove.
type Config struct {
	// Repo identifies the remote project, e.g. "owner/name".
	Repo string `mapstructure:"repo"`

	// BaseURL is the API endpoint of the tracking service.
	BaseURL string `mapstructure:"base_url"`

	// Token authenticates against the tracking service.
	Token string `mapstructure:"token"`

	// ArchiveDir is where backups are written and restores are read from.
	ArchiveDir string `mapstructure:"archive_dir"`

	// Entities maps entity names to an explicit enable/disable choice.
	// Entities not mentioned use their registered default.
	Entities map[string]bool `mapstructure:"entities"`

	// Strict makes a disabled dependency of an explicitly requested entity
	// a fatal configuration error instead of a cascading auto-disable.
	Strict bool `mapstructure:"strict"`

	// Conflicts selects the restore conflict policy: "skip", "overwrite"
	// or "fail".
	Conflicts string `mapstructure:"conflicts"`

	// MaxWorkers bounds concurrent entity jobs inside a wave.
	MaxWorkers int `mapstructure:"max_workers"`

	// CallTimeout bounds each individual transport call.
	CallTimeout time.Duration `mapstructure:"call_timeout"`

	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Tracing   tracing.Config  `mapstructure:"tracing"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		BaseURL:     "https://api.tracker.example",
		ArchiveDir:  "trove-archive",
		Entities:    map[string]bool{},
		Strict:      false,
		Conflicts:   "skip",
		MaxWorkers:  4,
		CallTimeout: 30 * time.Second,
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             10 * time.Minute,
			CleanupInterval: 30 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Retry: RetryConfig{
			MaxTries:        4,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     15 * time.Second,
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.Repo == "" {
		return fmt.Errorf("repo is required (e.g. \"owner/name\")")
	}
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("max_workers must be positive, got %d", c.MaxWorkers)
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive, got %v", c.RateLimit.RequestsPerSecond)
	}
	if c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit.burst must be positive, got %d", c.RateLimit.Burst)
	}
	if c.Retry.MaxTries == 0 {
		return fmt.Errorf("retry.max_tries must be at least 1")
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("call_timeout must be positive, got %v", c.CallTimeout)
	}
	switch c.Conflicts {
	case "skip", "overwrite", "fail":
	default:
		return fmt.Errorf("conflicts must be one of skip, overwrite, fail; got %q", c.Conflicts)
	}
	return nil
}
