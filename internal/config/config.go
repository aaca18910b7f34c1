// Package config centralizes configuration for the Lorehall service.
// Values come from three layers: built-in defaults, an optional YAML config
// file, and LOREHALL_-prefixed environment variables (a .env file is
// honored in development).
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the complete application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Store       StoreConfig       `mapstructure:"store"`
	Mail        MailConfig        `mapstructure:"mail"`
	MailingList MailingListConfig `mapstructure:"mailing_list"`
	Downloads   DownloadsConfig   `mapstructure:"downloads"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// RedisConfig points at the shared counting store. The URL is
// REDIS_URL-style; AuthToken, when set, overrides the password embedded in
// the URL.
type RedisConfig struct {
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// StoreConfig contains database configuration for libsql/Turso.
type StoreConfig struct {
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// MailConfig configures the outbound email collaborator.
type MailConfig struct {
	// Provider selects the implementation: "http" or "noop".
	Provider string `mapstructure:"provider"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	From     string `mapstructure:"from"`
}

// MailingListConfig configures the third-party mailing-list sync.
type MailingListConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	ListID  string `mapstructure:"list_id"`
}

// DownloadsConfig configures signed download URLs for library items.
type DownloadsConfig struct {
	// SigningSecret signs download URLs. Unlike a counting-store outage,
	// its absence is a deployment bug and fails closed at startup.
	SigningSecret string        `mapstructure:"signing_secret"`
	BaseURL       string        `mapstructure:"base_url"`
	URLTTL        time.Duration `mapstructure:"url_ttl"`
}

// RateLimitConfig controls the admission-control layer.
type RateLimitConfig struct {
	// Enabled switches between the Redis store (true) and a process-local
	// store (false, single-instance development only).
	Enabled bool `mapstructure:"enabled"`
	// OverridesFile optionally points at a ratelimit.yaml tuning file.
	OverridesFile string `mapstructure:"overrides_file"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// Validate enforces the startup invariants. Missing counting-store
// credentials while rate limiting is enabled and a missing signing secret
// are both fatal: an endpoint must never silently run without its guards
// or its security configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d is out of range", c.Server.Port)
	}

	if c.RateLimit.Enabled && strings.TrimSpace(c.Redis.URL) == "" {
		return fmt.Errorf("rate limiting is enabled but redis.url is not set (LOREHALL_REDIS_URL)")
	}

	if strings.TrimSpace(c.Downloads.SigningSecret) == "" {
		return fmt.Errorf("downloads.signing_secret is not set (LOREHALL_DOWNLOADS_SIGNING_SECRET)")
	}

	switch c.Mail.Provider {
	case "http":
		if strings.TrimSpace(c.Mail.APIKey) == "" {
			return fmt.Errorf("mail.provider is %q but mail.api_key is not set", c.Mail.Provider)
		}
	case "noop", "":
	default:
		return fmt.Errorf("unknown mail provider: %s", c.Mail.Provider)
	}

	return nil
}
