package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LOREHALL_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LOREHALL_DOWNLOADS_SIGNING_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, "noop", cfg.Mail.Provider)
	require.True(t, cfg.RateLimit.Enabled)
	require.Equal(t, 15*time.Minute, cfg.Downloads.URLTTL)
	require.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestLoadConfigFile(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "lorehall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9100
  shutdown_timeout: 5s
rate_limit:
  overrides_file: ratelimit.yaml
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, "ratelimit.yaml", cfg.RateLimit.OverridesFile)
}

func TestLoadFatalWithoutRedisURL(t *testing.T) {
	t.Setenv("LOREHALL_DOWNLOADS_SIGNING_SECRET", "test-secret")
	t.Setenv("LOREHALL_REDIS_URL", "")
	t.Setenv("REDIS_URL", "")

	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "redis.url")
}

func TestLoadFatalWithoutSigningSecret(t *testing.T) {
	t.Setenv("LOREHALL_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LOREHALL_DOWNLOADS_SIGNING_SECRET", "")
	t.Setenv("DOWNLOAD_SIGNING_SECRET", "")

	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "signing_secret")
}

func TestLoadDisabledRateLimitSkipsRedisCheck(t *testing.T) {
	t.Setenv("LOREHALL_DOWNLOADS_SIGNING_SECRET", "test-secret")
	t.Setenv("LOREHALL_REDIS_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("LOREHALL_RATE_LIMIT_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	require.False(t, cfg.RateLimit.Enabled)
}

func TestValidateMailProvider(t *testing.T) {
	cfg := &Config{
		Server:    ServerConfig{Port: 8080},
		Redis:     RedisConfig{URL: "redis://localhost:6379"},
		Downloads: DownloadsConfig{SigningSecret: "s"},
		RateLimit: RateLimitConfig{Enabled: true},
		Mail:      MailConfig{Provider: "http"},
	}
	require.Error(t, cfg.Validate(), "http provider requires an api key")

	cfg.Mail.APIKey = "key"
	require.NoError(t, cfg.Validate())

	cfg.Mail.Provider = "carrier-pigeon"
	require.Error(t, cfg.Validate())
}
