package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "LOREHALL"

// Load builds the configuration from defaults, an optional config file, and
// environment variables. An empty path skips the file layer. A .env file in
// the working directory is loaded first so development setups need no
// exported variables.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvAliases(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("lorehall")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("store.path", "lorehall.db")

	v.SetDefault("mail.provider", "noop")
	v.SetDefault("mail.from", "no-reply@lorehall.example")

	v.SetDefault("mailing_list.enabled", false)

	v.SetDefault("downloads.url_ttl", "15m")

	v.SetDefault("rate_limit.enabled", true)

	v.SetDefault("logging.level", "info")
}

// bindEnvAliases maps conventional unprefixed names onto config paths so a
// hosting platform's stock variables (REDIS_URL and friends) work without a
// LOREHALL_ rename.
func bindEnvAliases(v *viper.Viper) {
	_ = v.BindEnv("redis.url", "LOREHALL_REDIS_URL", "REDIS_URL")
	_ = v.BindEnv("redis.auth_token", "LOREHALL_REDIS_AUTH_TOKEN", "REDIS_TOKEN")
	_ = v.BindEnv("store.url", "LOREHALL_STORE_URL", "DATABASE_URL")
	_ = v.BindEnv("store.auth_token", "LOREHALL_STORE_AUTH_TOKEN", "DATABASE_AUTH_TOKEN")
	_ = v.BindEnv("mail.api_key", "LOREHALL_MAIL_API_KEY", "MAIL_API_KEY")
	_ = v.BindEnv("mailing_list.api_key", "LOREHALL_MAILING_LIST_API_KEY", "MAILING_LIST_API_KEY")
	_ = v.BindEnv("downloads.signing_secret", "LOREHALL_DOWNLOADS_SIGNING_SECRET", "DOWNLOAD_SIGNING_SECRET")
}
