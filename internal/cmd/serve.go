package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lorehall/lorehall/internal/config"
	"github.com/lorehall/lorehall/internal/mailer"
	"github.com/lorehall/lorehall/internal/mailinglist"
	"github.com/lorehall/lorehall/internal/observability"
	"github.com/lorehall/lorehall/internal/ratelimit"
	"github.com/lorehall/lorehall/internal/server"
	"github.com/lorehall/lorehall/internal/server/handlers"
	"github.com/lorehall/lorehall/internal/signing"
	"github.com/lorehall/lorehall/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

SIGINT or SIGTERM triggers a graceful shutdown: in-flight requests finish
within server.shutdown_timeout, then connections are closed and logs flushed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := observability.InitServerLogger("lorehall", cfg.Logging.Level); err != nil {
			return err
		}
		logger := observability.ServerLogger
		defer func() { _ = logger.Sync() }()

		logger.Info("initializing server",
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		counting, redisStore, err := buildCountingStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		if redisStore != nil {
			defer func() { _ = redisStore.Close() }()
		}

		table := ratelimit.DefaultTable()
		if cfg.RateLimit.OverridesFile != "" {
			if err := table.ApplyOverridesFile(cfg.RateLimit.OverridesFile); err != nil {
				return err
			}
			logger.Info("rate limit overrides applied",
				zap.String("file", cfg.RateLimit.OverridesFile))
		}

		db, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		if err := db.Migrate(ctx); err != nil {
			return err
		}

		api := &handlers.API{
			Guardian: ratelimit.NewGuardian(counting, table, logger),
			Store:    db,
			Mailer:   buildMailer(cfg.Mail, logger),
			List:     buildMailingList(cfg.MailingList, logger),
			Signer:   signing.New(cfg.Downloads.SigningSecret, cfg.Downloads.BaseURL, cfg.Downloads.URLTTL),
			Logger:   logger,
			BaseURL:  cfg.Downloads.BaseURL,
		}

		health := handlers.NewHealthManager(versionInfo.Version)
		health.RegisterChecker("database", db)
		if redisStore != nil {
			health.RegisterChecker("counting_store", redisStore)
		}

		srv := server.New(cfg.Server, api, health, handlers.VersionInfo{
			Version:   versionInfo.Version,
			Commit:    versionInfo.Commit,
			BuildDate: versionInfo.BuildDate,
		}, logger)

		errCh := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// buildCountingStore returns the shared Redis store when rate limiting is
// enabled, or a process-local store for single-instance development. The
// Redis handle is returned separately so serve can close it and register its
// health check.
func buildCountingStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ratelimit.CountingStore, *ratelimit.RedisStore, error) {
	if !cfg.RateLimit.Enabled {
		logger.Warn("rate limiting disabled, using process-local counting store")
		return ratelimit.NewMemoryStore(), nil, nil
	}

	client, err := ratelimit.NewRedisClient(cfg.Redis.URL, cfg.Redis.AuthToken)
	if err != nil {
		return nil, nil, err
	}
	rs, err := ratelimit.NewRedisStore(ctx, client)
	if err != nil {
		return nil, nil, err
	}
	return rs, rs, nil
}

func buildMailer(cfg config.MailConfig, logger *zap.Logger) mailer.Mailer {
	if cfg.Provider == "http" {
		return mailer.NewClient(cfg.BaseURL, cfg.APIKey, cfg.From)
	}
	return &mailer.Noop{Logger: logger}
}

func buildMailingList(cfg config.MailingListConfig, logger *zap.Logger) mailinglist.Syncer {
	if cfg.Enabled {
		return mailinglist.NewClient(cfg.BaseURL, cfg.APIKey, cfg.ListID)
	}
	return &mailinglist.Noop{Logger: logger}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
