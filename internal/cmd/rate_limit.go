package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lorehall/lorehall/internal/ratelimit"
)

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Inspect and manage rate limit state",
}

// openCountingStore connects to the configured Redis for the rate-limit
// subcommands. These operate on the shared store directly; there is no
// process-local equivalent worth managing.
func openCountingStore(ctx context.Context) (*ratelimit.RedisStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	client, err := ratelimit.NewRedisClient(cfg.Redis.URL, cfg.Redis.AuthToken)
	if err != nil {
		return nil, err
	}
	return ratelimit.NewRedisStore(ctx, client)
}

func init() {
	rootCmd.AddCommand(rateLimitCmd)
}
