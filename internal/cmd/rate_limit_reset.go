package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorehall/lorehall/internal/ratelimit"
)

var (
	rateLimitResetAll        bool
	rateLimitResetEndpoint   string
	rateLimitResetIP         string
	rateLimitResetIdentifier string
	rateLimitResetYes        bool
)

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear rate limit buckets in the counting store",
	Long: `Clear rate limit buckets, the operational escape hatch for a falsely
limited caller. Scope the reset with --endpoint plus --ip or --identifier;
--all clears everything and requires --yes.

Identifiers (emails, tokens, content ids) are hashed before lookup, the
same way the guards hash them, so the value passed here is the raw one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern, err := resetPattern()
		if err != nil {
			return err
		}

		store, err := openCountingStore(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		deleted, err := store.DeleteMatching(cmd.Context(), pattern)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d bucket(s)\n", deleted)
		return nil
	},
}

func resetPattern() (string, error) {
	if rateLimitResetAll {
		if rateLimitResetEndpoint != "" || rateLimitResetIP != "" || rateLimitResetIdentifier != "" {
			return "", errors.New("--all cannot be combined with other selectors")
		}
		if !rateLimitResetYes {
			return "", errors.New("--all requires --yes")
		}
		return "*", nil
	}

	if rateLimitResetEndpoint == "" {
		return "", errors.New("either --endpoint or --all is required")
	}
	if rateLimitResetIP != "" && rateLimitResetIdentifier != "" {
		return "", errors.New("--ip and --identifier are mutually exclusive")
	}

	switch {
	case rateLimitResetIP != "":
		return fmt.Sprintf("%s:%s:%s", rateLimitResetEndpoint, ratelimit.DimensionIP, rateLimitResetIP), nil
	case rateLimitResetIdentifier != "":
		hashed := ratelimit.HashIdentifier(rateLimitResetIdentifier)
		return fmt.Sprintf("%s:%s:%s", rateLimitResetEndpoint, ratelimit.DimensionIdentity, hashed), nil
	default:
		return rateLimitResetEndpoint + ":*", nil
	}
}

func init() {
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetAll, "all", false, "clear every bucket")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetEndpoint, "endpoint", "", "endpoint name, e.g. contact or password-reset")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetIP, "ip", "", "client address whose buckets to clear")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetIdentifier, "identifier", "", "raw secondary identifier whose buckets to clear")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetYes, "yes", false, "confirm a full reset")
}
