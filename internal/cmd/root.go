// Package cmd implements the lorehall CLI.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lorehall/lorehall/internal/config"
	"github.com/lorehall/lorehall/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Version info set by main package via ldflags.
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by the main package to set version information.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   "lorehall",
	Short: "Backend service for the Lorehall content hub",
	Long: `Lorehall serves the content hub's public API: contact form, newsletter
lifecycle, password reset requests, and signed library downloads, all behind
per-IP and per-identity rate limiting.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return observability.InitCLILogger(verbose)
	},
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default lorehall.yaml in working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// loadConfig loads the layered configuration for subcommands.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}
