package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/lorehall/lorehall/internal/ratelimit"
)

var rateLimitListOutput string

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the effective rate limit policy table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		policies := ratelimit.DefaultTable()
		if cfg.RateLimit.OverridesFile != "" {
			if err := policies.ApplyOverridesFile(cfg.RateLimit.OverridesFile); err != nil {
				return err
			}
		}

		switch rateLimitListOutput {
		case "json":
			type entry struct {
				Name     string `json:"name"`
				Capacity int    `json:"capacity"`
				Window   string `json:"window"`
			}
			entries := make([]entry, 0)
			for _, p := range policies.Policies() {
				entries = append(entries, entry{Name: p.Name, Capacity: p.Capacity, Window: p.Window.String()})
			}
			payload, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(payload))
		case "table":
			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"Policy", "Capacity", "Window"})
			for _, p := range policies.Policies() {
				t.AppendRow(table.Row{p.Name, p.Capacity, p.Window})
			}
			t.Render()
		default:
			return fmt.Errorf("unsupported output format: %s", rateLimitListOutput)
		}
		return nil
	},
}

func init() {
	rateLimitCmd.AddCommand(rateLimitListCmd)
	rateLimitListCmd.Flags().StringVar(&rateLimitListOutput, "output-format", "table", "output format: table or json")
}
