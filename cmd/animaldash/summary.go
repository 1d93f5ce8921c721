package main

import (
	"github.com/spf13/cobra"

	"animaldash/internal/cli"
	"animaldash/internal/report"
)

var summaryBarWidth int

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the dashboard views to the terminal",
	Long: `Fetches the observation log once from the configured backend and
prints the latest capture, counts per animal and the hour-of-day heatmap.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadAndValidateConfig()
		if err != nil {
			return err
		}
		logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)

		svc, _, cleanup, err := openDashboard(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		d, err := svc.Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		return report.Render(cmd.OutOrStdout(), d, report.Options{
			TimeZoneLabel: cfg.TimeZoneLabel,
			BarWidth:      summaryBarWidth,
		})
	},
}

func init() {
	summaryCmd.Flags().IntVar(&summaryBarWidth, "bar-width", 30, "terminal cells for the longest bar")
}
