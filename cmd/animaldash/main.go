package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"animaldash/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "animaldash",
	Short: "Dashboard for the animal observation log",
	Long: `animaldash reads the observation log (filename, prediction, time)
from Google Sheets, SQLite or a local CSV seed and serves a dashboard
with the latest capture, counts per animal and an hour-of-day heatmap.

Running without a subcommand is the same as "animaldash serve".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return cli.LoadEnvFile(envFiles...)
	},
	RunE: runServe,
}

var envFiles []string

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load before reading configuration")
	rootCmd.AddCommand(serveCmd, summaryCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
