package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"animaldash/internal/cli"
	"animaldash/internal/config"
	"animaldash/internal/core"
	applog "animaldash/internal/log"
	"animaldash/internal/sheets/memory"
	"animaldash/internal/storage"
)

var (
	importDBPath string
	importSheet  string
)

var importCmd = &cobra.Command{
	Use:   "import-csv FILE",
	Short: "Append observations from a CSV export to the SQLite store",
	Long: `Reads a CSV file with a filename,prediction,time header (the layout
of a Google Sheets CSV download) and appends every row to the SQLite
database used by DATA_BACKEND=sqlite.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat).WithComponent(applog.ComponentStorage)

		dbPath := importDBPath
		if dbPath == "" {
			dbPath = cfg.SQLiteDBPath
		}
		sheet := importSheet
		if sheet == "" {
			sheet = cfg.GoogleSheetName
		}

		n, warnings, err := importCSV(cmd.Context(), args[0], dbPath, sheet)
		for _, w := range warnings {
			logger.Warn("Row imported with defects", applog.FieldRow, w.Row, applog.FieldColumn, w.Field, "reason", w.Reason)
		}
		if err != nil {
			return err
		}
		logger.Info("Import complete", applog.FieldRows, n, applog.FieldSheet, sheet, "db", dbPath)
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d observations into %s\n", n, sheet)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importDBPath, "db", "", "SQLite database path (default $SQLITE_DB_PATH)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "sheet name to store rows under (default $GOOGLE_SHEET_NAME)")
}

// importCSV decodes path the same way a sheet fetch is decoded and appends
// the rows in order. It returns the number of rows written.
func importCSV(ctx context.Context, path, dbPath, sheet string) (int, []core.MalformedRowError, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	store, err := memory.NewFromCSV(f)
	if err != nil {
		return 0, nil, err
	}
	raw, err := store.FetchRange(ctx, "", sheet, "")
	if err != nil {
		return 0, nil, err
	}
	table := core.DecodeTable(raw)

	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return 0, table.Warnings, err
	}
	defer repo.Close()

	for i, o := range table.Rows {
		if _, err := repo.Append(ctx, sheet, o); err != nil {
			return i, table.Warnings, fmt.Errorf("append row %d: %w", o.Row, err)
		}
	}
	return len(table.Rows), table.Warnings, nil
}
