package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"animaldash/internal/core"
	ports "animaldash/internal/sheets"

	_ "modernc.org/sqlite"
)

// SQLiteRepository serves observation rows from a local SQLite file laid
// out like the sheet: one row per observation, in insertion order.
type SQLiteRepository struct {
	db *sql.DB
}

var _ ports.RangeFetcher = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (or creates) the database at dbPath and runs
// migrations. ":memory:" is accepted for tests.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Append stores one observation under the given sheet name and returns its id.
func (r *SQLiteRepository) Append(ctx context.Context, sheet string, o core.Observation) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO observations (sheet, filename, prediction, time) VALUES (?, ?, ?, ?)`,
		strings.TrimSpace(sheet),
		strings.TrimSpace(o.Filename),
		strings.TrimSpace(o.Prediction),
		strings.TrimSpace(o.Time))
	if err != nil {
		return 0, fmt.Errorf("insert observation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.DebugContext(ctx, "Observation saved to SQLite",
		"id", id,
		"sheet", sheet,
		"filename", o.Filename,
		"prediction", o.Prediction)
	return id, nil
}

// FetchRange implements sheets.RangeFetcher. The spreadsheet id and range
// are ignored; rows are selected by sheet name and returned header first.
func (r *SQLiteRepository) FetchRange(ctx context.Context, _, sheetName, _ string) ([][]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT filename, prediction, time
		FROM observations
		WHERE sheet = ?
		ORDER BY id ASC
	`, strings.TrimSpace(sheetName))
	if err != nil {
		return nil, fmt.Errorf("%w: query observations: %w", core.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	out := [][]string{append([]string(nil), core.Columns...)}
	for rows.Next() {
		var filename, prediction, t string
		if err := rows.Scan(&filename, &prediction, &t); err != nil {
			return nil, fmt.Errorf("%w: scan observation: %w", core.ErrSourceUnavailable, err)
		}
		out = append(out, []string{filename, prediction, t})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate observations: %w", core.ErrSourceUnavailable, err)
	}
	return out, nil
}
