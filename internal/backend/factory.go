package backend

import (
	"context"
	"fmt"
	"log/slog"

	gsheet "animaldash/internal/sheets/google"
	"animaldash/internal/sheets/memory"
	"animaldash/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Credentials{
		TokenJSON:          config.GoogleOAuthTokenJSON,
		TokenFile:          config.GoogleOAuthTokenFile,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleSheetName)

	return &BackendResult{Backend: cli}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend: repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{Backend: store}, nil
}
