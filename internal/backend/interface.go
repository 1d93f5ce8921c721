package backend

import (
	"context"

	"animaldash/internal/sheets"
)

// Backend is the read side every data source provides.
type Backend interface {
	sheets.RangeFetcher
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleOAuthTokenJSON     string
	GoogleOAuthTokenFile     string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SheetsBackend BackendType = "sheets"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SheetsBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
