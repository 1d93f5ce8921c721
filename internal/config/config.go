package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	TrustedProxies     []string // CIDRs allowed to set X-Forwarded-For

	// Backend selection
	DataBackend string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleSheetRange         string
	GoogleOAuthTokenJSON     string
	GoogleOAuthTokenFile     string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	FetchTimeout             time.Duration

	// Local backends
	SQLiteDBPath  string
	DataDirectory string

	// Presentation
	TimeZoneLabel     string
	DrivePreviewLinks bool

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		DataBackend: getEnv("DATA_BACKEND", "sheets"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Sheet1"),
		GoogleSheetRange:    getEnv("GOOGLE_SHEET_RANGE", "A:C"),
		// TOKEN_JSON is the variable older deployments were provisioned with.
		GoogleOAuthTokenJSON:     getEnv("GOOGLE_OAUTH_TOKEN_JSON", getEnv("TOKEN_JSON", "")),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		FetchTimeout:             getEnvDuration("FETCH_TIMEOUT", 10*time.Second),

		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/animaldash.db"),
		DataDirectory: getEnv("DATA_DIRECTORY", "data"),

		TimeZoneLabel:     getEnv("TIME_ZONE_LABEL", "JST"),
		DrivePreviewLinks: getEnvBool("DRIVE_PREVIEW_LINKS", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// HasGoogleCredentials reports whether any credential source is set.
func (c *Config) HasGoogleCredentials() bool {
	return c.GoogleOAuthTokenJSON != "" || c.GoogleOAuthTokenFile != "" ||
		c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"sheets", "sqlite", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "GOOGLE_SPREADSHEET_ID is required when using sheets backend")
		}
		if strings.TrimSpace(c.GoogleSheetName) == "" {
			errors = append(errors, "GOOGLE_SHEET_NAME cannot be empty when using sheets backend")
		}
		if !c.HasGoogleCredentials() {
			errors = append(errors, "one of TOKEN_JSON, GOOGLE_OAUTH_TOKEN_JSON, GOOGLE_OAUTH_TOKEN_FILE, GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
		}
		for name, path := range map[string]string{
			"Google OAuth token file":     c.GoogleOAuthTokenFile,
			"Google service account file": c.GoogleServiceAccountFile,
		} {
			if path == "" {
				continue
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("%s does not exist: %s", name, path))
			}
		}

	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			// The repository creates missing directories; only the nearest
			// existing ancestor is checked here.
			if ancestor, ok := nearestExisting(dir); ok && !ancestor.IsDir() {
				errors = append(errors, fmt.Sprintf("SQLite database directory '%s' is not usable: %s is not a directory", dir, ancestor.Name()))
			}
		}
	}

	if c.FetchTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at least 100ms", c.FetchTimeout))
	} else if c.FetchTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at most 5 minutes", c.FetchTimeout))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative (0 disables it)", c.RateLimitPerMinute))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// nearestExisting stats dir, then its parents, until one exists.
func nearestExisting(dir string) (os.FileInfo, bool) {
	for {
		info, err := os.Stat(dir)
		if err == nil {
			return info, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, false
		}
		dir = parent
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
