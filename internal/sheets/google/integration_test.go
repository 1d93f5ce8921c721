//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"animaldash/internal/core"
	ports "animaldash/internal/sheets"
)

// Integration tests require a real spreadsheet and credentials.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_LoadObservations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	creds := Credentials{
		TokenJSON:          firstNonEmpty(os.Getenv("GOOGLE_OAUTH_TOKEN_JSON"), os.Getenv("TOKEN_JSON")),
		TokenFile:          os.Getenv("GOOGLE_OAUTH_TOKEN_FILE"),
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if creds == (Credentials{}) {
		t.Skip("credentials not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := New(ctx, creds)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	src := ports.Source{
		SpreadsheetID: spreadsheetID,
		SheetName:     firstNonEmpty(os.Getenv("GOOGLE_SHEET_NAME"), "Sheet1"),
		Range:         os.Getenv("GOOGLE_SHEET_RANGE"),
	}
	tbl, err := ports.Load(ctx, client, src)
	if err != nil {
		t.Fatalf("load %s: %v", src.A1(), err)
	}
	t.Logf("loaded %d observations, %d warnings", tbl.Len(), len(tbl.Warnings))

	s := core.Summarize(tbl)
	hourTotal := 0
	for _, n := range s.HourCategoryCounts {
		hourTotal += n
	}
	if hourTotal+len(s.Skipped) != s.Total {
		t.Errorf("hour counts %d + skipped %d != total %d", hourTotal, len(s.Skipped), s.Total)
	}
	if latest, err := s.Latest(); err == nil {
		t.Logf("latest: %s (%s) at %s", latest.Filename, latest.Prediction, latest.Time)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
