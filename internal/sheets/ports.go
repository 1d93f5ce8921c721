package sheets

import (
	"context"
	"fmt"
	"strings"
)

// DefaultRange covers the filename, prediction and time columns.
const DefaultRange = "A:C"

// Ports for outbound adapters.
type (
	// RangeFetcher reads a block of cell values from a named sheet.
	// Implementations return rows in sheet order, header included, with
	// trailing empty cells possibly omitted.
	RangeFetcher interface {
		FetchRange(ctx context.Context, spreadsheetID, sheetName, rangeSpec string) ([][]string, error)
	}
)

// Source locates the observation log.
type Source struct {
	SpreadsheetID string
	SheetName     string
	Range         string
}

// A1 returns the range in A1 notation, e.g. "Sheet1!A:C".
func (s Source) A1() string {
	return A1(s.SheetName, s.rangeSpec())
}

func (s Source) rangeSpec() string {
	if r := strings.TrimSpace(s.Range); r != "" {
		return r
	}
	return DefaultRange
}

// A1 joins a sheet name and a range spec. Sheet names with spaces or
// punctuation are quoted.
func A1(sheetName, rangeSpec string) string {
	if sheetName == "" {
		return rangeSpec
	}
	if needsQuoting(sheetName) {
		sheetName = "'" + strings.ReplaceAll(sheetName, "'", "''") + "'"
	}
	return fmt.Sprintf("%s!%s", sheetName, rangeSpec)
}

func needsQuoting(name string) bool {
	for _, r := range name {
		if r == '_' || r > 127 {
			continue
		}
		if (r < '0' || r > '9') && (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return true
		}
	}
	return false
}
