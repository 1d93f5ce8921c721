package core

import (
	"fmt"
	"strings"
	"time"
)

// timeLayouts are tried in order. Values without an offset are parsed as
// naive wall-clock times; values with one keep it, so Hour() is always the
// hour as written in the sheet.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	// US month-first, as in the Sheets UI's en_US locale.
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"1/2/2006",
}

// ParseTime parses a capture timestamp in any of the formats the pipeline
// and the Sheets UI produce.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", s)
}
