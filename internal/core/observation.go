package core

import (
	"errors"
	"fmt"
	"strings"
)

// Columns is the fixed schema of an observation table, in sheet column order.
var Columns = []string{"filename", "prediction", "time"}

type (
	// Observation is one classified media record as written by the pipeline.
	Observation struct {
		Row        int    // 1-based sheet row; the header is row 1
		Filename   string // e.g. "1AbC.jpg"
		Prediction string // category label
		Time       string // capture timestamp, local wall clock
	}

	// HourCategory keys the hour-by-category breakdown.
	HourCategory struct {
		Hour     int
		Category string
	}

	// MalformedRowError describes a row that could not be fully used.
	// It is reported, never returned as a fatal error.
	MalformedRowError struct {
		Row    int
		Field  string
		Value  string
		Reason string
	}
)

var (
	ErrAuthentication    = errors.New("authentication failed")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrEmptyTable        = errors.New("observation table is empty")
)

func (e MalformedRowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("row %d: %s %q: %s", e.Row, e.Field, e.Value, e.Reason)
}

// FileID returns the filename stem before the first dot, which the pipeline
// uses as the Drive file id.
func (o Observation) FileID() string {
	id, _, _ := strings.Cut(o.Filename, ".")
	return id
}

// Hour parses Time and returns the hour of day as written.
func (o Observation) Hour() (int, error) {
	t, err := ParseTime(o.Time)
	if err != nil {
		return 0, err
	}
	return t.Hour(), nil
}
