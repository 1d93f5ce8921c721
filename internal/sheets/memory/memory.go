package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"animaldash/internal/core"
	ports "animaldash/internal/sheets"
)

// SeedFile is the CSV read by NewFromFiles.
const SeedFile = "observations.csv"

// Store is an in-process observation sheet. Every sheet name resolves to
// the same rows and the range is not interpreted.
type Store struct {
	mu   sync.Mutex
	rows [][]string
}

var _ ports.RangeFetcher = (*Store)(nil)

// New returns a store holding the header followed by the given rows.
func New(rows ...[]string) *Store {
	s := &Store{rows: [][]string{append([]string(nil), core.Columns...)}}
	for _, r := range rows {
		s.rows = append(s.rows, append([]string(nil), r...))
	}
	return s
}

// NewFromFiles seeds a store from base/observations.csv. A missing file
// yields a store holding only the header.
func NewFromFiles(base string) (*Store, error) {
	f, err := os.Open(filepath.Join(base, SeedFile))
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	return NewFromCSV(f)
}

// NewFromCSV seeds a store from CSV text. The first record is the header
// and is replaced by the canonical column names; ragged records are kept
// as-is so they decode the same way short sheet rows do.
func NewFromCSV(r io.Reader) (*Store, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read seed csv: %w", err)
	}
	if len(records) == 0 {
		return New(), nil
	}
	return New(records[1:]...), nil
}

// FetchRange returns a copy of all rows, header included.
func (s *Store) FetchRange(ctx context.Context, _, _, _ string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSourceUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}
