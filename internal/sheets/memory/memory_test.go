package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"animaldash/internal/core"
	ports "animaldash/internal/sheets"

	"github.com/google/go-cmp/cmp"
)

func TestStoreFetch(t *testing.T) {
	s := New(
		[]string{"a.jpg", "deer", "2024-05-01 03:15"},
		[]string{"b.jpg", "fox", "2024-05-01 14:40"},
	)

	rows, err := s.FetchRange(context.Background(), "ignored", "Sheet1", "A:C")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	want := [][]string{
		{"filename", "prediction", "time"},
		{"a.jpg", "deer", "2024-05-01 03:15"},
		{"b.jpg", "fox", "2024-05-01 14:40"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	// Returned rows are a copy.
	rows[1][1] = "changed"
	again, _ := s.FetchRange(context.Background(), "", "", "")
	if again[1][1] != "deer" {
		t.Fatalf("store mutated through returned slice: %v", again[1])
	}
}

func TestStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().FetchRange(ctx, "", "", "")
	if !errors.Is(err, core.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()

	// No seed file -> header only
	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("missing seed: %v", err)
	}
	tbl, err := ports.Load(context.Background(), s, ports.Source{SheetName: "Sheet1"})
	if err != nil || !tbl.IsEmpty() {
		t.Fatalf("expected empty table, got %d rows, %v", tbl.Len(), err)
	}

	seed := "filename,prediction,time\na.jpg, deer,2024-05-01 03:15\nb.jpg,fox\n"
	if err := os.WriteFile(filepath.Join(dir, SeedFile), []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, err = NewFromFiles(dir)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	tbl, err = ports.Load(context.Background(), s, ports.Source{SheetName: "Sheet1"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	if tbl.Rows[0].Prediction != "deer" {
		t.Fatalf("unexpected first row: %+v", tbl.Rows[0])
	}
	if len(tbl.Warnings) != 1 || tbl.Warnings[0].Row != 3 {
		t.Fatalf("expected one padding warning for row 3, got %+v", tbl.Warnings)
	}
}

func TestNewFromCSV_HashAndEmptyRecords(t *testing.T) {
	seed := "filename,prediction,time\n#cam2.jpg,boar,2024-05-01 02:00\n,,\nc.jpg,deer,2024-05-01 05:00\n"
	s, err := NewFromCSV(strings.NewReader(seed))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	tbl, err := ports.Load(context.Background(), s, ports.Source{SheetName: "Sheet1"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []core.Observation{
		{Row: 2, Filename: "#cam2.jpg", Prediction: "boar", Time: "2024-05-01 02:00"},
		{Row: 4, Filename: "c.jpg", Prediction: "deer", Time: "2024-05-01 05:00"},
	}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	wantWarn := []core.MalformedRowError{{Row: 3, Reason: "blank row dropped"}}
	if diff := cmp.Diff(wantWarn, tbl.Warnings); diff != "" {
		t.Fatalf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestNewFromCSV_Malformed(t *testing.T) {
	_, err := NewFromCSV(strings.NewReader("filename,prediction,time\n\"unterminated,deer,x\n"))
	if err == nil {
		t.Fatal("expected csv error")
	}
}
