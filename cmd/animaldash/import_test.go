package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"animaldash/internal/storage"
)

func TestImportCSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "export.csv")
	dbPath := filepath.Join(dir, "db", "animaldash.db")
	data := "filename,prediction,time\n" +
		"1AbC.jpg,deer,2024-05-01 03:15:00\n" +
		"2XyZ.jpg,boar\n"
	if err := os.WriteFile(csvPath, []byte(data), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	n, warnings, err := importCSV(context.Background(), csvPath, dbPath, "Sheet1")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d rows, want 2", n)
	}
	if len(warnings) != 1 || warnings[0].Row != 3 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}

	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()

	got, err := repo.FetchRange(context.Background(), "", "Sheet1", "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	want := [][]string{
		{"filename", "prediction", "time"},
		{"1AbC.jpg", "deer", "2024-05-01 03:15:00"},
		{"2XyZ.jpg", "boar", ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestImportCSV_MissingFile(t *testing.T) {
	_, _, err := importCSV(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), ":memory:", "Sheet1")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
