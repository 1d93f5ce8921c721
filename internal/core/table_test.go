package core

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeTable_HeaderOnlyIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		raw  [][]string
	}{
		{"nil", nil},
		{"no rows", [][]string{}},
		{"header only", [][]string{{"filename", "prediction", "time"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := DecodeTable(tt.raw)
			if !tbl.IsEmpty() || tbl.Len() != 0 {
				t.Fatalf("expected empty table, got %d rows", tbl.Len())
			}
			if _, err := tbl.Latest(); !errors.Is(err, ErrEmptyTable) {
				t.Fatalf("expected ErrEmptyTable, got %v", err)
			}
		})
	}
	if diff := cmp.Diff([]string{"filename", "prediction", "time"}, Columns); diff != "" {
		t.Fatalf("schema mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeTable_PositionalMapping(t *testing.T) {
	raw := [][]string{
		{"filename", "prediction", "time"},
		{"a.jpg", "deer", "2024-05-01 03:15"},
		{" b.jpg ", "fox ", "2024-05-01 14:02", "extra"},
	}
	tbl := DecodeTable(raw)
	want := []Observation{
		{Row: 2, Filename: "a.jpg", Prediction: "deer", Time: "2024-05-01 03:15"},
		{Row: 3, Filename: "b.jpg", Prediction: "fox", Time: "2024-05-01 14:02"},
	}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if len(tbl.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", tbl.Warnings)
	}
	latest, err := tbl.Latest()
	if err != nil || latest.Filename != "b.jpg" {
		t.Fatalf("latest = %+v, %v", latest, err)
	}
}

func TestDecodeTable_ShortAndBlankRows(t *testing.T) {
	raw := [][]string{
		{"filename", "prediction", "time"},
		{"a.jpg", "deer"},
		{},
		{"c.jpg"},
		{"d.jpg", "fox", "2024-05-01 10:00"},
	}
	tbl := DecodeTable(raw)

	want := []Observation{
		{Row: 2, Filename: "a.jpg", Prediction: "deer"},
		{Row: 4, Filename: "c.jpg"},
		{Row: 5, Filename: "d.jpg", Prediction: "fox", Time: "2024-05-01 10:00"},
	}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	wantWarn := []MalformedRowError{
		{Row: 2, Field: "time", Reason: "missing cell padded with empty value"},
		{Row: 3, Reason: "blank row dropped"},
		{Row: 4, Field: "prediction", Reason: "missing cell padded with empty value"},
	}
	if diff := cmp.Diff(wantWarn, tbl.Warnings); diff != "" {
		t.Fatalf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeTable_EmptyCellsAreBlank(t *testing.T) {
	raw := [][]string{
		{"filename", "prediction", "time"},
		{"", "", ""},
		{" ", "\t"},
		{"#1.jpg", "deer", "2024-05-01 03:15"},
		{"", "", "2024-05-01 04:00"},
	}
	tbl := DecodeTable(raw)

	want := []Observation{
		{Row: 4, Filename: "#1.jpg", Prediction: "deer", Time: "2024-05-01 03:15"},
		{Row: 5, Time: "2024-05-01 04:00"},
	}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	wantWarn := []MalformedRowError{
		{Row: 2, Reason: "blank row dropped"},
		{Row: 3, Reason: "blank row dropped"},
	}
	if diff := cmp.Diff(wantWarn, tbl.Warnings); diff != "" {
		t.Fatalf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestObservation_FileID(t *testing.T) {
	tests := map[string]string{
		"1AbCdEf.jpg":   "1AbCdEf",
		"clip.2024.mp4": "clip",
		"no-extension":  "no-extension",
		"":              "",
	}
	for in, want := range tests {
		if got := (Observation{Filename: in}).FileID(); got != want {
			t.Errorf("FileID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMalformedRowError_Error(t *testing.T) {
	e := MalformedRowError{Row: 7, Field: "time", Value: "not-a-date", Reason: "bad"}
	if got := e.Error(); got != `row 7: time "not-a-date": bad` {
		t.Fatalf("unexpected message: %s", got)
	}
	e = MalformedRowError{Row: 3, Reason: "blank row dropped"}
	if got := e.Error(); got != "row 3: blank row dropped" {
		t.Fatalf("unexpected message: %s", got)
	}
}
