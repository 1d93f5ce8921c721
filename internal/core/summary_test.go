package core

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func scenarioB() Table {
	return DecodeTable([][]string{
		{"filename", "prediction", "time"},
		{"a.jpg", "deer", "2024-05-01 03:15"},
		{"b.jpg", "deer", "2024-05-01 14:02"},
		{"c.jpg", "fox", "2024-05-01 14:40"},
	})
}

func TestSummarize_ScenarioB(t *testing.T) {
	s := Summarize(scenarioB())

	if diff := cmp.Diff(map[string]int{"deer": 2, "fox": 1}, s.CategoryCounts); diff != "" {
		t.Fatalf("category counts (-want +got):\n%s", diff)
	}
	wantHours := map[HourCategory]int{
		{Hour: 3, Category: "deer"}:  1,
		{Hour: 14, Category: "deer"}: 1,
		{Hour: 14, Category: "fox"}:  1,
	}
	if diff := cmp.Diff(wantHours, s.HourCategoryCounts); diff != "" {
		t.Fatalf("hour counts (-want +got):\n%s", diff)
	}
	latest, err := s.Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Filename != "c.jpg" {
		t.Fatalf("latest filename = %q", latest.Filename)
	}
	if len(s.Skipped) != 0 {
		t.Fatalf("unexpected skipped rows: %v", s.Skipped)
	}
}

func TestSummarize_ScenarioC_UnparsableTime(t *testing.T) {
	tbl := DecodeTable([][]string{
		{"filename", "prediction", "time"},
		{"a.jpg", "deer", "2024-05-01 03:15"},
		{"x.jpg", "boar", "not-a-date"},
		{"c.jpg", "fox", "2024-05-01 14:40"},
	})
	s := Summarize(tbl)

	if got := sum(s.CategoryCounts); got != 3 {
		t.Fatalf("category total = %d, want 3", got)
	}
	if got := sum(s.HourCategoryCounts); got != 2 {
		t.Fatalf("hour total = %d, want 2", got)
	}
	if len(s.Skipped) != 1 || s.Skipped[0].Row != 3 || s.Skipped[0].Value != "not-a-date" {
		t.Fatalf("unexpected skipped: %+v", s.Skipped)
	}
	if s.CategoryCounts["boar"] != 1 {
		t.Fatalf("malformed row must still count toward its category")
	}
}

func TestSummarize_Properties(t *testing.T) {
	tables := map[string]Table{
		"empty":     {},
		"scenarioB": scenarioB(),
		"padded": DecodeTable([][]string{
			{"filename", "prediction", "time"},
			{"a.jpg", "deer"},
			{"b.jpg", "deer", "2024-05-01T23:59:00"},
			{"c.jpg", "", "2024/05/01 00:01"},
		}),
	}
	for name, tbl := range tables {
		t.Run(name, func(t *testing.T) {
			s := Summarize(tbl)
			if got := sum(s.CategoryCounts); got != tbl.Len() {
				t.Fatalf("sum(categoryCounts) = %d, len(table) = %d", got, tbl.Len())
			}
			hours := sum(s.HourCategoryCounts)
			if hours > tbl.Len() {
				t.Fatalf("sum(hourCategoryCounts) = %d > len(table) = %d", hours, tbl.Len())
			}
			if (hours == tbl.Len()) != (len(s.Skipped) == 0) {
				t.Fatalf("equality must hold iff nothing was skipped: hours=%d len=%d skipped=%d", hours, tbl.Len(), len(s.Skipped))
			}
			for k := range s.HourCategoryCounts {
				if k.Hour < 0 || k.Hour > 23 {
					t.Fatalf("hour out of range: %d", k.Hour)
				}
			}

			again := Summarize(tbl)
			if diff := cmp.Diff(s, again, cmp.AllowUnexported(Summary{})); diff != "" {
				t.Fatalf("summarize is not idempotent (-first +second):\n%s", diff)
			}
		})
	}
}

func TestSummarize_DoesNotMutateInput(t *testing.T) {
	tbl := scenarioB()
	before := append([]Observation(nil), tbl.Rows...)
	_ = Summarize(tbl)
	if diff := cmp.Diff(before, tbl.Rows); diff != "" {
		t.Fatalf("input mutated (-before +after):\n%s", diff)
	}
}

func TestSummary_LatestOnEmpty(t *testing.T) {
	s := Summarize(Table{})
	if _, err := s.Latest(); !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
	if s.Total != 0 || len(s.CategoryCounts) != 0 || len(s.HourCategoryCounts) != 0 {
		t.Fatalf("expected zero summary, got %+v", s)
	}
}

func TestSummary_ByCategoryOrdering(t *testing.T) {
	s := Summary{CategoryCounts: map[string]int{"fox": 1, "deer": 3, "boar": 1, "bear": 2}}
	want := []CategoryCount{
		{Name: "deer", Count: 3},
		{Name: "bear", Count: 2},
		{Name: "boar", Count: 1},
		{Name: "fox", Count: 1},
	}
	if diff := cmp.Diff(want, s.ByCategory()); diff != "" {
		t.Fatalf("ordering (-want +got):\n%s", diff)
	}
}

func TestSummary_Heatmap(t *testing.T) {
	tbl := DecodeTable([][]string{
		{"filename", "prediction", "time"},
		{"a.jpg", "deer", "2024-05-01 03:15"},
		{"b.jpg", "deer", "2024-05-02 03:45"},
		{"c.jpg", "fox", "2024-05-01 14:40"},
		{"d.jpg", "owl", "garbage"},
	})
	h := Summarize(tbl).Heatmap()

	gotNames := make([]string, 0, len(h.Rows))
	for _, r := range h.Rows {
		gotNames = append(gotNames, r.Category)
	}
	if diff := cmp.Diff([]string{"deer", "fox", "owl"}, gotNames); diff != "" {
		t.Fatalf("heatmap categories (-want +got):\n%s", diff)
	}
	if h.Max != 2 {
		t.Fatalf("max = %d, want 2", h.Max)
	}
	if h.Rows[0].Counts[3] != 2 || h.Rows[1].Counts[14] != 1 {
		t.Fatalf("unexpected cells: %+v", h.Rows)
	}
	if h.Rows[2].Counts != ([HoursPerDay]int{}) {
		t.Fatalf("owl row should be all zeros: %v", h.Rows[2].Counts)
	}
}

func TestSummary_HeatmapIgnoresUnknownKeys(t *testing.T) {
	s := Summary{
		CategoryCounts: map[string]int{"deer": 1},
		HourCategoryCounts: map[HourCategory]int{
			{Hour: 5, Category: "deer"}:  1,
			{Hour: 30, Category: "deer"}: 4,
			{Hour: 5, Category: "ghost"}: 9,
		},
	}
	h := s.Heatmap()
	if h.Max != 1 {
		t.Fatalf("max = %d, want 1", h.Max)
	}
	opt := cmpopts.EquateEmpty()
	if diff := cmp.Diff([]HeatmapRow{{Category: "deer", Counts: [HoursPerDay]int{5: 1}}}, h.Rows, opt); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}
}

func sum[K comparable](m map[K]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

func TestHeatmap_Level(t *testing.T) {
	h := Heatmap{Max: 10}
	tests := []struct{ n, levels, want int }{
		{0, 5, 0},
		{1, 5, 1},
		{5, 5, 3},
		{10, 5, 5},
		{20, 5, 5},
		{3, 0, 0},
	}
	for _, tt := range tests {
		if got := h.Level(tt.n, tt.levels); got != tt.want {
			t.Errorf("Level(%d, %d) = %d, want %d", tt.n, tt.levels, got, tt.want)
		}
	}
	if got := (Heatmap{}).Level(3, 5); got != 0 {
		t.Errorf("empty heatmap level = %d, want 0", got)
	}
}
