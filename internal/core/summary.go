package core

import "sort"

// HoursPerDay is the width of the heatmap.
const HoursPerDay = 24

type (
	// CategoryCount represents a number of observations for one category.
	CategoryCount struct {
		Name  string
		Count int
	}

	// Summary holds the views derived from one Table.
	Summary struct {
		Total              int
		CategoryCounts     map[string]int
		HourCategoryCounts map[HourCategory]int
		// Skipped lists rows left out of HourCategoryCounts because their
		// time did not parse. They still count in CategoryCounts.
		Skipped []MalformedRowError

		latest *Observation
	}

	// HeatmapRow is one category line of the hour-by-category grid.
	HeatmapRow struct {
		Category string
		Counts   [HoursPerDay]int
	}

	// Heatmap is the hour-by-category grid, categories sorted by label.
	Heatmap struct {
		Rows []HeatmapRow
		Max  int
	}
)

// Summarize derives the latest observation, counts by category and counts by
// hour and category. It does not modify t.
func Summarize(t Table) Summary {
	s := Summary{
		Total:              len(t.Rows),
		CategoryCounts:     make(map[string]int),
		HourCategoryCounts: make(map[HourCategory]int),
	}
	for _, o := range t.Rows {
		s.CategoryCounts[o.Prediction]++

		hour, err := o.Hour()
		if err != nil {
			s.Skipped = append(s.Skipped, MalformedRowError{
				Row:    o.Row,
				Field:  "time",
				Value:  o.Time,
				Reason: err.Error(),
			})
			continue
		}
		s.HourCategoryCounts[HourCategory{Hour: hour, Category: o.Prediction}]++
	}
	if len(t.Rows) > 0 {
		latest := t.Rows[len(t.Rows)-1]
		s.latest = &latest
	}
	return s
}

// Latest returns the most recent observation. Callers must check for an
// empty table first; on an empty table it returns ErrEmptyTable.
func (s Summary) Latest() (Observation, error) {
	if s.latest == nil {
		return Observation{}, ErrEmptyTable
	}
	return *s.latest, nil
}

// ByCategory returns category counts sorted by count, then by name.
func (s Summary) ByCategory() []CategoryCount {
	list := make([]CategoryCount, 0, len(s.CategoryCounts))
	for name, n := range s.CategoryCounts {
		list = append(list, CategoryCount{Name: name, Count: n})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		return list[i].Name < list[j].Name
	})
	return list
}

// Heatmap lays HourCategoryCounts out as a grid. Every category seen in
// CategoryCounts gets a row, even if none of its times parsed.
func (s Summary) Heatmap() Heatmap {
	names := make([]string, 0, len(s.CategoryCounts))
	for name := range s.CategoryCounts {
		names = append(names, name)
	}
	sort.Strings(names)

	index := make(map[string]int, len(names))
	h := Heatmap{Rows: make([]HeatmapRow, len(names))}
	for i, name := range names {
		index[name] = i
		h.Rows[i].Category = name
	}
	for k, n := range s.HourCategoryCounts {
		if k.Hour < 0 || k.Hour >= HoursPerDay {
			continue
		}
		i, ok := index[k.Category]
		if !ok {
			continue
		}
		h.Rows[i].Counts[k.Hour] += n
		if h.Rows[i].Counts[k.Hour] > h.Max {
			h.Max = h.Rows[i].Counts[k.Hour]
		}
	}
	return h
}

// Level buckets n into 0..levels relative to top, rounding up so any
// non-zero count gets at least level 1.
func (h Heatmap) Level(n, levels int) int {
	if n <= 0 || h.Max <= 0 || levels <= 0 {
		return 0
	}
	level := (n*levels + h.Max - 1) / h.Max
	if level > levels {
		level = levels
	}
	return level
}
