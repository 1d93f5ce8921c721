package core

import "strings"

// Table is the ordered observation log, oldest first.
type Table struct {
	Rows []Observation
	// Warnings lists rows that were padded or dropped while decoding.
	Warnings []MalformedRowError
}

// DecodeTable converts raw sheet values into a Table. The first row is the
// header and is never treated as data; fewer than two raw rows yield an
// empty table.
//
// Rows shorter than the schema are padded with empty cells and reported.
// Rows whose cells are all empty (blank sheet rows, or ",," in CSV) are
// dropped and reported.
// Cells past the third column are ignored.
func DecodeTable(raw [][]string) Table {
	var t Table
	if len(raw) < 2 {
		return t
	}
	t.Rows = make([]Observation, 0, len(raw)-1)
	for i, cells := range raw[1:] {
		rowNum := i + 2
		if isBlank(cells) {
			t.Warnings = append(t.Warnings, MalformedRowError{Row: rowNum, Reason: "blank row dropped"})
			continue
		}
		if len(cells) < len(Columns) {
			t.Warnings = append(t.Warnings, MalformedRowError{
				Row:    rowNum,
				Field:  Columns[len(cells)],
				Reason: "missing cell padded with empty value",
			})
		}
		t.Rows = append(t.Rows, Observation{
			Row:        rowNum,
			Filename:   cell(cells, 0),
			Prediction: cell(cells, 1),
			Time:       cell(cells, 2),
		})
	}
	return t
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(cells []string, idx int) string {
	if idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

// Len returns the number of observations.
func (t Table) Len() int { return len(t.Rows) }

// IsEmpty reports whether the table holds no observations.
func (t Table) IsEmpty() bool { return len(t.Rows) == 0 }

// Latest returns the last observation in sheet order.
func (t Table) Latest() (Observation, error) {
	if t.IsEmpty() {
		return Observation{}, ErrEmptyTable
	}
	return t.Rows[len(t.Rows)-1], nil
}
