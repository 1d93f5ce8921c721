package http

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"animaldash/internal/core"
	"animaldash/internal/services"
)

// heatLevels is the number of shaded heatmap classes above zero.
const heatLevels = 5

type latestView struct {
	Filename   string
	Category   string
	Time       string
	FileID     string
	PreviewURL string
}

type logRow struct {
	Row        int
	Filename   string
	Prediction string
	Time       string
}

type barRow struct {
	Name  string
	Count int
	Width int
}

type heatCell struct {
	Hour  int
	Count int
	Level int
}

type heatRow struct {
	Category string
	Cells    []heatCell
}

type dashboardView struct {
	Title         string
	TimeZoneLabel string
	Source        string
	LoadedAt      string
	Empty         bool
	Total         int
	Latest        latestView
	Log           []logRow
	Bars          []barRow
	Hours         []int
	Heatmap       []heatRow
	HeatMax       int
	Skipped       []core.MalformedRowError
	Warnings      []core.MalformedRowError
}

func newDashboardView(d services.Dashboard, opts Options) dashboardView {
	v := dashboardView{
		Title:         opts.Title,
		TimeZoneLabel: opts.TimeZoneLabel,
		Source:        d.Source.A1(),
		LoadedAt:      d.LoadedAt.Format(time.DateTime),
		Empty:         d.Empty(),
	}
	if v.Empty {
		return v
	}

	v.Total = d.Summary.Total
	v.Skipped = d.Summary.Skipped
	v.Warnings = d.Table.Warnings

	if latest, err := d.Summary.Latest(); err == nil {
		v.Latest = latestView{
			Filename: latest.Filename,
			Category: latest.Prediction,
			Time:     latest.Time,
			FileID:   latest.FileID(),
		}
		if opts.DrivePreviewLinks {
			v.Latest.PreviewURL = drivePreviewURL(latest.FileID())
		}
	}

	v.Log = make([]logRow, len(d.Table.Rows))
	for i, o := range d.Table.Rows {
		v.Log[i] = logRow{Row: o.Row, Filename: o.Filename, Prediction: o.Prediction, Time: o.Time}
	}

	byCat := d.Summary.ByCategory()
	maxCount := 0
	if len(byCat) > 0 {
		maxCount = byCat[0].Count
	}
	for _, c := range byCat {
		v.Bars = append(v.Bars, barRow{Name: c.Name, Count: c.Count, Width: barWidth(c.Count, maxCount)})
	}

	v.Hours = make([]int, core.HoursPerDay)
	for h := range v.Hours {
		v.Hours[h] = h
	}
	hm := d.Summary.Heatmap()
	v.HeatMax = hm.Max
	for _, r := range hm.Rows {
		row := heatRow{Category: r.Category, Cells: make([]heatCell, core.HoursPerDay)}
		for h, n := range r.Counts {
			row.Cells[h] = heatCell{Hour: h, Count: n, Level: hm.Level(n, heatLevels)}
		}
		v.Heatmap = append(v.Heatmap, row)
	}
	return v
}

// barWidth returns a rounded percentage of top, at least 2 for any
// non-zero count so small bars stay visible.
func barWidth(count, top int) int {
	if top <= 0 || count <= 0 {
		return 0
	}
	width := (count*100 + top/2) / top
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}

func drivePreviewURL(fileID string) string {
	if fileID == "" {
		return ""
	}
	return "https://drive.google.com/file/d/" + url.PathEscape(fileID) + "/view"
}

// statusFor maps load failures onto response codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrAuthentication):
		return http.StatusInternalServerError, "authentication"
	case errors.Is(err, core.ErrSourceUnavailable):
		return http.StatusBadGateway, "source_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
