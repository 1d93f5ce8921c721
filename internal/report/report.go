// Package report renders the dashboard views as plain terminal text.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"animaldash/internal/core"
	"animaldash/internal/services"
)

var (
	colorAccent = lipgloss.Color("#2F7D4A")
	colorGray   = lipgloss.Color("#666666")
	colorYellow = lipgloss.Color("#FFAA00")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	sectionStyle = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(colorGray)
	barStyle     = lipgloss.NewStyle().Foreground(colorAccent)
	warnStyle    = lipgloss.NewStyle().Foreground(colorYellow)
)

// shades indexes heatmap cells by level; level 0 is blank.
var shades = []string{"·", "░", "▒", "▓", "█"}

// Options control the terminal layout.
type Options struct {
	Title         string
	TimeZoneLabel string
	BarWidth      int // cells for the longest bar
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "動物観測ダッシュボード"
	}
	if o.TimeZoneLabel == "" {
		o.TimeZoneLabel = "JST"
	}
	if o.BarWidth <= 0 {
		o.BarWidth = 30
	}
	return o
}

// Render writes the latest observation, the count per category and the
// hour-by-category grid to w.
func Render(w io.Writer, d services.Dashboard, opts Options) error {
	opts = opts.withDefaults()
	var b strings.Builder

	b.WriteString(titleStyle.Render(opts.Title))
	b.WriteString("  ")
	b.WriteString(labelStyle.Render(d.Source.A1()))
	b.WriteString("\n\n")

	latest, err := d.Summary.Latest()
	if err != nil {
		b.WriteString("まだデータがありません\n")
		_, werr := io.WriteString(w, b.String())
		return werr
	}

	rows := [][2]string{
		{"最新ファイル", latest.Filename},
		{"分類結果", latest.Prediction},
		{fmt.Sprintf("撮影日時 (%s)", opts.TimeZoneLabel), latest.Time},
		{"件数", fmt.Sprint(d.Summary.Total)},
	}
	labelWidth := 0
	for _, r := range rows {
		labelWidth = max(labelWidth, lipgloss.Width(r[0]))
	}
	for _, r := range rows {
		b.WriteString(labelStyle.Render(pad(r[0], labelWidth)))
		b.WriteString("  ")
		b.WriteString(r[1])
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("動物ごとの出現数"))
	b.WriteString("\n")
	writeBars(&b, d.Summary.ByCategory(), opts.BarWidth)

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("時間帯ヒートマップ"))
	b.WriteString("\n")
	writeHeatmap(&b, d.Summary.Heatmap())

	if n := len(d.Summary.Skipped); n > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("時刻を読み取れず除外: %d 行", n)))
		b.WriteString("\n")
	}
	if n := len(d.Table.Warnings); n > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("読み込み時の警告: %d 行", n)))
		b.WriteString("\n")
	}

	_, err = io.WriteString(w, b.String())
	return err
}

func writeBars(b *strings.Builder, counts []core.CategoryCount, width int) {
	if len(counts) == 0 {
		return
	}
	top := counts[0].Count
	nameWidth := 0
	for _, c := range counts {
		nameWidth = max(nameWidth, lipgloss.Width(c.Name))
	}
	for _, c := range counts {
		n := 0
		if top > 0 {
			n = max(1, (c.Count*width+top/2)/top)
		}
		fmt.Fprintf(b, "%s  %s %d\n", pad(c.Name, nameWidth), barStyle.Render(strings.Repeat("█", n)), c.Count)
	}
}

func writeHeatmap(b *strings.Builder, h core.Heatmap) {
	nameWidth := 0
	for _, r := range h.Rows {
		nameWidth = max(nameWidth, lipgloss.Width(r.Category))
	}

	// Hour ruler: tens digit on top, ones digit below.
	var tens, ones strings.Builder
	for hour := 0; hour < core.HoursPerDay; hour++ {
		tens.WriteString(fmt.Sprint(hour / 10))
		ones.WriteString(fmt.Sprint(hour % 10))
	}
	fmt.Fprintf(b, "%s  %s\n", pad("", nameWidth), labelStyle.Render(tens.String()))
	fmt.Fprintf(b, "%s  %s\n", pad("", nameWidth), labelStyle.Render(ones.String()))

	for _, r := range h.Rows {
		var cells strings.Builder
		for _, n := range r.Counts {
			cells.WriteString(shades[h.Level(n, len(shades)-1)])
		}
		fmt.Fprintf(b, "%s  %s\n", pad(r.Category, nameWidth), barStyle.Render(cells.String()))
	}
}

// pad right-pads s to width display cells; wide runes count double.
func pad(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}
