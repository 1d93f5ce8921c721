package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"time"

	"animaldash/internal/core"
	applog "animaldash/internal/log"
	"animaldash/internal/services"
)

var templateFuncs = template.FuncMap{
	"heatClass": func(level int) string { return "heat-" + strconv.Itoa(level) },
}

// handleDashboard renders the full page from a single fetch.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.snapshot(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "dashboard.html", newDashboardView(d, s.opts))
}

func (s *Server) snapshot(ctx context.Context) (services.Dashboard, error) {
	s.metrics.loads.Add(1)
	d, err := s.dashboard.Snapshot(ctx)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrAuthentication):
			s.metrics.authErrors.Add(1)
		case errors.Is(err, core.ErrSourceUnavailable):
			s.metrics.sourceErrors.Add(1)
		}
	}
	return d, err
}

// render buffers the template so a failure mid-way still yields a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			"template", name,
			applog.FieldOperation, applog.OpRender,
			applog.FieldErrorType, applog.ErrorTypeInternal)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusFor(err)
	msg := "スプレッドシートに接続できません"
	if kind == "authentication" {
		msg = "Google への認証に失敗しました"
	}
	s.render(w, r, status, "error.html", struct {
		Title   string
		Status  int
		Kind    string
		Message string
	}{s.opts.Title, status, kind, msg})
}

type observationJSON struct {
	Row        int    `json:"row"`
	Filename   string `json:"filename"`
	Prediction string `json:"prediction"`
	Time       string `json:"time"`
	FileID     string `json:"file_id,omitempty"`
}

type categoryCountJSON struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type hourCountJSON struct {
	Hour     int    `json:"hour"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type rowIssueJSON struct {
	Row    int    `json:"row"`
	Field  string `json:"field,omitempty"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

type summaryJSON struct {
	Source             string              `json:"source"`
	LoadedAt           time.Time           `json:"loaded_at"`
	TimeZone           string              `json:"time_zone"`
	Total              int                 `json:"total"`
	Latest             *observationJSON    `json:"latest"`
	CategoryCounts     []categoryCountJSON `json:"category_counts"`
	HourCategoryCounts []hourCountJSON     `json:"hour_category_counts"`
	Skipped            []rowIssueJSON      `json:"skipped"`
	Warnings           []rowIssueJSON      `json:"warnings"`
}

func newSummaryJSON(d services.Dashboard, tz string) summaryJSON {
	out := summaryJSON{
		Source:             d.Source.A1(),
		LoadedAt:           d.LoadedAt,
		TimeZone:           tz,
		Total:              d.Summary.Total,
		CategoryCounts:     []categoryCountJSON{},
		HourCategoryCounts: []hourCountJSON{},
		Skipped:            issuesJSON(d.Summary.Skipped),
		Warnings:           issuesJSON(d.Table.Warnings),
	}
	if latest, err := d.Summary.Latest(); err == nil {
		out.Latest = &observationJSON{
			Row:        latest.Row,
			Filename:   latest.Filename,
			Prediction: latest.Prediction,
			Time:       latest.Time,
			FileID:     latest.FileID(),
		}
	}
	for _, c := range d.Summary.ByCategory() {
		out.CategoryCounts = append(out.CategoryCounts, categoryCountJSON{Category: c.Name, Count: c.Count})
	}
	for k, n := range d.Summary.HourCategoryCounts {
		out.HourCategoryCounts = append(out.HourCategoryCounts, hourCountJSON{Hour: k.Hour, Category: k.Category, Count: n})
	}
	sort.Slice(out.HourCategoryCounts, func(i, j int) bool {
		a, b := out.HourCategoryCounts[i], out.HourCategoryCounts[j]
		if a.Hour != b.Hour {
			return a.Hour < b.Hour
		}
		return a.Category < b.Category
	})
	return out
}

func issuesJSON(in []core.MalformedRowError) []rowIssueJSON {
	out := make([]rowIssueJSON, len(in))
	for i, e := range in {
		out[i] = rowIssueJSON{Row: e.Row, Field: e.Field, Value: e.Value, Reason: e.Reason}
	}
	return out
}

// handleSummaryAPI serves the same three views as JSON.
func (s *Server) handleSummaryAPI(w http.ResponseWriter, r *http.Request) {
	d, err := s.snapshot(r.Context())
	if err != nil {
		status, kind := statusFor(err)
		writeJSON(w, status, map[string]string{"error": kind})
		return
	}
	writeJSON(w, http.StatusOK, newSummaryJSON(d, s.opts.TimeZoneLabel))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.rateLimited.Add(1)
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldPath, r.URL.Path)
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.metrics.started).Round(time.Second).String(),
	})
}

// handleReady reports ready only when the source can be read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.ReadyTimeout)
	defer cancel()

	if err := s.dashboard.Check(ctx); err != nil {
		_, kind := statusFor(err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"source": kind,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "source": "ok"})
}

// handleMetrics exposes counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	activeClients := 0
	if s.rateLimiter != nil {
		activeClients = s.rateLimiter.ActiveClients()
	}

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", s.tracer.TotalRequests())

	fmt.Fprintf(w, "# HELP dashboard_loads_total Dashboard loads attempted\n")
	fmt.Fprintf(w, "# TYPE dashboard_loads_total counter\n")
	fmt.Fprintf(w, "dashboard_loads_total %d\n\n", s.metrics.loads.Load())

	fmt.Fprintf(w, "# HELP dashboard_load_errors_total Failed dashboard loads by cause\n")
	fmt.Fprintf(w, "# TYPE dashboard_load_errors_total counter\n")
	fmt.Fprintf(w, "dashboard_load_errors_total{kind=\"authentication\"} %d\n", s.metrics.authErrors.Load())
	fmt.Fprintf(w, "dashboard_load_errors_total{kind=\"source_unavailable\"} %d\n\n", s.metrics.sourceErrors.Load())

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", s.metrics.rateLimited.Load())

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", activeClients)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.metrics.started).Seconds())
}
