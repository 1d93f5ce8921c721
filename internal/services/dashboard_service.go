package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"animaldash/internal/core"
	applog "animaldash/internal/log"
	"animaldash/internal/sheets"
)

// Dashboard is everything one page render needs, computed from a single
// fetch of the observation range.
type Dashboard struct {
	Source   sheets.Source
	Table    core.Table
	Summary  core.Summary
	LoadedAt time.Time
}

// Empty reports whether the source held no observations.
func (d Dashboard) Empty() bool {
	return d.Table.IsEmpty()
}

// DashboardService runs fetch, decode and aggregate for each request.
type DashboardService struct {
	fetcher sheets.RangeFetcher
	source  sheets.Source
	timeout time.Duration
	logger  *applog.Logger
	rows    *applog.StructuredLogger
	now     func() time.Time
}

func NewDashboardService(fetcher sheets.RangeFetcher, source sheets.Source, timeout time.Duration, logger *applog.Logger) *DashboardService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentDashboard)
	return &DashboardService{
		fetcher: fetcher,
		source:  source,
		timeout: timeout,
		logger:  logger,
		rows:    applog.NewStructuredLogger(logger),
		now:     time.Now,
	}
}

// Snapshot loads the observation table and summarizes it. Malformed rows
// are logged and kept in the result; only fetch failures are returned.
func (s *DashboardService) Snapshot(ctx context.Context) (Dashboard, error) {
	tbl, err := s.load(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	summary := core.Summarize(tbl)
	for _, w := range tbl.Warnings {
		s.rows.LogMalformedRow(ctx, applog.OpDecode, w.Row, w.Field, w.Value, w.Reason)
	}
	for _, sk := range summary.Skipped {
		s.rows.LogMalformedRow(ctx, applog.OpSummarize, sk.Row, sk.Field, sk.Value, "excluded from hour breakdown: "+sk.Reason)
	}

	s.logger.DebugContext(ctx, "Dashboard computed",
		applog.FieldRows, tbl.Len(),
		applog.FieldSkippedRows, len(summary.Skipped))

	return Dashboard{
		Source:   s.source,
		Table:    tbl,
		Summary:  summary,
		LoadedAt: s.now(),
	}, nil
}

// Check performs one fetch and reports whether the source is readable.
func (s *DashboardService) Check(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}

func (s *DashboardService) load(ctx context.Context) (core.Table, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := s.now()
	tbl, err := sheets.Load(ctx, s.fetcher, s.source)
	if err != nil {
		fields := applog.NewFields().
			WithSource(s.source.SpreadsheetID, s.source.SheetName, s.source.A1())
		s.rows.LogError(ctx, "Failed to load observations", err, errorType(err), applog.OpFetch, fields)
		return core.Table{}, fmt.Errorf("load observations: %w", err)
	}

	s.logger.DebugContext(ctx, "Observations loaded",
		applog.FieldRange, s.source.A1(),
		applog.FieldRows, tbl.Len(),
		applog.FieldDuration, s.now().Sub(start).Milliseconds())
	return tbl, nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, core.ErrAuthentication):
		return applog.ErrorTypeAuth
	case errors.Is(err, context.DeadlineExceeded):
		return applog.ErrorTypeTimeout
	case errors.Is(err, core.ErrSourceUnavailable):
		return applog.ErrorTypeNetwork
	default:
		return applog.ErrorTypeInternal
	}
}
