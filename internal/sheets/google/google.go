package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"animaldash/internal/core"
	ports "animaldash/internal/sheets"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client reads cell values through the Sheets API. It is safe for
// concurrent use and meant to live for the whole process.
type Client struct {
	svc *gsheet.Service
}

// Ensure interface conformance
var _ ports.RangeFetcher = (*Client)(nil)

// New creates a read-only Sheets client from the given credentials.
// Credential problems are reported as core.ErrAuthentication.
func New(ctx context.Context, creds Credentials) (*Client, error) {
	return newClient(ctx, creds)
}

func newClient(ctx context.Context, creds Credentials, opts ...goption.ClientOption) (*Client, error) {
	// Token refreshes outlive the constructor's context.
	baseCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, newHTTPClientWithPooling())

	ts, err := creds.tokenSource(baseCtx)
	if err != nil {
		return nil, err
	}
	httpClient := oauth2.NewClient(baseCtx, authTokenSource{src: ts})

	opts = append([]goption.ClientOption{goption.WithHTTPClient(httpClient)}, opts...)
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "scope", gsheet.SpreadsheetsReadonlyScope)
	return NewWithService(svc), nil
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service) *Client {
	return &Client{svc: svc}
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// FetchRange implements ports.RangeFetcher with a single values.get call.
func (c *Client) FetchRange(ctx context.Context, spreadsheetID, sheetName, rangeSpec string) ([][]string, error) {
	if c.svc == nil {
		return nil, fmt.Errorf("%w: sheets service not initialized", core.ErrSourceUnavailable)
	}
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, fmt.Errorf("%w: missing spreadsheet id", core.ErrSourceUnavailable)
	}

	rng := ports.A1(sheetName, rangeSpec)
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyError(rng, err)
	}

	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = toStrings(row)
	}
	slog.DebugContext(ctx, "Fetched sheet range", "range", rng, "rows", len(out))
	return out, nil
}

// classifyError maps transport and API failures onto the two fatal
// categories callers care about.
func classifyError(rng string, err error) error {
	if errors.Is(err, core.ErrAuthentication) {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%w: read %s: %w", core.ErrAuthentication, rng, err)
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: refresh token for %s: %w", core.ErrAuthentication, rng, err)
	}
	return fmt.Errorf("%w: read %s: %w", core.ErrSourceUnavailable, rng, err)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
