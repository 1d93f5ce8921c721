package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	applog "animaldash/internal/log"
	"animaldash/internal/middleware/ratelimit"
	"animaldash/internal/middleware/security"
	"animaldash/internal/middleware/trace"
	"animaldash/internal/services"
	appweb "animaldash/web"
)

// DashboardProvider computes the dashboard for one request.
type DashboardProvider interface {
	Snapshot(ctx context.Context) (services.Dashboard, error)
	Check(ctx context.Context) error
}

// Options tune presentation and limits. Zero values are replaced by
// DefaultOptions.
type Options struct {
	Title              string
	TimeZoneLabel      string
	DrivePreviewLinks  bool
	RateLimitPerMinute int // 0 disables rate limiting
	TrustedProxies     []string
	ReadyTimeout       time.Duration
	Logger             *applog.Logger
}

// DefaultOptions returns the presentation defaults.
func DefaultOptions() Options {
	return Options{
		Title:              "動物観測ダッシュボード",
		TimeZoneLabel:      "JST",
		RateLimitPerMinute: 60,
		ReadyTimeout:       5 * time.Second,
	}
}

type Server struct {
	http.Server
	templates *template.Template
	dashboard DashboardProvider
	opts      Options
	logger    *applog.Logger

	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	metrics     *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	started      time.Time
	loads        atomic.Int64
	authErrors   atomic.Int64
	sourceErrors atomic.Int64
	rateLimited  atomic.Int64
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, dash DashboardProvider, opts Options) (*Server, error) {
	def := DefaultOptions()
	if opts.Title == "" {
		opts.Title = def.Title
	}
	if opts.TimeZoneLabel == "" {
		opts.TimeZoneLabel = def.TimeZoneLabel
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = def.ReadyTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	mux := http.NewServeMux()
	s := &Server{
		templates: t,
		dashboard: dash,
		opts:      opts,
		logger:    logger.WithComponent(applog.ComponentHTTP),
		metrics:   &appMetrics{started: time.Now()},
	}

	clientIP := security.NewClientIPResolver()
	for _, cidr := range opts.TrustedProxies {
		if err := clientIP.AddTrustedProxy(cidr); err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
	}
	if len(opts.TrustedProxies) > 0 {
		logger.WithComponent(applog.ComponentSecurity).Info("Trusting forwarded client IPs",
			"trusted_proxies", opts.TrustedProxies)
	}
	s.tracer = trace.NewMiddleware(logger, clientIP.ClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	limited := func(h http.Handler) http.Handler { return h }
	if opts.RateLimitPerMinute > 0 {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
		limited = s.rateLimiter.Middleware(clientIP.ClientIP, s.handleRateLimited)
	}

	// Static assets (served from embedded FS)
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(http.StripPrefix("/static/", http.FileServer(http.FS(sub)))))

	mux.Handle("GET /{$}", limited(security.NoStore(http.HandlerFunc(s.handleDashboard))))
	mux.Handle("GET /api/summary", limited(security.NoStore(http.HandlerFunc(s.handleSummaryAPI))))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(headers.Middleware(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
	}
	return s, nil
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Close releases background routines without waiting for connections.
// Tests use it on servers that never listened.
func (s *Server) Close() error {
	return s.Shutdown(context.Background())
}
