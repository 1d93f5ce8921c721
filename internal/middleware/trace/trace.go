package trace

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "animaldash/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// HeaderRequestID carries the request ID in and out.
	HeaderRequestID = "X-Request-ID"
)

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Middleware assigns a request ID, puts a request-scoped logger in the
// context and logs each completed request.
type Middleware struct {
	logger    *applog.Logger
	extractIP func(*http.Request) string
	total     atomic.Int64
}

// NewMiddleware creates a new trace middleware
func NewMiddleware(logger *applog.Logger, extractIP func(*http.Request) string) *Middleware {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentTrace)
	return &Middleware{
		logger:    logger,
		extractIP: extractIP,
	}
}

// Middleware returns HTTP middleware for request tracing
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	logged := applog.Middleware(m.logger)(
		applog.RequestIDMiddleware(func(r *http.Request) string { return GetRequestID(r.Context()) })(
			m.logCompleted(next)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.total.Add(1)

		// Reuse a well-formed upstream ID so proxy and app logs line up
		requestID := r.Header.Get(HeaderRequestID)
		if !validRequestID.MatchString(requestID) {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		logged.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) logCompleted(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		ctx := r.Context()
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

// TotalRequests returns the number of requests seen so far.
func (m *Middleware) TotalRequests() int64 {
	return m.total.Load()
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + id.String()
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
