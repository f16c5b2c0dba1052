// Package trace assigns every request an id, puts a request-scoped logger in
// its context and keeps coarse request counters for the metrics endpoint.
package trace

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"finanzapp/internal/log"
)

type ctxKey struct{}

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

// Incoming ids are reused only when they look harmless in a log line.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

type Middleware struct {
	clientIP func(*http.Request) string
	logger   *log.Logger

	total        atomic.Int64
	clientErrors atomic.Int64
	serverErrors atomic.Int64
	avgMicros    atomic.Int64
}

// Metrics is a snapshot of the request counters.
type Metrics struct {
	TotalRequests       int64
	ClientErrors        int64
	ServerErrors        int64
	AverageResponseTime int64 // microseconds
}

func NewMiddleware(clientIP func(*http.Request) string, logger *log.Logger) *Middleware {
	return &Middleware{
		clientIP: clientIP,
		logger:   logger.WithComponent(log.ComponentTrace),
	}
}

// Middleware wraps next with request id propagation and completion logging.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var ip string
		if m.clientIP != nil {
			ip = m.clientIP(r)
		}

		id := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(id) {
			id = GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, id)

		reqLogger := m.logger.With(log.FieldRequestID, id)
		ctx := log.NewContext(WithRequestID(r.Context(), id), reqLogger)
		r = r.WithContext(ctx)

		reqLogger.DebugContext(ctx, "HTTP request started",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, ip,
			"content_length", r.ContentLength)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		m.observe(rec.status, elapsed)
		log.NewStructuredLogger(reqLogger).LogHTTPEnd(ctx, r, rec.status, elapsed.Milliseconds(), ip)
	})
}

func (m *Middleware) observe(status int, elapsed time.Duration) {
	n := m.total.Add(1)
	switch {
	case status >= 500:
		m.serverErrors.Add(1)
	case status >= 400:
		m.clientErrors.Add(1)
	}

	// Running mean; concurrent updates retry on conflict.
	us := elapsed.Microseconds()
	for {
		old := m.avgMicros.Load()
		if m.avgMicros.CompareAndSwap(old, old+(us-old)/n) {
			return
		}
	}
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:       m.total.Load(),
		ClientErrors:        m.clientErrors.Load(),
		ServerErrors:        m.serverErrors.Load(),
		AverageResponseTime: m.avgMicros.Load(),
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status, s.wroteHeader = code, true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

// GenerateRequestID returns "req_" followed by 16 random hex digits.
func GenerateRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// GetRequestID returns the id stored by the middleware, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
