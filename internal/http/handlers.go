package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

type appMetrics struct {
	startedAt time.Time

	created int64
	updated int64
	deleted int64
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().Data(map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.metrics.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"rate_limiter": "ok"}
	status, code := "ready", http.StatusOK

	if s.expenses == nil {
		checks["expenses"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["expenses"] = "ok"
	}

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["dependencies"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
			s.requestLogger(r).WarnContext(ctx, "Readiness check failed", "error", err)
		} else {
			checks["dependencies"] = "ok"
		}
	}

	NewResponse().Status(code).Data(map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.trace.GetMetrics()
	uptime := s.now().Sub(s.metrics.startedAt)

	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
	}
	gauge := func(name, help string, v float64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %.0f\n\n", name, help, name, name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter("http_client_errors_total", "Responses with a 4xx status", traceMetrics.ClientErrors)
	counter("http_server_errors_total", "Responses with a 5xx status", traceMetrics.ServerErrors)
	gauge("http_request_duration_avg_microseconds", "Average request duration", float64(traceMetrics.AverageResponseTime))
	counter("expenses_created_total", "Expenses created through the API", atomic.LoadInt64(&s.metrics.created))
	counter("expenses_updated_total", "Expenses updated through the API", atomic.LoadInt64(&s.metrics.updated))
	counter("expenses_deleted_total", "Expenses deleted through the API", atomic.LoadInt64(&s.metrics.deleted))
	counter("rate_limit_rejections_total", "Requests refused by the rate limiter", rateLimitMetrics.Rejected)
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", float64(rateLimitMetrics.Clients))
	counter("suspicious_requests_total", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	counter("invalid_forwarded_ip_total", "Forwarded client addresses that failed to parse", securityMetrics.InvalidIPAttempts)
	gauge("uptime_seconds", "Application uptime in seconds", uptime.Seconds())
}
