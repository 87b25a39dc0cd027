package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

type appMetrics struct {
	started       time.Time
	mutations     int64
	logins        int64
	loginFailures int64
}

func newAppMetrics() *appMetrics {
	return &appMetrics{started: time.Now()}
}

func (m *appMetrics) mutation() { atomic.AddInt64(&m.mutations, 1) }

func (m *appMetrics) login(ok bool) {
	if ok {
		atomic.AddInt64(&m.logins, 1)
	} else {
		atomic.AddInt64(&m.loginFailures, 1)
	}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.started).Round(time.Second).String(),
	})
}

// handleReady checks the database and the sync outbox.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if err := s.svc.Storage().Ping(ctx); err != nil {
		checks["database"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if stats, err := s.svc.Storage().GetSyncQueueStats(ctx); err != nil {
		checks["sync_queue"] = fmt.Sprintf("failed: %v", err)
	} else {
		checks["sync_queue"] = map[string]any{
			"pending": stats.Pending,
			"failed":  stats.Failed,
		}
	}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	cacheStats := s.lists.Stats()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_client_errors_total", "counter", "Responses with a 4xx status", traceMetrics.ClientErrors)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "gauge", "Running average response time", traceMetrics.AverageResponseTime)
	metric("record_mutations_total", "counter", "Successful create, update and delete calls", atomic.LoadInt64(&s.metrics.mutations))
	metric("logins_total", "counter", "Successful logins", atomic.LoadInt64(&s.metrics.logins))
	metric("login_failures_total", "counter", "Rejected logins", atomic.LoadInt64(&s.metrics.loginFailures))
	metric("cache_hits_total", "counter", "List cache hits", cacheStats.Hits)
	metric("cache_misses_total", "counter", "List cache misses", cacheStats.Misses)
	metric("cache_entries", "gauge", "Current list cache entries", cacheStats.Size)
	metric("cache_evictions_total", "counter", "List cache entries evicted for space", cacheStats.Evictions)
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.metrics.started).Seconds()))
}
