package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	ready := true
	checks := make(map[string]any)

	if s.deps.ReadyCheck == nil {
		checks["store"] = "ok"
	} else if err := s.deps.ReadyCheck(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		ready = false
	} else {
		checks["store"] = "ok"
	}

	checks["sheets"] = configured(s.deps.Sheets != nil)
	checks["advisor"] = configured(s.deps.Advisor != nil && s.deps.Advisor.Configured())
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	b := NewJSONResponse().Status(code).Data(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
	if !ready {
		b.envelope.Success = false
		b.envelope.Error = "Service not ready"
	}
	b.Write(w)
}

func configured(ok bool) string {
	if ok {
		return "ok"
	}
	return "not_configured"
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	w.WriteHeader(http.StatusOK)

	// Prometheus-like text format
	metric := func(name, help, kind string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", name, help, name, kind, name, v)
	}
	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_response_time_microseconds", "Average response time", "gauge", traceMetrics.AverageResponseTime)
	metric("transactions_created_total", "Transactions created through the API", "counter", atomic.LoadInt64(&s.appMetrics.created))
	metric("transactions_imported_total", "Transactions stored by CSV imports", "counter", atomic.LoadInt64(&s.appMetrics.imported))
	metric("exports_total", "CSV and Sheets exports served", "counter", atomic.LoadInt64(&s.appMetrics.exports))
	metric("advisor_requests_total", "Advisor chat requests", "counter", atomic.LoadInt64(&s.appMetrics.advisorCalls))
	metric("security_suspicious_requests_total", "Requests matching probe patterns", "counter", securityMetrics.SuspiciousRequests)
	metric("security_invalid_ip_total", "Forwarding headers carrying an invalid address", "counter", securityMetrics.InvalidIPAttempts)
	metric("rate_limit_rejections_total", "Requests rejected by the rate limiter", "counter", s.rateLimiter.Stats().Rejected)
	metric("rate_limit_active_clients", "Clients tracked by the rate limiter", "gauge", int64(s.rateLimiter.ActiveClients()))
	metric("uptime_seconds", "Process uptime", "gauge", int64(time.Since(s.appMetrics.uptime).Seconds()))
}
