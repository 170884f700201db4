package http

import (
	"context"
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady pings the store; the rate limiter and detector counters ride
// along for operators.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	switch {
	case s.store == nil:
		checks["store"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	default:
		if err := s.store.Ping(ctx); err != nil {
			s.logger.Warn("Readiness check failed", "check", "store", "error", err)
			checks["store"] = "failed"
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"rejected":       s.limiter.Rejected(),
	}
	checks["suspicious_requests"] = s.detector.SuspiciousRequests()

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}
