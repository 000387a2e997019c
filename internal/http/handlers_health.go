package http

import (
	"context"
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().
		NoStore().
		JSON(map[string]any{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}).
		Write(w)
}

// handleReady reports 503 until the record store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"templates": "ok", "store": "ok"}
	status := http.StatusOK

	if len(s.pages) == 0 {
		checks["templates"] = "not loaded"
		status = http.StatusServiceUnavailable
	}
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			checks["store"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	NewResponse().
		Status(status).
		NoStore().
		JSON(map[string]any{
			"status":    state,
			"checks":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}).
		Write(w)
}
