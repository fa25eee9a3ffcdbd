package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const healthCheckTimeout = 5 * time.Second

// Pinger is a dependency whose reachability is part of the health status.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db        Pinger
	aiEnabled bool
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db Pinger, aiEnabled bool) *HealthHandler {
	return &HealthHandler{db: db, aiEnabled: aiEnabled}
}

// Health returns the health status of the API and its dependencies. A
// missing generation credential degrades the status without failing it.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok", "database": "ok", "agent": "ok"}
	status := "healthy"
	statusCode := http.StatusOK

	if !h.aiEnabled {
		checks["agent"] = "not_configured"
		status = "degraded"
	}
	if err := h.db.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		checks["database"] = "unreachable"
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	JSON(w, statusCode, map[string]interface{}{"status": status, "checks": checks})
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
