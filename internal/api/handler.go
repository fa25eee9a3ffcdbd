// Package api provides HTTP handlers for the upsell agent API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/upsell-agent/internal/domain"
	"github.com/ashureev/upsell-agent/internal/persona"
	"github.com/ashureev/upsell-agent/internal/script"
	"github.com/ashureev/upsell-agent/internal/session"
)

const maxRequestBodySize = 64 * 1024

// Handler serves the chat widget API.
type Handler struct {
	sessions  *session.Manager
	personas  *persona.Generator
	script    *script.Script
	limiter   *RateLimiter
	aiEnabled bool
	logger    *slog.Logger
}

// NewHandler creates a Handler. limiter may be nil to disable rate limiting.
func NewHandler(sessions *session.Manager, personas *persona.Generator, sc *script.Script, limiter *RateLimiter, aiEnabled bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions:  sessions,
		personas:  personas,
		script:    sc,
		limiter:   limiter,
		aiEnabled: aiEnabled,
		logger:    logger,
	}
}

// RegisterRoutes registers the widget routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.GetConfig)
		r.Get("/personas", h.ListPersonas)
		r.Get("/script/{step}", h.GetScriptStep)

		r.Post("/sessions", h.CreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)
			r.Post("/messages", h.SendMessage)
			r.Post("/panel", h.SetPanel)
			r.Post("/exit", h.ExitSession)
			r.Post("/restart", h.RestartSession)
		})
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeBody reads a bounded JSON request body into v. It writes the error
// response itself and reports whether decoding succeeded.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeSessionError maps session-state errors onto HTTP responses.
func (h *Handler) writeSessionError(w http.ResponseWriter, err error, sessionID string) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		Error(w, http.StatusNotFound, "session_not_found")
	case errors.Is(err, domain.ErrTurnInProgress):
		Error(w, http.StatusConflict, "turn_in_progress")
	case errors.Is(err, domain.ErrSessionClosed):
		Error(w, http.StatusConflict, "session_closed")
	case errors.Is(err, domain.ErrUpgradeLocked):
		Error(w, http.StatusForbidden, "upgrade_locked")
	case errors.Is(err, domain.ErrInvalidProfile):
		Error(w, http.StatusBadRequest, "invalid_profile")
	case errors.Is(err, session.ErrEmptyMessage):
		Error(w, http.StatusBadRequest, "message is required")
	default:
		h.logger.Error("session operation failed", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
