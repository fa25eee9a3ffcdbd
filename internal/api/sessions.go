package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/upsell-agent/internal/agent"
	"github.com/ashureev/upsell-agent/internal/domain"
	"github.com/ashureev/upsell-agent/internal/identity"
	"github.com/ashureev/upsell-agent/internal/persona"
	"github.com/ashureev/upsell-agent/internal/render"
)

// SessionView is the session as returned to the widget.
type SessionView struct {
	*domain.Session
	UpgradeUnlocked bool `json:"upgrade_unlocked"`
}

// ReplyView is one agent reply with its rendered HTML.
type ReplyView struct {
	agent.Reply
	HTML    string        `json:"html"`
	Outcome agent.Outcome `json:"outcome"`
}

func viewOf(s *domain.Session) SessionView {
	return SessionView{Session: s, UpgradeUnlocked: s.UpgradeUnlocked()}
}

// ReplyViewOf renders res for the widget.
func ReplyViewOf(res agent.Result) ReplyView {
	return ReplyView{Reply: res.Reply, HTML: render.HTMLOrText(res.Reply.Text), Outcome: res.Outcome}
}

type createSessionRequest struct {
	Profile domain.Profile `json:"profile"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type panelRequest struct {
	Panel string `json:"panel"`
}

type exitRequest struct {
	Reason string `json:"reason"`
}

// GetConfig returns the server configuration for the frontend.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"ai_enabled":        h.aiEnabled,
		"upgrade_threshold": domain.UpgradeScoreThreshold,
	})
}

// ListPersonas returns a fresh set of personas to chat as.
func (h *Handler) ListPersonas(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.personas.Generate(persona.DefaultCount)
	if err != nil {
		h.logger.Error("Failed to generate personas", "error", err)
		Error(w, http.StatusInternalServerError, "failed to generate personas")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"personas": profiles})
}

// GetScriptStep returns one step of the scripted dialogue.
func (h *Handler) GetScriptStep(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid step")
		return
	}
	step, ok := h.script.Step(id)
	if !ok {
		Error(w, http.StatusNotFound, "step not found")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"id":       step.ID,
		"text":     step.Text,
		"html":     render.HTMLOrText(step.Text),
		"options":  step.Options,
		"terminal": step.Terminal(),
	})
}

// CreateSession starts a conversation with the chosen persona.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	var req createSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s, err := h.sessions.Start(r.Context(), userID, req.Profile)
	if err != nil {
		h.writeSessionError(w, err, "")
		return
	}
	JSON(w, http.StatusCreated, viewOf(s))
}

// GetSession returns the caller's session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.sessions.Get(r.Context(), identity.UserIDFromContext(r.Context()), id)
	if err != nil {
		h.writeSessionError(w, err, id)
		return
	}
	JSON(w, http.StatusOK, viewOf(s))
}

// SendMessage runs one user turn and returns the agent's reply.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if h.limiter != nil && !h.limiter.Allow(userID) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req messageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	h.logger.Info("Chat turn request", "user_id", userID, "session_id", id, "message_length", len(req.Message))

	s, res, err := h.sessions.Send(r.Context(), userID, id, req.Message)
	if err != nil {
		h.writeSessionError(w, err, id)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"session": viewOf(s),
		"reply":   ReplyViewOf(res),
	})
}

// SetPanel opens or closes the side panel.
func (h *Handler) SetPanel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req panelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	panel, ok := domain.ParsePanel(req.Panel)
	if !ok {
		Error(w, http.StatusBadRequest, "unknown panel")
		return
	}
	s, err := h.sessions.SetPanel(r.Context(), identity.UserIDFromContext(r.Context()), id, panel)
	if err != nil {
		h.writeSessionError(w, err, id)
		return
	}
	JSON(w, http.StatusOK, viewOf(s))
}

// ExitSession ends the conversation and returns it with its summary.
func (h *Handler) ExitSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req exitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	reason, ok := domain.ParseExitReason(req.Reason)
	if !ok {
		Error(w, http.StatusBadRequest, "unknown exit reason")
		return
	}
	s, err := h.sessions.Exit(r.Context(), identity.UserIDFromContext(r.Context()), id, reason)
	if err != nil {
		h.writeSessionError(w, err, id)
		return
	}
	JSON(w, http.StatusOK, viewOf(s))
}

// RestartSession resets the conversation with the same persona.
func (h *Handler) RestartSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.sessions.Restart(r.Context(), identity.UserIDFromContext(r.Context()), id)
	if err != nil {
		h.writeSessionError(w, err, id)
		return
	}
	JSON(w, http.StatusOK, viewOf(s))
}

// DeleteSession handles DELETE /api/sessions/{id}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.sessions.Delete(r.Context(), identity.UserIDFromContext(r.Context()), id); err != nil {
		h.writeSessionError(w, err, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
