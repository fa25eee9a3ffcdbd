package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/ashureev/upsell-agent/internal/api"
	"github.com/ashureev/upsell-agent/internal/domain"
	"github.com/ashureev/upsell-agent/internal/identity"
	"github.com/ashureev/upsell-agent/internal/session"
)

const maxMessageSize = 64 * 1024

// ErrCodeRateLimited is the error event code for a throttled turn.
const ErrCodeRateLimited = "rate_limited"

// Event types sent to the client.
const (
	EventState  = "state"
	EventTyping = "typing"
	EventReply  = "reply"
	EventError  = "error"
	EventPong   = "pong"
)

// inbound is a client frame.
type inbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// Event is a server frame.
type Event struct {
	Type    string           `json:"type"`
	Session *api.SessionView `json:"session,omitempty"`
	Reply   *api.ReplyView   `json:"reply,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Limiter throttles chat turns per owner. *api.RateLimiter satisfies it.
type Limiter interface {
	Allow(key string) bool
}

// Handler serves GET /ws/chat?session=<id>.
type Handler struct {
	sessions       *session.Manager
	hub            *Hub
	limiter        Limiter
	allowedOrigins []string
	isDev          bool
}

// NewHandler creates a WebSocket chat handler. Turns share limiter with the
// HTTP message endpoint; a nil limiter disables throttling.
func NewHandler(sessions *session.Manager, hub *Hub, limiter Limiter, allowedOrigins []string, isDev bool) *Handler {
	return &Handler{sessions: sessions, hub: hub, limiter: limiter, allowedOrigins: allowedOrigins, isDev: isDev}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := r.URL.Query().Get("session")
	slog.Info("WebSocket connection request", "user_id", userID, "session_id", sessionID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	s, err := h.sessions.Get(r.Context(), userID, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to load session for stream", "error", err, "session_id", sessionID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	ws.SetReadLimit(maxMessageSize)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.hub.Register(userID, sessionID, ws)
	defer h.hub.Unregister(sessionID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	view := api.SessionView{Session: s, UpgradeUnlocked: s.UpgradeUnlocked()}
	if err := h.writeJSON(ctx, ws, Event{Type: EventState, Session: &view}); err != nil {
		slog.Debug("Failed to send initial state", "error", err)
		return
	}

	h.inputLoop(ctx, ws, userID, sessionID)
	slog.Info("Chat stream ended", "user_id", userID, "session_id", sessionID)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func (h *Handler) inputLoop(ctx context.Context, ws *websocket.Conn, userID, sessionID string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(message, &msg); err != nil {
			h.sendError(ctx, ws, "invalid message")
			continue
		}

		switch msg.Type {
		case "message":
			h.handleTurn(ctx, ws, userID, sessionID, msg.Content)
		case "panel":
			panel, ok := domain.ParsePanel(msg.Content)
			if !ok {
				h.sendError(ctx, ws, "unknown panel")
				continue
			}
			s, err := h.sessions.SetPanel(ctx, userID, sessionID, panel)
			if err != nil {
				h.sendError(ctx, ws, errorCode(err))
				continue
			}
			view := api.SessionView{Session: s, UpgradeUnlocked: s.UpgradeUnlocked()}
			h.hub.Broadcast(ctx, sessionID, Event{Type: EventState, Session: &view})
		case "ping":
			if err := h.writeJSON(ctx, ws, Event{Type: EventPong}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		default:
			h.sendError(ctx, ws, "unknown message type")
		}
	}
}

// handleTurn runs one turn and fans the reply out to every watcher.
func (h *Handler) handleTurn(ctx context.Context, ws *websocket.Conn, userID, sessionID, content string) {
	if h.limiter != nil && !h.limiter.Allow(userID) {
		slog.Warn("Chat stream rate limited", "user_id", userID, "session_id", sessionID)
		h.sendError(ctx, ws, ErrCodeRateLimited)
		return
	}
	h.hub.Broadcast(ctx, sessionID, Event{Type: EventTyping})

	s, res, err := h.sessions.Send(ctx, userID, sessionID, content)
	if err != nil {
		h.sendError(ctx, ws, errorCode(err))
		return
	}
	view := api.SessionView{Session: s, UpgradeUnlocked: s.UpgradeUnlocked()}
	reply := api.ReplyViewOf(res)
	h.hub.Broadcast(ctx, sessionID, Event{Type: EventReply, Session: &view, Reply: &reply})
}

func (h *Handler) sendError(ctx context.Context, ws *websocket.Conn, code string) {
	if err := h.writeJSON(ctx, ws, Event{Type: EventError, Error: code}); err != nil {
		slog.Debug("Failed to send stream error", "error", err)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, domain.ErrTurnInProgress):
		return "turn_in_progress"
	case errors.Is(err, domain.ErrSessionClosed):
		return "session_closed"
	case errors.Is(err, session.ErrEmptyMessage):
		return "message is required"
	default:
		slog.Error("Chat stream operation failed", "error", err)
		return "internal error"
	}
}

func (h *Handler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeRaw(ctx, ws, data)
}
