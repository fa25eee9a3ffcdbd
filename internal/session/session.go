// Package session owns conversation state: the transcript, lead score, chips,
// panel and lifecycle of each chat, persisted through store.Repository.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/upsell-agent/internal/agent"
	"github.com/ashureev/upsell-agent/internal/domain"
	"github.com/ashureev/upsell-agent/internal/store"
)

// ErrEmptyMessage is returned when a turn carries no text.
var ErrEmptyMessage = errors.New("message is empty")

// OpeningChips are offered with the opening hook.
var OpeningChips = []string{"Yes, it costs us time.", "Why is this happening?", "It's manageable for now."}

// OpeningHook is the agent's first turn for profile.
func OpeningHook(p domain.Profile) string {
	return fmt.Sprintf("Hi. I noticed %s is flagging up. That usually kills productivity. How is that impacting your day-to-day?", p.PainPointTitle)
}

// Responder is the agent core as seen by a session.
type Responder interface {
	Respond(ctx context.Context, profile domain.Profile, history []domain.Turn, utterance string) agent.Result
	Summarize(ctx context.Context, profile domain.Profile, transcript []domain.Turn, reason domain.ExitReason) (domain.Summary, agent.Outcome)
}

// Manager coordinates session state across concurrent requests.
type Manager struct {
	repo   store.Repository
	agent  Responder
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex // guards read-modify-write against the store
	pending   sync.Map   // session ID -> struct{} while a turn or exit is running
	onRemoved []func(id string)
}

// NewManager creates a session manager.
func NewManager(repo store.Repository, ag Responder, ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{repo: repo, agent: ag, ttl: ttl, logger: logger, now: time.Now}
}

// TTL returns the idle lifetime of a session.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Start opens a conversation with profile on behalf of owner.
func (m *Manager) Start(ctx context.Context, owner string, profile domain.Profile) (*domain.Session, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	now := m.now()
	s := &domain.Session{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		Profile:   profile,
		CreatedAt: now,
	}
	resetConversation(s)
	s.UpdatedAt = now

	if err := m.repo.UpsertSession(ctx, s); err != nil {
		return nil, fmt.Errorf("save new session: %w", err)
	}
	m.logger.Info("session started", "session_id", s.ID, "owner", owner, "industry", profile.Industry)
	return s, nil
}

// Get returns the session if it exists and belongs to owner.
func (m *Manager) Get(ctx context.Context, owner, id string) (*domain.Session, error) {
	s, err := m.repo.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s == nil || s.OwnerID != owner {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Send runs one user turn. The user turn is persisted before the agent is
// asked, the agent sees the history without it, and the reply replaces the
// score and chips. Fallback replies are appended but leave the score as is.
func (m *Manager) Send(ctx context.Context, owner, id, utterance string) (*domain.Session, agent.Result, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, agent.Result{}, ErrEmptyMessage
	}

	release, err := m.acquire(id)
	if err != nil {
		return nil, agent.Result{}, err
	}
	defer release()

	var profile domain.Profile
	var history []domain.Turn
	if _, err := m.update(ctx, owner, id, func(s *domain.Session) error {
		if s.Phase == domain.PhaseExited || s.Terminal {
			return domain.ErrSessionClosed
		}
		profile = s.Profile
		history = s.History()
		s.Append(domain.RoleUser, utterance)
		return nil
	}); err != nil {
		return nil, agent.Result{}, err
	}

	res := m.agent.Respond(ctx, profile, history, utterance)

	// The user turn is already stored; record its reply even if the caller left.
	s, err := m.update(context.WithoutCancel(ctx), owner, id, func(s *domain.Session) error {
		s.Append(domain.RoleAgent, res.Reply.Text)
		s.Chips = append([]string{}, res.Reply.Chips...)
		s.Terminal = res.Reply.Terminal
		if res.Outcome.Displayable() {
			if score, ok := parseScore(res.Reply.Score); ok {
				s.LeadScore = domain.ClampScore(score)
			}
		}
		return nil
	})
	if err != nil {
		return nil, res, err
	}

	if res.Outcome.NeedsOperator() {
		m.logger.Error("agent cannot reply until its configuration is fixed", "session_id", id, "outcome", res.Outcome)
	}
	m.logger.Info("turn completed",
		"session_id", id,
		"outcome", res.Outcome,
		"lead_score", s.LeadScore,
		"terminal", s.Terminal,
		"turns", len(s.Transcript),
	)
	return s, res, nil
}

// SetPanel opens or closes the side panel. It may run while a turn is pending.
func (m *Manager) SetPanel(ctx context.Context, owner, id string, panel domain.Panel) (*domain.Session, error) {
	return m.update(ctx, owner, id, func(s *domain.Session) error {
		s.Panel = panel
		return nil
	})
}

// Exit ends the conversation and attaches a summary. An upgrade exit requires
// the lead score to have reached domain.UpgradeScoreThreshold. Exiting an
// exited session returns it unchanged.
func (m *Manager) Exit(ctx context.Context, owner, id string, reason domain.ExitReason) (*domain.Session, error) {
	release, err := m.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	s, err := m.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if s.Phase == domain.PhaseExited {
		return s, nil
	}
	if reason == domain.ExitUpgrade && !s.UpgradeUnlocked() {
		return nil, domain.ErrUpgradeLocked
	}

	summary, outcome := m.agent.Summarize(ctx, s.Profile, s.History(), reason)

	s, err = m.update(ctx, owner, id, func(s *domain.Session) error {
		s.Phase = domain.PhaseExited
		s.Chips = []string{}
		s.Panel = domain.PanelNone
		s.Summary = &summary
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("session exited", "session_id", id, "reason", reason, "track", summary.Track, "outcome", outcome)
	return s, nil
}

// Restart resets the conversation with the same profile.
func (m *Manager) Restart(ctx context.Context, owner, id string) (*domain.Session, error) {
	release, err := m.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	s, err := m.update(ctx, owner, id, func(s *domain.Session) error {
		resetConversation(s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("session restarted", "session_id", id)
	return s, nil
}

// OnRemoved registers fn to run with the ID of every session removed by
// Delete or Sweep. Register hooks before serving requests.
func (m *Manager) OnRemoved(fn func(id string)) {
	m.onRemoved = append(m.onRemoved, fn)
}

// Delete discards the owner's session. A session with a pending turn cannot
// be deleted.
func (m *Manager) Delete(ctx context.Context, owner, id string) error {
	release, err := m.acquire(id)
	if err != nil {
		return err
	}
	defer release()

	m.mu.Lock()
	if _, err := m.Get(ctx, owner, id); err != nil {
		m.mu.Unlock()
		return err
	}
	err = m.repo.DeleteSession(ctx, id)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.logger.Info("session deleted", "session_id", id)
	m.removed(id)
	return nil
}

// Sweep deletes sessions idle for longer than the TTL.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	m.mu.Lock()
	ids, err := m.repo.CleanupExpiredSessions(ctx, m.ttl)
	m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		m.removed(id)
	}
	return len(ids), nil
}

func (m *Manager) removed(id string) {
	for _, fn := range m.onRemoved {
		fn(id)
	}
}

func (m *Manager) acquire(id string) (func(), error) {
	if _, busy := m.pending.LoadOrStore(id, struct{}{}); busy {
		m.logger.Warn("turn already in progress", "session_id", id)
		return nil, domain.ErrTurnInProgress
	}
	return func() { m.pending.Delete(id) }, nil
}

// update loads the owner's session, applies fn and persists the result.
func (m *Manager) update(ctx context.Context, owner, id string, fn func(*domain.Session) error) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	s.UpdatedAt = m.now()
	if err := m.repo.UpsertSession(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return s, nil
}

func resetConversation(s *domain.Session) {
	s.Transcript = []domain.Turn{{Role: domain.RoleAgent, Text: OpeningHook(s.Profile)}}
	s.LeadScore = 0
	s.Chips = append([]string{}, OpeningChips...)
	s.Panel = domain.PanelNone
	s.Phase = domain.PhaseChatting
	s.Terminal = false
	s.Summary = nil
}

func parseScore(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return n, true
}
