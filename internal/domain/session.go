package domain

import (
	"errors"
	"time"
)

var (
	// ErrSessionNotFound is returned when a session does not exist or belongs to another owner.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed is returned when a turn is sent to an exited session.
	ErrSessionClosed = errors.New("session closed")
	// ErrTurnInProgress is returned when a reply is already pending for the session.
	ErrTurnInProgress = errors.New("turn already in progress")
	// ErrUpgradeLocked is returned when an upgrade exit is requested below the score threshold.
	ErrUpgradeLocked = errors.New("upgrade requires a higher lead score")
	// ErrInvalidProfile is returned when a persona lacks industry or pain point.
	ErrInvalidProfile = errors.New("invalid profile")
)

// UpgradeScoreThreshold is the lead score at which the upgrade exit unlocks.
const UpgradeScoreThreshold = 70

// Role identifies the author of a turn.
type Role string

const (
	// RoleUser marks turns typed or tapped by the user.
	RoleUser Role = "user"
	// RoleAgent marks turns produced by the sales agent.
	RoleAgent Role = "agent"
)

// Turn is one utterance in the transcript. Turns are immutable once appended.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Panel is the side panel currently open in the widget.
type Panel string

const (
	// PanelNone means no side panel is open.
	PanelNone Panel = ""
	// PanelAgent shows the agent chat panel.
	PanelAgent Panel = "agent"
	// PanelTasks shows the task list panel.
	PanelTasks Panel = "tasks"
)

// ParsePanel maps a raw panel name onto a Panel. Unknown names report false.
func ParsePanel(raw string) (Panel, bool) {
	switch Panel(raw) {
	case PanelNone, PanelAgent, PanelTasks:
		return Panel(raw), true
	default:
		return PanelNone, false
	}
}

// Phase is the coarse lifecycle stage of a session.
type Phase string

const (
	// PhaseChatting accepts new turns.
	PhaseChatting Phase = "chatting"
	// PhaseExited carries the exit summary and rejects new turns.
	PhaseExited Phase = "exited"
)

// Session is the conversation state owned by one anonymous user.
type Session struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"-"`
	Profile    Profile   `json:"profile"`
	Transcript []Turn    `json:"transcript"`
	LeadScore  int       `json:"lead_score"`
	Chips      []string  `json:"chips"`
	Panel      Panel     `json:"panel"`
	Phase      Phase     `json:"phase"`
	Terminal   bool      `json:"terminal"`
	Summary    *Summary  `json:"summary,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// History returns a copy of the transcript safe to hand to prompt assembly.
func (s *Session) History() []Turn {
	out := make([]Turn, len(s.Transcript))
	copy(out, s.Transcript)
	return out
}

// Append adds a turn to the end of the transcript.
func (s *Session) Append(role Role, text string) {
	s.Transcript = append(s.Transcript, Turn{Role: role, Text: text})
}

// UpgradeUnlocked reports whether the lead score allows the upgrade exit.
func (s *Session) UpgradeUnlocked() bool {
	return s.LeadScore >= UpgradeScoreThreshold
}

// ClampScore bounds a lead score to [0, 100].
func ClampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
