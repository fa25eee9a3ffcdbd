package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashureev/upsell-agent/internal/domain"
)

// summaryJSON is the shape the summary prompt asks for.
type summaryJSON struct {
	Summary  string `json:"Summary"`
	Track    string `json:"Track"`
	NextStep string `json:"Next Step"`
	Tactics  string `json:"Tactics"`
}

// Summarize classifies a finished conversation into an outcome track with a
// recap, next step and the tactics used. Failures yield a fixed fallback.
func (s *Service) Summarize(ctx context.Context, profile domain.Profile, transcript []domain.Turn, reason domain.ExitReason) (domain.Summary, Outcome) {
	if !s.Configured() {
		return domain.Summary{
			Summary:  "No summary available.",
			Track:    domain.TrackUnrecognized,
			NextStep: "No action",
			Tactics:  "None detected.",
		}, OutcomeMisconfigured
	}

	temp := s.opts.Temperature
	resp, err := s.invoker.call(ctx, GenerateRequest{
		Messages:    []Message{{Role: RoleUser, Content: summaryPrompt(profile, transcript, reason)}},
		Temperature: &temp,
		JSON:        true,
	})
	if err != nil {
		s.logger.Error("summary generation failed", "error", err, "reason", reason)
		return errorSummary(), OutcomeDegraded
	}

	summary, err := parseSummary(resp.Text)
	if err != nil {
		s.logger.Warn("summary output was not valid JSON", "error", err)
		return errorSummary(), OutcomeRecovered
	}
	s.logger.Info("conversation summarized", "reason", reason, "track", summary.Track)
	return summary, OutcomeOK
}

func errorSummary() domain.Summary {
	return domain.Summary{Summary: "Error", Track: domain.TrackUnrecognized, NextStep: "Error", Tactics: "N/A"}
}

func summaryPrompt(p domain.Profile, transcript []domain.Turn, reason domain.ExitReason) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this sales chat with %s (%s).\n", p.Industry, p.Size)
	fmt.Fprintf(&b, "CHAT HISTORY:\n%s", transcriptText(transcript))
	fmt.Fprintf(&b, "EXIT SIGNAL: %s\n\n", reason)
	b.WriteString("Determine the Outcome (Track) and Next Step based on these use cases:\n")
	b.WriteString("[UPGRADE] Purchase intent shown.\n")
	b.WriteString("[SALES] Enterprise/Human request.\n")
	b.WriteString("[SUPPORT] Technical bug fix request.\n")
	b.WriteString("[EDUCATION] Feature curiosity (how-to) without buying.\n")
	b.WriteString("[NO INTEREST] Dismissive.\n\n")
	b.WriteString("OUTPUT JSON ONLY:\n")
	b.WriteString(`{"Summary": "1 sentence recap.", "Track": "UPGRADE | SALES | SUPPORT | EDUCATION | NO INTEREST", `)
	b.WriteString(`"Next Step": "Actionable next step", "Tactics": "1. Tactic\n2. Tactic\n3. Tactic"}`)
	b.WriteByte('\n')
	return b.String()
}

func parseSummary(raw string) (domain.Summary, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var out summaryJSON
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		return domain.Summary{}, fmt.Errorf("decode summary: %w", err)
	}
	return domain.Summary{
		Summary:  strings.TrimSpace(out.Summary),
		Track:    domain.ParseTrack(out.Track),
		NextStep: strings.TrimSpace(out.NextStep),
		Tactics:  strings.TrimSpace(out.Tactics),
	}, nil
}
