package agent

import (
	"context"
	"fmt"
	"strings"
)

// Verdict is the judge's ruling on one agent response.
type Verdict string

const (
	VerdictPass  Verdict = "PASS"
	VerdictFail  Verdict = "FAIL"
	VerdictError Verdict = "ERROR"
)

// Judge asks the model whether response meets the expected outcome.
func (s *Service) Judge(ctx context.Context, response, expected string) Verdict {
	if !s.Configured() {
		return VerdictError
	}
	var b strings.Builder
	b.WriteString("You are an expert QA auditor for a Google Workspace sales agent.\n")
	b.WriteString("Decide whether the agent's response meets the expected outcome.\n\n")
	fmt.Fprintf(&b, "EXPECTED OUTCOME: %s\nAGENT RESPONSE: %s\n\n", expected, response)
	b.WriteString("CRITERIA FOR PASS:\n")
	b.WriteString("1. The agent directly addressed the core issue in the expected outcome.\n")
	b.WriteString("2. The agent kept a polite, consultative tone.\n")
	fmt.Fprintf(&b, "3. The agent did not invent features or prices (%s is %s, storage is 2TB).\n\n", TargetPlan, TargetPrice)
	b.WriteString(`OUTPUT STRICTLY: "PASS" or "FAIL". Provide no other text.`)

	temp := float32(0)
	resp, err := s.invoker.call(ctx, GenerateRequest{
		Messages:    []Message{{Role: RoleUser, Content: b.String()}},
		Temperature: &temp,
	})
	if err != nil {
		s.logger.Error("judge call failed", "error", err)
		return VerdictError
	}
	return ParseVerdict(resp.Text)
}

// ParseVerdict reads a PASS/FAIL answer.
func ParseVerdict(raw string) Verdict {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, string(VerdictPass)):
		return VerdictPass
	case strings.Contains(s, string(VerdictFail)):
		return VerdictFail
	default:
		return VerdictError
	}
}
