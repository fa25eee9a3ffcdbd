package agent

import (
	"fmt"
	"strings"

	"github.com/ashureev/upsell-agent/internal/domain"
)

// Plan pitched by the agent.
const (
	TargetPlan  = "Business Standard"
	TargetPrice = "$12/seat"
)

// BuildPrompt assembles the instruction sequence for one user turn: the
// system block, then history in order, then the new utterance. history must
// not include utterance. Neither argument is modified.
func BuildPrompt(profile domain.Profile, history []domain.Turn, utterance string) []Message {
	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: RoleSystem, Content: SystemPrompt(profile)})
	for _, turn := range history {
		msgs = append(msgs, Message{Role: roleFor(turn.Role), Content: turn.Text})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: utterance})
	return msgs
}

func roleFor(r domain.Role) Role {
	if r == domain.RoleAgent {
		return RoleModel
	}
	return RoleUser
}

// SystemPrompt renders the persona framing, objective, chip vocabulary,
// routing rules and output grammar for profile.
func SystemPrompt(p domain.Profile) string {
	var b strings.Builder

	b.WriteString("You are an elite Google Workspace sales rep embedded in Gmail.\n")
	fmt.Fprintf(&b, "CONTEXT: %s | %s | Current plan: %s\n", p.Industry, p.Size, orDefault(p.CurrentSKU, "unknown"))
	fmt.Fprintf(&b, "PAIN POINT: %s. %s\n", p.PainPointTitle, p.PainPointDesc)
	if p.Goal != "" {
		fmt.Fprintf(&b, "CUSTOMER GOAL: %s\n", p.Goal)
	}

	b.WriteString("\nSTYLE (Challenger Sale):\n")
	b.WriteString("1. Be concise. 1-2 sentences max.\n")
	b.WriteString("2. Validate and pivot. Acknowledge the pain, then bridge to the solution.\n")
	fmt.Fprintf(&b, "3. Drive the sale. Pivot to '%s' (%s).\n", TargetPlan, TargetPrice)
	fmt.Fprintf(&b, "4. Never guess prices, limits or features. Call %s first when you need a fact.\n", FactLookupToolName)

	b.WriteString("\nSUGGESTION CHIPS:\n")
	b.WriteString("Offer up to 3 short (2-4 words) first-person replies the USER might say next.\n")
	fmt.Fprintf(&b, "Use exactly `%s %s %s` when no suggestion fits.\n", noneToken, ChipSeparator, noneToken)
	fmt.Fprintf(&b, "Use exactly `%s %s %s` only when the conversation is over. Never invent other control tokens.\n", endChatToken, ChipSeparator, endChatToken)

	b.WriteString("\nROUTING RULES:\n")
	fmt.Fprintf(&b, "- Asks for a human, a call or enterprise pricing: reply starting with \"%s\" and end the chat.\n", HandoffPhrase)
	b.WriteString("- Says goodbye or is clearly not interested: thank them briefly and end the chat.\n")
	b.WriteString("- Reports a bug or outage: acknowledge it, point them to support, keep offering help.\n")
	b.WriteString("- Asks how a feature works: answer it, then connect it to the upgrade.\n")

	b.WriteString("\nOUTPUT FORMAT (mandatory):\n")
	fmt.Fprintf(&b, "%s your private reasoning %s\n", ThoughtOpen, ThoughtClose)
	fmt.Fprintf(&b, "Response text %s Lead Score (0-100) %s Suggestion1 %s Suggestion2 %s Suggestion3\n",
		FieldSeparator, FieldSeparator, ChipSeparator, ChipSeparator)
	b.WriteString("The reasoning block is optional and is never shown to the customer.\n")
	b.WriteString("Example:\n")
	fmt.Fprintf(&b, "That sounds tough. Most agencies upgrade to Standard for 2TB storage. %s 40 %s How much is it? %s I don't have budget %s Tell me more\n",
		FieldSeparator, FieldSeparator, ChipSeparator, ChipSeparator)

	return b.String()
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// transcriptText flattens a transcript for single-shot prompts.
func transcriptText(turns []domain.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		switch t.Role {
		case domain.RoleAgent:
			b.WriteString("AGENT: ")
		default:
			b.WriteString("USER: ")
		}
		b.WriteString(t.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
