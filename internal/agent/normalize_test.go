package agent

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeScenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    Reply
		outcome Outcome
	}{
		{
			name:    "reasoning block then well-formed fields",
			raw:     "[THOUGHT]x[/THOUGHT]\nGreat question! ||| 72 ||| Tell me pricing | Not now",
			want:    Reply{Text: "Great question!", Score: "72", Chips: []string{"Tell me pricing", "Not now"}},
			outcome: OutcomeOK,
		},
		{
			name:    "two fields has no chips",
			raw:     "Sure thing ||| 40",
			want:    Reply{Text: "Sure thing", Score: "40", Chips: []string{}},
			outcome: OutcomeRecovered,
		},
		{
			name:    "terminal sentinel pair",
			raw:     "I'll escalate this. ||| 10 ||| End Chat | End Chat",
			want:    Reply{Text: "I'll escalate this.", Score: "10", Chips: []string{}, Terminal: true},
			outcome: OutcomeOK,
		},
		{
			name:    "empty output",
			raw:     "",
			want:    Reply{Text: EmptyResponseText, Score: DefaultScore, Chips: []string{}},
			outcome: OutcomeRecovered,
		},
		{
			name:    "whitespace and reasoning only",
			raw:     "  [thought]all scratch[/Thought]  \n ",
			want:    Reply{Text: EmptyResponseText, Score: DefaultScore, Chips: []string{}},
			outcome: OutcomeRecovered,
		},
		{
			name:    "no delimiter gets single fallback chip",
			raw:     "Happy to help with that.",
			want:    Reply{Text: "Happy to help with that.", Score: DefaultScore, Chips: []string{FallbackChip}},
			outcome: OutcomeRecovered,
		},
		{
			name:    "duplicates collapse in first-seen order",
			raw:     "Ok ||| 55 ||| Pricing? | Demo | Pricing? | Later",
			want:    Reply{Text: "Ok", Score: "55", Chips: []string{"Pricing?", "Demo", "Later"}},
			outcome: OutcomeOK,
		},
		{
			name:    "chips capped at three",
			raw:     "Ok ||| 55 ||| a | b | c | d | e",
			want:    Reply{Text: "Ok", Score: "55", Chips: []string{"a", "b", "c"}},
			outcome: OutcomeOK,
		},
		{
			name:    "brackets stripped and NONE dropped",
			raw:     "Ok ||| 30 ||| [How much?] | none | <Tell me more> | ",
			want:    Reply{Text: "Ok", Score: "30", Chips: []string{"How much?", "Tell me more"}},
			outcome: OutcomeOK,
		},
		{
			name:    "NONE pair yields no chips",
			raw:     "Noted. ||| 20 ||| NONE | NONE",
			want:    Reply{Text: "Noted.", Score: "20", Chips: []string{}},
			outcome: OutcomeOK,
		},
		{
			name:    "extra fields joined into chips",
			raw:     "Hi ||| 45 ||| One | Two ||| Three",
			want:    Reply{Text: "Hi", Score: "45", Chips: []string{"One", "Two", "Three"}},
			outcome: OutcomeRecovered,
		},
		{
			name:    "non-numeric score defaults",
			raw:     "Hi ||| high ||| One",
			want:    Reply{Text: "Hi", Score: DefaultScore, Chips: []string{"One"}},
			outcome: OutcomeRecovered,
		},
		{
			name:    "score keeps first integer and is not clamped",
			raw:     "Hi ||| 140/100 ||| One",
			want:    Reply{Text: "Hi", Score: "140", Chips: []string{"One"}},
			outcome: OutcomeRecovered,
		},
		{
			name:    "end chat leaked into body",
			raw:     "Thanks for your time! End Chat | End Chat",
			want:    Reply{Text: "Thanks for your time!", Score: DefaultScore, Chips: []string{}, Terminal: true},
			outcome: OutcomeRecovered,
		},
		{
			name:    "none pair leaked into body",
			raw:     "Let me check. NONE | NONE ||| 35 ||| Sure",
			want:    Reply{Text: "Let me check.", Score: "35", Chips: []string{"Sure"}},
			outcome: OutcomeRecovered,
		},
		{
			name: "handoff phrasing is terminal",
			raw:  "Connecting you with a Workspace specialist now. ||| 65 ||| Thanks | Bye",
			want: Reply{
				Text:     "Connecting you with a Workspace specialist now.",
				Score:    "65",
				Chips:    []string{},
				Terminal: true,
			},
			outcome: OutcomeOK,
		},
		{
			name:    "unterminated reasoning keeps text",
			raw:     "[THOUGHT] Sounds like storage. ||| 50 ||| More",
			want:    Reply{Text: "Sounds like storage.", Score: "50", Chips: []string{"More"}},
			outcome: OutcomeRecovered,
		},
		{
			name:    "closing marker without opening",
			raw:     "draft notes [/THOUGHT] Final answer ||| 60 ||| Yes",
			want:    Reply{Text: "Final answer", Score: "60", Chips: []string{"Yes"}},
			outcome: OutcomeRecovered,
		},
		{
			name:    "reasoning after the answer",
			raw:     "Answer first ||| 61 ||| Ok [THOUGHT]late scratch[/THOUGHT]",
			want:    Reply{Text: "Answer first", Score: "61", Chips: []string{"Ok"}},
			outcome: OutcomeRecovered,
		},
		{
			name:    "answer between two reasoning blocks",
			raw:     "[THOUGHT]plan[/THOUGHT] Hi there ||| 60 ||| Pricing | Later [THOUGHT]afterthought[/THOUGHT]",
			want:    Reply{Text: "Hi there", Score: "60", Chips: []string{"Pricing", "Later"}},
			outcome: OutcomeRecovered,
		},
		{
			name:    "unclosed block after the answer is cut",
			raw:     "[THOUGHT]plan[/THOUGHT] Hi there ||| 60 ||| Pricing | Later [THOUGHT]secret second plan",
			want:    Reply{Text: "Hi there", Score: "60", Chips: []string{"Pricing", "Later"}},
			outcome: OutcomeRecovered,
		},
		{
			name:    "consecutive blocks before the answer",
			raw:     "[THOUGHT]a[/THOUGHT][THOUGHT]b[/THOUGHT] Done ||| 55 ||| Next",
			want:    Reply{Text: "Done", Score: "55", Chips: []string{"Next"}},
			outcome: OutcomeOK,
		},
		{
			name:    "multi-line mixed-case reasoning",
			raw:     "[Thought]\nline one\nline two\n[/THOUGHT]\nSure ||| 70 ||| Go",
			want:    Reply{Text: "Sure", Score: "70", Chips: []string{"Go"}},
			outcome: OutcomeOK,
		},
		{
			name:    "empty text field falls back",
			raw:     " ||| 44 ||| Tell me more",
			want:    Reply{Text: EmptyResponseText, Score: "44", Chips: []string{"Tell me more"}},
			outcome: OutcomeRecovered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, outcome := Normalize(tt.raw)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Normalize(%q) mismatch (-want +got):\n%s", tt.raw, diff)
			}
			if outcome != tt.outcome {
				t.Errorf("outcome = %q, want %q", outcome, tt.outcome)
			}
		})
	}
}

func TestNormalizeNeverLeaksScaffolding(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"[THOUGHT]secret plan[/THOUGHT] Hello ||| 10 ||| a",
		"[THOUGHT]secret plan[/THOUGHT]",
		"[thought]secret plan[/thought]\n\nHello",
		"Hello [THOUGHT] half open",
		"[THOUGHT]plan[/THOUGHT] Hi ||| 60 ||| Pricing | Later [THOUGHT]secret plan",
		"[THOUGHT]plan[/THOUGHT] Hi ||| 60 ||| Pricing [THOUGHT]secret plan[/THOUGHT]",
		"bye End Chat | End Chat ||| 5",
		"ok ||| 5 ||| End Chat | End Chat",
		"ok ||| 5 ||| END CHAT|end chat",
	}
	for _, raw := range inputs {
		got, _ := Normalize(raw)
		for _, banned := range []string{"secret plan", ThoughtOpen, ThoughtClose, FieldSeparator} {
			if strings.Contains(strings.ToUpper(got.Text), strings.ToUpper(banned)) {
				t.Errorf("Normalize(%q).Text = %q leaks %q", raw, got.Text, banned)
			}
		}
		if strings.Contains(strings.ToLower(got.Text), "end chat | end chat") {
			t.Errorf("Normalize(%q).Text leaks the terminal pair: %q", raw, got.Text)
		}
		for _, chip := range got.Chips {
			if strings.EqualFold(chip, endChatToken) || strings.EqualFold(chip, noneToken) {
				t.Errorf("Normalize(%q) leaked sentinel chip %q", raw, chip)
			}
		}
		for _, chip := range got.Chips {
			if strings.Contains(chip, "secret plan") {
				t.Errorf("Normalize(%q) leaked reasoning into chip %q", raw, chip)
			}
		}
		if got.Score == "" {
			t.Errorf("Normalize(%q) returned empty score", raw)
		}
		if got.Chips == nil {
			t.Errorf("Normalize(%q) returned nil chips", raw)
		}
	}
}

func TestNormalizeIsIdempotentOnText(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"[THOUGHT]x[/THOUGHT]\nGreat question! ||| 72 ||| Tell me pricing | Not now",
		"Sure thing ||| 40",
		"I'll escalate this. ||| 10 ||| End Chat | End Chat",
		"",
		"Thanks End Chat | End Chat and goodbye",
		"  spaced   out  ",
		"[THOUGHT] dangling",
	}
	for _, raw := range inputs {
		first, _ := Normalize(raw)
		second, _ := Normalize(first.Text)
		if first.Text != second.Text {
			t.Errorf("not idempotent for %q: %q -> %q", raw, first.Text, second.Text)
		}
	}
}

func TestTerminalRepliesHaveNoChips(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"Bye ||| 0 ||| End Chat | End Chat",
		"Bye ||| 0 ||| [End Chat] | [End Chat]",
		"Bye ||| 0 ||| End Chat",
		"Connecting you with a Workspace specialist. ||| 80 ||| Great | Thanks",
	} {
		got, _ := Normalize(raw)
		if !got.Terminal {
			t.Errorf("Normalize(%q) should be terminal", raw)
		}
		if len(got.Chips) != 0 {
			t.Errorf("Normalize(%q) terminal reply has chips %v", raw, got.Chips)
		}
	}
}

func TestParseChip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		kind ChipKind
		text string
	}{
		{"  ", ChipEmpty, ""},
		{"[]", ChipEmpty, ""},
		{"None", ChipNone, "None"},
		{"[NONE]", ChipNone, "NONE"},
		{"end  chat", ChipEndChat, "end  chat"},
		{`"How much is it?"`, ChipSuggestion, "How much is it?"},
		{"[ Tell me more ]", ChipSuggestion, "Tell me more"},
		{"Nonetheless, go on", ChipSuggestion, "Nonetheless, go on"},
	}
	for _, tt := range tests {
		got := ParseChip(tt.raw)
		if got.Kind != tt.kind || got.Text != tt.text {
			t.Errorf("ParseChip(%q) = %+v, want kind %d text %q", tt.raw, got, tt.kind, tt.text)
		}
	}
}
