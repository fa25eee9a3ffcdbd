package agent

import "strings"

// ChipKind classifies a raw token found in the chip field.
type ChipKind int

const (
	// ChipEmpty is a blank token left by stray separators.
	ChipEmpty ChipKind = iota
	// ChipSuggestion is an ordinary suggested reply.
	ChipSuggestion
	// ChipNone is the "no suggestion" sentinel.
	ChipNone
	// ChipEndChat is the terminal sentinel.
	ChipEndChat
)

const (
	noneToken    = "NONE"
	endChatToken = "End Chat"
)

// ChipToken is a parsed chip-field entry.
type ChipToken struct {
	Kind ChipKind
	Text string
}

// ParseChip cleans one raw chip and classifies it.
func ParseChip(raw string) ChipToken {
	text := stripEnclosing(strings.TrimSpace(raw))
	switch {
	case text == "":
		return ChipToken{Kind: ChipEmpty}
	case strings.EqualFold(text, noneToken):
		return ChipToken{Kind: ChipNone, Text: text}
	case strings.EqualFold(strings.Join(strings.Fields(text), " "), endChatToken):
		return ChipToken{Kind: ChipEndChat, Text: text}
	default:
		return ChipToken{Kind: ChipSuggestion, Text: text}
	}
}

// stripEnclosing removes bracket and quote wrappers such as "[Tell me more]".
func stripEnclosing(s string) string {
	for {
		trimmed := strings.TrimSpace(strings.Trim(s, "[]<>"))
		if len(trimmed) >= 2 && trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
			trimmed = strings.TrimSpace(trimmed[1 : len(trimmed)-1])
		}
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

// chipField is the outcome of parsing the third output field.
type chipField struct {
	chips    []string
	terminal bool // the field held only End Chat sentinels
}

func parseChipField(field string) chipField {
	var out chipField
	seen := make(map[string]struct{})
	endChats, others := 0, 0
	for _, raw := range strings.Split(field, ChipSeparator) {
		tok := ParseChip(raw)
		switch tok.Kind {
		case ChipEmpty:
			continue
		case ChipNone:
			others++
			continue
		case ChipEndChat:
			endChats++
			continue
		}
		others++
		if _, dup := seen[tok.Text]; dup {
			continue
		}
		seen[tok.Text] = struct{}{}
		if len(out.chips) < MaxChips {
			out.chips = append(out.chips, tok.Text)
		}
	}
	out.terminal = endChats > 0 && others == 0
	return out
}
