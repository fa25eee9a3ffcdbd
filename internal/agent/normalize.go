package agent

import (
	"regexp"
	"strings"
)

// Output grammar tokens shared with the prompt.
const (
	FieldSeparator = "|||"
	ChipSeparator  = "|"
	ThoughtOpen    = "[THOUGHT]"
	ThoughtClose   = "[/THOUGHT]"
	HandoffPhrase  = "Connecting you with a Workspace specialist"
	MaxChips       = 3
)

// Fixed fallback values.
const (
	DefaultScore      = "50"
	FallbackChip      = "Tell me more"
	EmptyResponseText = "Sorry, I didn't catch that. Could you say it another way?"
)

var (
	thoughtOpenRe  = regexp.MustCompile(`(?i)\[\s*thought\s*\]`)
	thoughtCloseRe = regexp.MustCompile(`(?i)\[\s*/\s*thought\s*\]`)
	endChatPairRe  = regexp.MustCompile(`(?i)\[?\bend\s*chat\]?\s*\|\s*\[?end\s*chat\b\]?`)
	nonePairRe     = regexp.MustCompile(`(?i)\[?\bnone\]?\s*\|\s*\[?none\b\]?`)
	integerRe      = regexp.MustCompile(`-?\d+`)
)

// Normalize turns raw generator output into a well-formed Reply. It never
// fails: every malformed shape degrades to a usable reply, and the returned
// Outcome is OutcomeRecovered whenever a fallback was needed.
func Normalize(raw string) (Reply, Outcome) {
	recovered := false

	body, malformed := stripReasoning(raw)
	recovered = recovered || malformed
	body = strings.TrimSpace(body)

	if body == "" {
		return Reply{Text: EmptyResponseText, Score: DefaultScore, Chips: []string{}}, OutcomeRecovered
	}

	var text, score, chips string
	hasChipField := false
	parts := strings.Split(body, FieldSeparator)
	switch {
	case len(parts) >= 3:
		text, score = parts[0], parts[1]
		chips = strings.Join(parts[2:], ChipSeparator)
		hasChipField = true
		recovered = recovered || len(parts) > 3
	case len(parts) == 2:
		text, score = parts[0], parts[1]
		recovered = true
	default:
		text = body
		recovered = true
	}

	text, endChatLeaked := scrub(endChatPairRe, text)
	text, noneLeaked := scrub(nonePairRe, text)
	recovered = recovered || endChatLeaked || noneLeaked

	normScore, scoreOK := normalizeScore(score, len(parts) >= 2)
	recovered = recovered || !scoreOK

	reply := Reply{Text: text, Score: normScore, Chips: []string{}}

	field := parseChipField(chips)
	switch {
	case hasChipField:
		reply.Chips = append(reply.Chips, field.chips...)
	case len(parts) == 1 && text != "" && !noneLeaked:
		reply.Chips = []string{FallbackChip}
	}

	if field.terminal || endChatLeaked || isHandoff(text) {
		reply.Terminal = true
		reply.Chips = []string{}
	}

	if reply.Text == "" {
		reply.Text = EmptyResponseText
		recovered = true
	}

	if recovered {
		return reply, OutcomeRecovered
	}
	return reply, OutcomeOK
}

// stripReasoning removes the [THOUGHT] scratch blocks. It reports true when
// the markers were malformed and a fallback was used.
func stripReasoning(raw string) (string, bool) {
	closes := thoughtCloseRe.FindAllStringIndex(raw, -1)
	if len(closes) == 0 {
		if thoughtOpenRe.MatchString(raw) {
			// Unterminated block: keep the text rather than drop the whole reply.
			return removeMarkers(raw), true
		}
		return raw, false
	}

	last := closes[len(closes)-1]
	opened := thoughtOpenRe.MatchString(raw[:last[0]])
	after, unclosed := cutAtMarker(raw[last[1]:])
	if strings.TrimSpace(after) != "" {
		return after, !opened || unclosed
	}

	// Nothing follows the last block: take the first answer sitting between
	// blocks, else whatever preceded the first one.
	for _, c := range closes {
		if seg, _ := cutAtMarker(raw[c[1]:]); strings.TrimSpace(seg) != "" {
			return seg, true
		}
	}
	cut := closes[0][0]
	if loc := thoughtOpenRe.FindStringIndex(raw); loc != nil && loc[0] < cut {
		cut = loc[0]
	}
	return raw[:cut], true
}

// cutAtMarker returns s up to its first reasoning marker, and whether one
// was found.
func cutAtMarker(s string) (string, bool) {
	end := -1
	for _, re := range []*regexp.Regexp{thoughtOpenRe, thoughtCloseRe} {
		if loc := re.FindStringIndex(s); loc != nil && (end < 0 || loc[0] < end) {
			end = loc[0]
		}
	}
	if end < 0 {
		return s, false
	}
	return s[:end], true
}

func removeMarkers(s string) string {
	s = thoughtOpenRe.ReplaceAllString(s, "")
	return thoughtCloseRe.ReplaceAllString(s, "")
}

func scrub(re *regexp.Regexp, s string) (string, bool) {
	if !re.MatchString(s) {
		return strings.TrimSpace(s), false
	}
	return strings.TrimSpace(re.ReplaceAllString(s, "")), true
}

// normalizeScore keeps the first integer of the score field as a string.
// Range is not enforced here.
func normalizeScore(field string, present bool) (string, bool) {
	if !present {
		return DefaultScore, true
	}
	field = strings.TrimSpace(field)
	n := integerRe.FindString(field)
	if n == "" {
		return DefaultScore, false
	}
	return n, n == field
}

func isHandoff(text string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(HandoffPhrase))
}
