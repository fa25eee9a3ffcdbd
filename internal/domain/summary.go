package domain

import "strings"

// Track is the outcome category assigned to a finished conversation.
type Track string

const (
	TrackUpgrade      Track = "UPGRADE"
	TrackSales        Track = "SALES"
	TrackSupport      Track = "SUPPORT"
	TrackEducation    Track = "EDUCATION"
	TrackNoInterest   Track = "NO INTEREST"
	TrackUnrecognized Track = "UNRECOGNIZED"
)

// ParseTrack maps raw model output such as "[UPGRADE]" or "no_interest" onto
// a Track. Anything else is TrackUnrecognized.
func ParseTrack(raw string) Track {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.Trim(s, "[]\"' ")
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.Join(strings.Fields(s), " ")
	switch Track(s) {
	case TrackUpgrade, TrackSales, TrackSupport, TrackEducation, TrackNoInterest:
		return Track(s)
	case "NO-INTEREST", "NOINTEREST":
		return TrackNoInterest
	default:
		return TrackUnrecognized
	}
}

// ExitReason is the widget action that ended the conversation.
type ExitReason string

const (
	ExitContact ExitReason = "contact"
	ExitUpgrade ExitReason = "upgrade"
	ExitGeneral ExitReason = "general"
)

// ParseExitReason validates a raw exit reason.
func ParseExitReason(raw string) (ExitReason, bool) {
	switch ExitReason(strings.ToLower(strings.TrimSpace(raw))) {
	case ExitContact:
		return ExitContact, true
	case ExitUpgrade:
		return ExitUpgrade, true
	case ExitGeneral, "":
		return ExitGeneral, true
	default:
		return "", false
	}
}

// Summary is the exit recap shown after a conversation ends.
type Summary struct {
	Summary  string `json:"summary"`
	Track    Track  `json:"track"`
	NextStep string `json:"next_step"`
	Tactics  string `json:"tactics"`
}
