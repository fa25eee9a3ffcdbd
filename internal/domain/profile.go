// Package domain contains core domain types for the upsell agent.
package domain

import "strings"

// Profile is the simulated small-business persona a conversation is held with.
// It is selected once per session and never mutated afterwards.
type Profile struct {
	ID             string `json:"id" yaml:"-"`
	Name           string `json:"name"`
	Industry       string `json:"industry"`
	Size           string `json:"size"`
	PainPointTitle string `json:"pain_point_title"`
	PainPointDesc  string `json:"pain_point_desc"`
	CurrentSKU     string `json:"current_sku"`
	Goal           string `json:"goal"`
}

// Validate reports whether the profile carries enough context for prompting.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Industry) == "" {
		return ErrInvalidProfile
	}
	if strings.TrimSpace(p.PainPointTitle) == "" && strings.TrimSpace(p.PainPointDesc) == "" {
		return ErrInvalidProfile
	}
	return nil
}
