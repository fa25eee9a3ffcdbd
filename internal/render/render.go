// Package render turns agent and script text into HTML fragments for the widget.
package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
)

// HTML renders markdown text to an HTML fragment. Raw HTML in the input is
// omitted by the renderer, so model output cannot inject markup.
func HTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// HTMLOrText renders md, falling back to escaped plain text on failure.
func HTMLOrText(md string) string {
	out, err := HTML(md)
	if err != nil {
		return "<p>" + html.EscapeString(md) + "</p>"
	}
	return out
}
