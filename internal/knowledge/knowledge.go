// Package knowledge serves the static product fact sheet the agent grounds its
// answers in.
package knowledge

import (
	_ "embed"
	"log/slog"
	"os"
	"strings"
)

// Unavailable is returned in place of facts when the store cannot be read.
// Callers treat it as ordinary tool output.
const Unavailable = "Knowledge base unavailable."

// Topics lists the sections the fact sheet covers. The list is advisory: it is
// offered to the model as an enum but lookups never reject other topics.
var Topics = []string{"pricing", "storage", "meetings", "email", "security", "esignature", "ai"}

//go:embed workspace_facts.txt
var embeddedFacts string

// Source reads the fact sheet on every lookup so edits on disk are picked up
// without a restart.
type Source struct {
	path   string
	logger *slog.Logger
}

// NewSource creates a source backed by path. An empty path uses the fact sheet
// compiled into the binary.
func NewSource(path string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{path: path, logger: logger}
}

// Lookup returns the fact text for topic. The whole corpus is returned
// regardless of topic; the model picks the section it needs.
func (s *Source) Lookup(topic string) string {
	text, err := s.read()
	if err != nil {
		s.logger.Warn("knowledge lookup failed", "topic", topic, "path", s.path, "error", err)
		return Unavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.logger.Warn("knowledge store is empty", "topic", topic, "path", s.path)
		return Unavailable
	}
	s.logger.Debug("knowledge lookup", "topic", topic, "bytes", len(text))
	return text
}

func (s *Source) read() (string, error) {
	if s.path == "" {
		return embeddedFacts, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
