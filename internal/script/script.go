// Package script holds the static, scripted variant of the sales dialogue: a
// table of steps, each with a message and the options that lead onward.
package script

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// StartStep is the entry point of the dialogue.
const StartStep = 0

//go:embed script.yaml
var defaultScript []byte

// Option is a button that advances the dialogue.
type Option struct {
	Label string `yaml:"label" json:"label"`
	Next  int    `yaml:"next" json:"next"`
}

// Step is one message of the scripted dialogue.
type Step struct {
	ID      int      `yaml:"id" json:"id"`
	Text    string   `yaml:"text" json:"text"`
	Options []Option `yaml:"options" json:"options"`
}

// Terminal reports whether the dialogue ends at this step.
func (s Step) Terminal() bool {
	return len(s.Options) == 0
}

// Script is an immutable step table.
type Script struct {
	steps map[int]Step
}

// Parse decodes a YAML step table and checks that every option points at an
// existing step.
func Parse(data []byte) (*Script, error) {
	var doc struct {
		Steps []Step `yaml:"steps"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}

	steps := make(map[int]Step, len(doc.Steps))
	for _, st := range doc.Steps {
		if _, dup := steps[st.ID]; dup {
			return nil, fmt.Errorf("duplicate step %d", st.ID)
		}
		if st.Options == nil {
			st.Options = []Option{}
		}
		steps[st.ID] = st
	}
	if _, ok := steps[StartStep]; !ok {
		return nil, fmt.Errorf("script has no start step %d", StartStep)
	}
	for _, st := range steps {
		for _, opt := range st.Options {
			if _, ok := steps[opt.Next]; !ok {
				return nil, fmt.Errorf("step %d option %q points at missing step %d", st.ID, opt.Label, opt.Next)
			}
		}
	}
	return &Script{steps: steps}, nil
}

// Default returns the embedded eSignature script.
func Default() *Script {
	s, err := Parse(defaultScript)
	if err != nil {
		panic(err)
	}
	return s
}

// Step returns the step with the given id.
func (s *Script) Step(id int) (Step, bool) {
	st, ok := s.steps[id]
	return st, ok
}

// Len returns the number of steps.
func (s *Script) Len() int {
	return len(s.steps)
}
