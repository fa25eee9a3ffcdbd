package script

import (
	"strings"
	"testing"
)

func TestDefaultScript(t *testing.T) {
	t.Parallel()

	s := Default()
	if s.Len() != 11 {
		t.Fatalf("expected 11 steps, got %d", s.Len())
	}

	start, ok := s.Step(StartStep)
	if !ok || start.Terminal() || len(start.Options) != 2 {
		t.Fatalf("unexpected start step %+v", start)
	}

	for _, id := range []int{8, 9, 99} {
		st, ok := s.Step(id)
		if !ok || !st.Terminal() {
			t.Errorf("step %d must exist and be terminal", id)
		}
	}

	pricing, _ := s.Step(6)
	if !strings.Contains(pricing.Text, "$12/user/month") {
		t.Errorf("pricing step lost its price: %q", pricing.Text)
	}
	if !strings.Contains(pricing.Text, "\n\n") {
		t.Error("step text must keep paragraph breaks")
	}

	if _, ok := s.Step(42); ok {
		t.Error("unknown step must not be found")
	}
}

func TestEveryPathEnds(t *testing.T) {
	t.Parallel()

	s := Default()
	seen := map[int]bool{}
	var walk func(id int)
	walk = func(id int) {
		if seen[id] {
			return
		}
		seen[id] = true
		st, _ := s.Step(id)
		for _, opt := range st.Options {
			walk(opt.Next)
		}
	}
	walk(StartStep)
	if len(seen) != s.Len() {
		t.Errorf("expected every step reachable, reached %d of %d", len(seen), s.Len())
	}
}

func TestParseRejectsDanglingOption(t *testing.T) {
	t.Parallel()

	data := []byte(`
steps:
  - id: 0
    text: hi
    options:
      - {label: go, next: 5}
`)
	if _, err := Parse(data); err == nil {
		t.Fatal("expected error for option pointing at a missing step")
	}
	if _, err := Parse([]byte("steps:\n  - id: 3\n    text: x\n")); err == nil {
		t.Fatal("expected error for missing start step")
	}
}
