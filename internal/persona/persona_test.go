package persona

import (
	"math/rand/v2"
	"strings"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	if len(c.Industries) != 6 || len(c.Sizes) != 4 || len(c.PainPoints) != 4 {
		t.Fatalf("unexpected catalog sizes: %d industries, %d sizes, %d pain points",
			len(c.Industries), len(c.Sizes), len(c.PainPoints))
	}
}

func TestGenerateDistinctIndustries(t *testing.T) {
	t.Parallel()

	gen := NewGenerator(DefaultCatalog(), rand.New(rand.NewPCG(1, 2)))
	for round := 0; round < 20; round++ {
		profiles, err := gen.Generate(DefaultCount)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if len(profiles) != DefaultCount {
			t.Fatalf("expected %d profiles, got %d", DefaultCount, len(profiles))
		}

		seen := make(map[string]bool)
		ids := make(map[string]bool)
		for _, p := range profiles {
			if seen[p.Industry] {
				t.Fatalf("duplicate industry %q in %+v", p.Industry, profiles)
			}
			seen[p.Industry] = true
			if p.ID == "" || ids[p.ID] {
				t.Fatalf("profile IDs must be unique and set: %+v", profiles)
			}
			ids[p.ID] = true
			if err := p.Validate(); err != nil {
				t.Errorf("generated profile invalid: %v", err)
			}
			if p.CurrentSKU != SKUFor(p.Size) {
				t.Errorf("SKU %q does not match size %q", p.CurrentSKU, p.Size)
			}
			if !strings.HasPrefix(p.Goal, "Fix ") || !strings.Contains(p.Goal, strings.ToLower(p.PainPointTitle)) {
				t.Errorf("unexpected goal %q", p.Goal)
			}
		}
	}
}

func TestGenerateRejectsTooMany(t *testing.T) {
	t.Parallel()

	gen := NewGenerator(DefaultCatalog(), nil)
	if _, err := gen.Generate(7); err == nil {
		t.Fatal("expected error when asking for more personas than industries")
	}
	if _, err := gen.Generate(0); err == nil {
		t.Fatal("expected error for zero personas")
	}
}

func TestSKUFor(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Solopreneur (1 seat)":  SKUPersonalGmail,
		"Partnership (2 seats)": SKUBusinessStarter,
		"Family Biz (5 seats)":  SKUBusinessStarter,
	}
	for size, want := range tests {
		if got := SKUFor(size); got != want {
			t.Errorf("SKUFor(%q) = %q, want %q", size, got, want)
		}
	}
}

func TestParseCatalogRejectsEmpty(t *testing.T) {
	t.Parallel()

	if _, err := ParseCatalog([]byte("industries: [A]\n")); err == nil {
		t.Fatal("expected error for catalog without sizes and pain points")
	}
	if _, err := ParseCatalog([]byte("industries: [")); err == nil {
		t.Fatal("expected decode error")
	}
}
