// Package persona generates the simulated small-business profiles a user can
// chat as.
package persona

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ashureev/upsell-agent/internal/domain"
)

// DefaultCount is the number of personas offered at once.
const DefaultCount = 3

// SKUs assigned from the business size.
const (
	SKUBusinessStarter = "Business Starter"
	SKUPersonalGmail   = "Personal Gmail"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// PainPoint is a problem the persona is currently hitting.
type PainPoint struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Catalog is the pool profiles are drawn from.
type Catalog struct {
	Industries []string    `yaml:"industries"`
	Sizes      []string    `yaml:"sizes"`
	PainPoints []PainPoint `yaml:"pain_points"`
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("decode persona catalog: %w", err)
	}
	if len(c.Industries) == 0 || len(c.Sizes) == 0 || len(c.PainPoints) == 0 {
		return Catalog{}, fmt.Errorf("persona catalog needs industries, sizes and pain points")
	}
	return c, nil
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// Generator draws random profiles from a catalog. It is safe for concurrent use.
type Generator struct {
	catalog Catalog

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator. A nil rng uses a randomly seeded source.
func NewGenerator(catalog Catalog, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{catalog: catalog, rng: rng}
}

// Generate returns n profiles from n distinct industries.
func (g *Generator) Generate(n int) ([]domain.Profile, error) {
	if n <= 0 || n > len(g.catalog.Industries) {
		return nil, fmt.Errorf("cannot draw %d personas from %d industries", n, len(g.catalog.Industries))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	order := g.rng.Perm(len(g.catalog.Industries))[:n]
	profiles := make([]domain.Profile, 0, n)
	for _, idx := range order {
		industry := g.catalog.Industries[idx]
		size := g.catalog.Sizes[g.rng.IntN(len(g.catalog.Sizes))]
		pain := g.catalog.PainPoints[g.rng.IntN(len(g.catalog.PainPoints))]
		profiles = append(profiles, domain.Profile{
			ID:             uuid.NewString(),
			Name:           industry,
			Industry:       industry,
			Size:           size,
			PainPointTitle: pain.Title,
			PainPointDesc:  pain.Description,
			CurrentSKU:     SKUFor(size),
			Goal:           fmt.Sprintf("Fix %s issues and scale business.", strings.ToLower(pain.Title)),
		})
	}
	return profiles, nil
}

// SKUFor returns the current plan implied by a size label: sizes that name
// plural seats are on Business Starter, anything else on personal Gmail.
func SKUFor(size string) string {
	if strings.Contains(size, "seats") {
		return SKUBusinessStarter
	}
	return SKUPersonalGmail
}
