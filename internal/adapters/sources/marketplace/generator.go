// Package marketplace provides a demo candidate pool of synthetic listings.
package marketplace

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/affinity/internal/adapters/sources"
	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/pkg/logger"
	"github.com/okian/affinity/pkg/metrics"
)

const (
	sourceName   = "demo"
	opCandidates = "candidates"

	minPrice   = 10.0
	priceRange = 1000.0
	maxTraits  = 3
	imageURL   = "/placeholder.svg?width=200&height=200&query=nft"
)

// Traits is the pool synthetic listings draw their flags from.
var Traits = []string{
	"hat_red",
	"hat_blue",
	"hat_green",
	"eyes_blue",
	"eyes_green",
	"eyes_brown",
	"color_red",
	"color_blue",
	"rarity_rare",
	"rarity_epic",
}

// Collections are the collection identifiers assigned to listings.
var Collections = []string{"frens", "capsule", "generic"}

// Generator builds a reproducible pool: the same seed yields the same
// listings on every call.
type Generator struct {
	seed uint64
	now  func() time.Time
	log  logger.Logger
}

var _ sources.CandidateSource = (*Generator)(nil)

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets the RNG seed.
func WithSeed(seed int64) Option {
	return func(g *Generator) { g.seed = uint64(seed) } //nolint:gosec // seed bits only
}

// WithClock sets the listing time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLogger sets the generator logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

// NewGenerator returns a demo candidate source.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{seed: 42, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logger.Get()
	}
	return g
}

// Candidates returns limit synthetic listings, each flagged with one to three
// distinct traits set to "true".
func (g *Generator) Candidates(ctx context.Context, limit int) ([]model.Asset, error) {
	if err := ctx.Err(); err != nil {
		metrics.RecordSourceError(sourceName, opCandidates)
		return nil, fmt.Errorf("%w: %w", sources.ErrCandidatePool, err)
	}
	if limit <= 0 {
		return []model.Asset{}, nil
	}

	start := time.Now()
	rng := rand.New(rand.NewPCG(g.seed, g.seed^0x9e3779b97f4a7c15)) //nolint:gosec // demo data
	listedAt := g.now().UTC()
	out := make([]model.Asset, 0, limit)

	for i := 0; i < limit; i++ {
		picks := rng.Perm(len(Traits))[:rng.IntN(maxTraits)+1]
		meta := make(map[string]any, len(picks))
		for _, p := range picks {
			meta[Traits[p]] = "true"
		}

		price := rng.Float64()*priceRange + minPrice
		out = append(out, model.Asset{
			ID:          fmt.Sprintf("0x%013x", rng.Uint64()>>12),
			Name:        fmt.Sprintf("Candidate NFT #%d", i+1),
			Collection:  Collections[rng.IntN(len(Collections))],
			Description: fmt.Sprintf("Sample marketplace NFT %d", i+1),
			ImageURL:    imageURL,
			Metadata:    meta,
			Price:       &price,
			ListedAt:    listedAt,
		})
	}

	metrics.RecordSourceLatency(sourceName, opCandidates, float64(time.Since(start).Milliseconds()))
	g.log.Debug(ctx, "generated candidate pool", logger.Int("candidates", len(out)))
	return out, nil
}
