// Package engine exposes the two operations of the affinity core:
// building a holder profile and ranking a candidate pool against it.
//
// The engine performs no I/O and keeps no state between calls.
package engine

import (
	"errors"

	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/internal/domain/profile"
	"github.com/okian/affinity/internal/domain/ranking"
	"github.com/okian/affinity/internal/domain/scoring"
	"github.com/okian/affinity/internal/domain/traits"
)

// ErrInsufficientData is returned when a holder owns no assets, so there is
// no basis for a recommendation.
var ErrInsufficientData = errors.New("insufficient data: holder owns no assets")

// Result bundles a profile with the ranking computed from it.
type Result struct {
	Profile         model.Profile
	Recommendations []model.ScoredCandidate
}

// Engine composes normalizer, profile builder, scorer and ranker.
type Engine struct {
	normalizer *traits.Normalizer
	builder    *profile.Builder
	scorer     *scoring.Scorer
	ranker     *ranking.Ranker
	topK       int
	topN       int
}

// Option applies a configuration option to the Engine.
type Option func(*config)

type config struct {
	normalizer *traits.Normalizer
	weights    scoring.Weights
	topK       int
	topN       int
}

// WithNormalizer replaces the built-in strategy set.
func WithNormalizer(n *traits.Normalizer) Option {
	return func(c *config) {
		if n != nil {
			c.normalizer = n
		}
	}
}

// WithWeights sets the scoring weights.
func WithWeights(w scoring.Weights) Option {
	return func(c *config) {
		c.weights = w
	}
}

// WithTopK sets the default profile top-K size.
func WithTopK(k int) Option {
	return func(c *config) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithTopN sets the default recommendation count.
func WithTopN(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.topN = n
		}
	}
}

// New builds an Engine.
func New(opts ...Option) *Engine {
	c := &config{
		weights: scoring.DefaultWeights(),
		topK:    profile.DefaultTopK,
		topN:    ranking.DefaultTopN,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.normalizer == nil {
		c.normalizer = traits.NewNormalizer()
	}

	scorer := scoring.NewScorer(c.normalizer, scoring.WithWeights(c.weights))
	return &Engine{
		normalizer: c.normalizer,
		builder:    profile.NewBuilder(c.normalizer, profile.WithTopK(c.topK)),
		scorer:     scorer,
		ranker:     ranking.NewRanker(scorer),
		topK:       c.topK,
		topN:       c.topN,
	}
}

// BuildProfile builds a fresh profile from owned. topK <= 0 uses the default.
func (e *Engine) BuildProfile(holderID string, owned []model.Asset, topK int) model.Profile {
	return e.builder.Build(holderID, owned, topK)
}

// RankCandidates scores candidates against p and returns the best topN.
// Callers that want the default count pass DefaultTopN.
func (e *Engine) RankCandidates(p *model.Profile, candidates []model.Asset, topN int) []model.ScoredCandidate {
	return e.ranker.Rank(candidates, p, topN)
}

// Score scores a single candidate.
func (e *Engine) Score(candidate model.Asset, p *model.Profile) model.ScoredCandidate {
	return e.scorer.Score(candidate, p)
}

// DefaultTopK returns the configured salient-tag list length.
func (e *Engine) DefaultTopK() int {
	return e.topK
}

// DefaultTopN returns the configured default recommendation count.
func (e *Engine) DefaultTopN() int {
	return e.topN
}

// Weights returns the scoring weights in effect.
func (e *Engine) Weights() scoring.Weights {
	return e.scorer.Weights()
}

// Normalizer returns the engine's normalizer.
func (e *Engine) Normalizer() *traits.Normalizer {
	return e.normalizer
}

// Recommend builds a profile and ranks candidates against it. It refuses to
// rank for a holder with no assets. topK/topN <= 0 use the defaults.
func (e *Engine) Recommend(holderID string, owned, candidates []model.Asset, topK, topN int) (Result, error) {
	p := e.BuildProfile(holderID, owned, topK)
	if p.Empty() {
		return Result{Profile: p, Recommendations: []model.ScoredCandidate{}}, ErrInsufficientData
	}
	if topN <= 0 {
		topN = e.topN
	}
	return Result{
		Profile:         p,
		Recommendations: e.RankCandidates(&p, candidates, topN),
	}, nil
}
