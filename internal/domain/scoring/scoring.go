// Package scoring computes the affinity of one candidate asset for one
// holder profile.
//
//	score = Σ count(tag) × TagWeight             (matched tags)
//	      + SalienceBonus × |matched ∩ top-K|
//
// The salience bonus is a profile-level term and is not attributed to any
// single tag in the contribution breakdown.
package scoring

import (
	"sort"

	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/internal/domain/profile"
)

// Default weighting constants. They carry no derivation and are exposed as
// tunables through WithWeights.
const (
	DefaultTagWeight     = 5.0
	DefaultSalienceBonus = 10.0
	unknownLabel         = "Unknown"
)

// Weights controls the two score terms.
type Weights struct {
	// TagWeight multiplies the profile count of every matched tag.
	TagWeight float64
	// SalienceBonus is added once per matched tag that is in the top-K list.
	SalienceBonus float64
}

// DefaultWeights returns the stock 5/10 weighting.
func DefaultWeights() Weights {
	return Weights{TagWeight: DefaultTagWeight, SalienceBonus: DefaultSalienceBonus}
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights overrides the weighting. Negative values are ignored so that
// scores stay non-negative.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		if w.TagWeight >= 0 {
			s.weights.TagWeight = w.TagWeight
		}
		if w.SalienceBonus >= 0 {
			s.weights.SalienceBonus = w.SalienceBonus
		}
	}
}

// Scorer scores candidates. It is stateless and safe for concurrent use.
type Scorer struct {
	normalizer profile.Normalizer
	weights    Weights
}

// NewScorer creates a Scorer that normalizes candidates with n.
func NewScorer(n profile.Normalizer, opts ...Option) *Scorer {
	s := &Scorer{normalizer: n, weights: DefaultWeights()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the weighting in effect.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score computes the affinity of candidate for p. An unmatched candidate
// scores zero with an empty breakdown.
func (s *Scorer) Score(candidate model.Asset, p *model.Profile) model.ScoredCandidate {
	out := model.ScoredCandidate{
		AssetID:       candidate.ID,
		Name:          orUnknown(candidate.Name),
		Collection:    orUnknown(candidate.Collection),
		Contributions: []model.Contribution{},
		Price:         candidate.Price,
	}

	top := make(map[model.Tag]struct{})
	if p != nil {
		for _, tc := range p.TopTags {
			top[tc.Tag] = struct{}{}
		}
	}

	salient := 0
	for _, tag := range profile.Tags(s.normalizer.Normalize(candidate)) {
		count := p.Count(tag)
		if count <= 0 {
			continue
		}
		value := float64(count) * s.weights.TagWeight
		out.Score += value
		out.Contributions = append(out.Contributions, model.Contribution{Tag: tag, Value: value})
		if _, ok := top[tag]; ok {
			salient++
		}
	}
	out.Score += float64(salient) * s.weights.SalienceBonus

	sort.SliceStable(out.Contributions, func(i, j int) bool {
		return out.Contributions[i].Value > out.Contributions[j].Value
	})
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return unknownLabel
	}
	return s
}
