// Package ranking orders a candidate pool by affinity score.
package ranking

import (
	"sort"

	"github.com/okian/affinity/internal/domain/model"
)

// DefaultTopN is the number of recommendations returned when none is requested.
const DefaultTopN = 5

// Scorer scores one candidate against one profile.
type Scorer interface {
	Score(candidate model.Asset, p *model.Profile) model.ScoredCandidate
}

// Ranker scores and orders candidate pools.
type Ranker struct {
	scorer Scorer
}

// NewRanker creates a Ranker backed by s.
func NewRanker(s Scorer) *Ranker {
	return &Ranker{scorer: s}
}

// Rank scores every candidate, orders them by score descending and returns
// the first n. Equal scores keep their input order. n <= 0 yields an empty
// slice; a pool smaller than n is returned whole.
func (r *Ranker) Rank(candidates []model.Asset, p *model.Profile, n int) []model.ScoredCandidate {
	if n <= 0 {
		return []model.ScoredCandidate{}
	}

	scored := make([]model.ScoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = r.scorer.Score(c, p)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > n {
		scored = scored[:n]
	}
	return scored
}
