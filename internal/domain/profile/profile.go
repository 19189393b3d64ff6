// Package profile aggregates a holder's owned assets into a tag-frequency
// profile.
package profile

import (
	"sort"

	"github.com/okian/affinity/internal/domain/model"
)

// DefaultTopK is the size of the salient-tag list when none is requested.
const DefaultTopK = 10

// Normalizer maps an asset onto canonical attribute/value pairs.
type Normalizer interface {
	Normalize(asset model.Asset) map[string]string
}

// Builder builds profiles. It holds no per-call state.
type Builder struct {
	normalizer Normalizer
	topK       int
}

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithTopK sets the default size of the top-K list.
func WithTopK(k int) Option {
	return func(b *Builder) {
		if k > 0 {
			b.topK = k
		}
	}
}

// NewBuilder creates a Builder around n.
func NewBuilder(n Normalizer, opts ...Option) *Builder {
	b := &Builder{normalizer: n, topK: DefaultTopK}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build counts composite tags across owned and derives the top-K list.
// topK <= 0 uses the builder's default.
func (b *Builder) Build(holderID string, owned []model.Asset, topK int) model.Profile {
	if topK <= 0 {
		topK = b.topK
	}

	p := model.Profile{
		HolderID:    holderID,
		TotalAssets: len(owned),
		Tags:        make(map[model.Tag]int),
		Order:       []model.Tag{},
	}

	for _, asset := range owned {
		for _, tag := range Tags(b.normalizer.Normalize(asset)) {
			if _, seen := p.Tags[tag]; !seen {
				p.Order = append(p.Order, tag)
			}
			p.Tags[tag]++
		}
	}

	p.TopTags = TopK(p.Tags, p.Order, topK)
	return p
}

// TopK returns the k most frequent tags. Ties keep their position in order.
func TopK(counts map[model.Tag]int, order []model.Tag, k int) []model.TagCount {
	ranked := make([]model.TagCount, 0, len(order))
	for _, tag := range order {
		ranked = append(ranked, model.TagCount{Tag: tag, Count: counts[tag]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if k < 0 {
		k = 0
	}
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// Tags turns normalized attributes into composite tags, ordered by
// attribute name so iteration over a single asset is reproducible.
// Distinct attributes that collapse onto the same tag ("a_b"="c" and
// "a"="b_c") are reported once.
func Tags(attrs map[string]string) []model.Tag {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	tags := make([]model.Tag, 0, len(names))
	seen := make(map[model.Tag]struct{}, len(names))
	for _, name := range names {
		tag := model.NewTag(name, attrs[name])
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
