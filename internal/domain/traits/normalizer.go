// Package traits maps heterogeneous asset metadata onto canonical,
// lower-cased attribute/value pairs.
//
// Strategy selection is an ordered list of (matcher, strategy) pairs. The
// first matcher that is a case-insensitive substring of the asset's
// collection identifier wins; assets matching nothing use the default
// strategy.
package traits

import (
	"strings"

	"github.com/okian/affinity/internal/domain/model"
)

// Record is the flat key/value view of an asset handed to a Strategy.
type Record map[string]any

// Strategy extracts canonical attributes from a record. Implementations
// must not fail: malformed input yields fewer attributes.
type Strategy func(rec Record) map[string]string

// entry is one registered (matcher, strategy) pair.
type entry struct {
	matcher  string
	strategy Strategy
}

// Normalizer selects a strategy per collection and applies it.
// A Normalizer is immutable after construction and safe for concurrent use.
type Normalizer struct {
	entries  []entry
	fallback Strategy
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithStrategy appends a named strategy after the ones already registered.
// Empty matchers and nil strategies are ignored.
func WithStrategy(matcher string, s Strategy) Option {
	return func(n *Normalizer) {
		n.add(matcher, s)
	}
}

// WithDefaultStrategy replaces the fallback strategy.
func WithDefaultStrategy(s Strategy) Option {
	return func(n *Normalizer) {
		if s != nil {
			n.fallback = s
		}
	}
}

// WithoutBuiltins drops the built-in collection strategies.
func WithoutBuiltins() Option {
	return func(n *Normalizer) {
		n.entries = nil
	}
}

// NewNormalizer creates a normalizer with the built-in strategies
// (frens, capsule) followed by any strategies passed as options.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{fallback: DefaultStrategy}
	n.add("frens", FrensStrategy)
	n.add("capsule", CapsuleStrategy)

	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Normalizer) add(matcher string, s Strategy) {
	matcher = strings.ToLower(strings.TrimSpace(matcher))
	if matcher == "" || s == nil {
		return
	}
	n.entries = append(n.entries, entry{matcher: matcher, strategy: s})
}

// Register returns a copy of n with s appended to the strategy list.
// Existing strategies and their order are left untouched.
func (n *Normalizer) Register(matcher string, s Strategy) *Normalizer {
	cp := &Normalizer{
		entries:  append([]entry(nil), n.entries...),
		fallback: n.fallback,
	}
	cp.add(matcher, s)
	return cp
}

// Matchers returns the registered matchers in evaluation order.
func (n *Normalizer) Matchers() []string {
	out := make([]string, len(n.entries))
	for i, e := range n.entries {
		out[i] = e.matcher
	}
	return out
}

// Select returns the strategy used for a collection identifier and the
// matcher that selected it ("" for the fallback).
func (n *Normalizer) Select(collection string) (Strategy, string) {
	key := strings.ToLower(collection)
	if key != "" {
		for _, e := range n.entries {
			if strings.Contains(key, e.matcher) {
				return e.strategy, e.matcher
			}
		}
	}
	return n.fallback, ""
}

// Normalize returns the canonical attributes of asset.
func (n *Normalizer) Normalize(asset model.Asset) map[string]string {
	strategy, _ := n.Select(asset.Collection)
	out := strategy(RecordOf(asset))
	if out == nil {
		return map[string]string{}
	}
	return out
}

// RecordOf flattens an asset into the record strategies read from.
// Metadata keys override the name, description and image_url fields.
func RecordOf(asset model.Asset) Record {
	rec := make(Record, len(asset.Metadata)+3)
	if asset.Name != "" {
		rec["name"] = asset.Name
	}
	if asset.Description != "" {
		rec["description"] = asset.Description
	}
	if asset.ImageURL != "" {
		rec["image_url"] = asset.ImageURL
	}
	for k, v := range asset.Metadata {
		rec[k] = v
	}
	return rec
}
