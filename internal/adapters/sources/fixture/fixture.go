// Package fixture serves ownership and candidate data from a local YAML or
// JSON file. It backs local runs, the CLI and tests.
//
// File layout:
//
//	holders:
//	  - wallet_address: "0xabc"
//	    assets:
//	      - object_id: "0x1"
//	        name: Fren with red hat
//	        collection: frens
//	candidates:
//	  - object_id: "0x2"
//	    collection: capsule
//	    traits: {rarity: Rare, color: Red}
//
// Hex literals must be quoted, otherwise YAML reads them as integers.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/affinity/internal/adapters/sources"
	"github.com/okian/affinity/internal/domain/model"
)

// ErrLoadFixture is returned when a fixture file cannot be read or decoded.
var ErrLoadFixture = errors.New("load fixture")

type holderEntry struct {
	WalletAddress string        `koanf:"wallet_address"`
	Assets        []model.Asset `koanf:"assets"`
}

type document struct {
	Holders    []holderEntry `koanf:"holders"`
	Candidates []model.Asset `koanf:"candidates"`
	Assets     []model.Asset `koanf:"assets"`
}

// Store is an immutable in-memory ownership and candidate source.
type Store struct {
	owned      map[string][]model.Asset
	candidates []model.Asset
}

var (
	_ sources.OwnershipSource = (*Store)(nil)
	_ sources.CandidateSource = (*Store)(nil)
)

// NewStore builds a Store from in-memory data. Holder keys are matched
// case-insensitively.
func NewStore(owned map[string][]model.Asset, candidates []model.Asset) *Store {
	s := &Store{owned: make(map[string][]model.Asset, len(owned))}
	for holder, assets := range owned {
		key := holderKey(holder)
		s.owned[key] = append(s.owned[key], assets...)
	}
	s.candidates = append([]model.Asset(nil), candidates...)
	return s
}

// Load reads a fixture file with holders and candidates.
func Load(path string) (*Store, error) {
	doc, err := read(path)
	if err != nil {
		return nil, err
	}
	owned := make(map[string][]model.Asset, len(doc.Holders))
	for _, h := range doc.Holders {
		if strings.TrimSpace(h.WalletAddress) == "" {
			return nil, fmt.Errorf("%w: %s: holder without wallet_address", ErrLoadFixture, path)
		}
		key := holderKey(h.WalletAddress)
		owned[key] = append(owned[key], h.Assets...)
	}
	return NewStore(owned, doc.Candidates), nil
}

// LoadAssets reads a flat asset list stored under "assets", or under
// "candidates" when the file has no "assets" key.
func LoadAssets(path string) ([]model.Asset, error) {
	doc, err := read(path)
	if err != nil {
		return nil, err
	}
	switch {
	case len(doc.Assets) > 0:
		return doc.Assets, nil
	case len(doc.Candidates) > 0:
		return doc.Candidates, nil
	default:
		return []model.Asset{}, nil
	}
}

func read(path string) (document, error) {
	var doc document
	if path == "" {
		return doc, fmt.Errorf("%w: empty path", ErrLoadFixture)
	}
	// Only nested maps are split on the delimiter. Assets live in lists,
	// which are kept whole, so dotted trait keys survive.
	k := koanf.New(".")
	// YAML is a superset of JSON so one parser serves both.
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return doc, fmt.Errorf("%w: %s: %w", ErrLoadFixture, path, err)
	}
	if err := k.Unmarshal("", &doc); err != nil {
		return doc, fmt.Errorf("%w: %s: %w", ErrLoadFixture, path, err)
	}
	return doc, nil
}

// OwnedAssets returns the holder's assets. Unknown holders own nothing.
func (s *Store) OwnedAssets(ctx context.Context, holderID string) ([]model.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", sources.ErrOwnershipLookup, err)
	}
	if strings.TrimSpace(holderID) == "" {
		return nil, fmt.Errorf("%w: %w", sources.ErrOwnershipLookup, sources.ErrInvalidHolder)
	}
	owned := s.owned[holderKey(holderID)]
	out := make([]model.Asset, len(owned))
	copy(out, owned)
	return out, nil
}

// Candidates returns the first limit candidates in file order.
func (s *Store) Candidates(ctx context.Context, limit int) ([]model.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", sources.ErrCandidatePool, err)
	}
	if limit <= 0 {
		return []model.Asset{}, nil
	}
	n := min(limit, len(s.candidates))
	out := make([]model.Asset, n)
	copy(out, s.candidates[:n])
	return out, nil
}

// Holders returns the number of holders in the store.
func (s *Store) Holders() int { return len(s.owned) }

func holderKey(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
