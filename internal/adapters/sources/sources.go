// Package sources declares the collaborators that feed the recommendation
// core: who owns what, and which assets are up for recommendation.
package sources

import (
	"context"

	"github.com/okian/affinity/internal/domain/model"
)

// OwnershipSource returns the assets held by a wallet.
type OwnershipSource interface {
	OwnedAssets(ctx context.Context, holderID string) ([]model.Asset, error)
}

// CandidateSource returns at most limit assets to be scored.
type CandidateSource interface {
	Candidates(ctx context.Context, limit int) ([]model.Asset, error)
}

// OwnershipFunc adapts a function to OwnershipSource.
type OwnershipFunc func(ctx context.Context, holderID string) ([]model.Asset, error)

// OwnedAssets calls f.
func (f OwnershipFunc) OwnedAssets(ctx context.Context, holderID string) ([]model.Asset, error) {
	return f(ctx, holderID)
}

// CandidateFunc adapts a function to CandidateSource.
type CandidateFunc func(ctx context.Context, limit int) ([]model.Asset, error)

// Candidates calls f.
func (f CandidateFunc) Candidates(ctx context.Context, limit int) ([]model.Asset, error) {
	return f(ctx, limit)
}
