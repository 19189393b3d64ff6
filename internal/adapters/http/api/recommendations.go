package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	service "github.com/okian/affinity/internal/app"
	"github.com/okian/affinity/internal/domain/engine"
	"github.com/okian/affinity/internal/domain/model"
)

var errNoAssets = errors.New("no assets found in wallet, need at least one to build a taste profile")

// RecommendDependencies defines what the recommendations handler needs.
type RecommendDependencies interface {
	Recommend(ctx context.Context, holderID string, topN int) (model.Recommendation, error)
}

// RecommendationsHandler handles synchronous recommendation requests.
type RecommendationsHandler struct {
	deps RecommendDependencies
}

// NewRecommendationsHandler creates a new recommendations handler.
func NewRecommendationsHandler(deps RecommendDependencies) *RecommendationsHandler {
	return &RecommendationsHandler{deps: deps}
}

type recommendRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required,max=256"`
	TopN          int    `json:"top_n,omitempty" validate:"gte=0"`
}

type recommendResponse struct {
	Success         bool                    `json:"success"`
	WalletAddress   string                  `json:"wallet_address"`
	TasteProfile    tasteProfile            `json:"taste_profile"`
	Recommendations []model.ScoredCandidate `json:"recommendations"`
	GeneratedAt     time.Time               `json:"generated_at"`
}

func newRecommendResponse(rec *model.Recommendation) recommendResponse {
	return recommendResponse{
		Success:       true,
		WalletAddress: rec.HolderID,
		TasteProfile: tasteProfile{
			TotalAssets: rec.Profile.TotalAssets,
			TopTags:     rec.Profile.TopTags,
		},
		Recommendations: rec.Recommendations,
		GeneratedAt:     rec.GeneratedAt,
	}
}

// HandlePostRecommendations handles POST /recommendations requests.
func (h *RecommendationsHandler) HandlePostRecommendations(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_recommendations"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req recommendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	rec, err := h.deps.Recommend(r.Context(), req.WalletAddress, req.TopN)
	if err != nil {
		if errors.Is(err, engine.ErrInsufficientData) {
			writeError(w, http.StatusUnprocessableEntity, service.CodeInsufficientData,
				WrapKind(op, engine.ErrInsufficientData, errNoAssets))
			return
		}
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newRecommendResponse(&rec))
}
