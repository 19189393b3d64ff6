package api

import (
	"context"
	"net/http"

	"github.com/okian/affinity/internal/domain/model"
)

// ProfileDependencies defines what the profiles handler needs.
type ProfileDependencies interface {
	Profile(ctx context.Context, holderID string, topK int) (model.Profile, error)
}

// ProfilesHandler handles profile requests.
type ProfilesHandler struct {
	deps ProfileDependencies
}

// NewProfilesHandler creates a new profiles handler.
func NewProfilesHandler(deps ProfileDependencies) *ProfilesHandler {
	return &ProfilesHandler{deps: deps}
}

type profileRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required,max=256"`
	TopK          int    `json:"top_k,omitempty" validate:"gte=0"`
}

type profileResponse struct {
	Success bool          `json:"success"`
	Profile model.Profile `json:"profile"`
}

// HandlePostProfile handles POST /profiles requests.
func (h *ProfilesHandler) HandlePostProfile(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_profile"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	p, err := h.deps.Profile(r.Context(), req.WalletAddress, req.TopK)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Success: true, Profile: p})
}
