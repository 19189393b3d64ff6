// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	service "github.com/okian/affinity/internal/app"
	"github.com/okian/affinity/internal/domain/model"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ProfileDependencies
	RecommendDependencies
	JobDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	profilesHandler  *ProfilesHandler
	recommendHandler *RecommendationsHandler
	jobsHandler      *JobsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		profilesHandler:  NewProfilesHandler(deps),
		recommendHandler: NewRecommendationsHandler(deps),
		jobsHandler:      NewJobsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/profiles", MetricsMiddleware(s.profilesHandler.HandlePostProfile, "profiles"))
	mux.HandleFunc("/recommendations", MetricsMiddleware(s.recommendHandler.HandlePostRecommendations, "recommendations"))
	mux.HandleFunc("/recommendations/jobs", MetricsMiddleware(s.jobsHandler.HandlePostJob, "jobs"))
	mux.HandleFunc("/recommendations/jobs/", MetricsMiddleware(s.jobsHandler.HandleGetJob, "job"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// tasteProfile is the client-facing profile summary.
type tasteProfile struct {
	TotalAssets int              `json:"total_assets"`
	TopTags     []model.TagCount `json:"top_tags"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = message(err)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a bounded JSON body into v and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return validateRequest(v)
}

// writeServiceError maps a service error to its HTTP status and code.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	code := service.ErrorCode(err)
	status := http.StatusInternalServerError
	wrapped := Wrap(op, err)
	switch code {
	case service.CodeInvalidRequest:
		status = http.StatusBadRequest
		wrapped = WrapKind(op, ErrBadRequest, err)
	case service.CodeInsufficientData:
		status = http.StatusUnprocessableEntity
	case service.CodeOwnershipLookup, service.CodeCandidatePool:
		status = http.StatusBadGateway
	case service.CodeBackpressure:
		status = http.StatusTooManyRequests
		wrapped = WrapKind(op, ErrBackpressure, err)
	case service.CodeNotFound:
		status = http.StatusNotFound
		wrapped = WrapKind(op, ErrNotFound, err)
	case service.CodeUnavailable:
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, code, wrapped)
}
