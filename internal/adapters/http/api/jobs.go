package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/okian/affinity/internal/domain/model"
)

// JobDependencies defines what the jobs handler needs.
type JobDependencies interface {
	SubmitJob(ctx context.Context, holderID string, topN int) (model.Job, error)
	Job(ctx context.Context, id string) (model.Job, error)
}

// JobsHandler handles asynchronous recommendation jobs.
type JobsHandler struct {
	deps JobDependencies
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(deps JobDependencies) *JobsHandler {
	return &JobsHandler{deps: deps}
}

type jobAccepted struct {
	JobID       string          `json:"job_id"`
	Status      model.JobStatus `json:"status"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

type jobResponse struct {
	JobID      string             `json:"job_id"`
	Status     model.JobStatus    `json:"status"`
	Result     *recommendResponse `json:"result,omitempty"`
	Error      *errorResponse     `json:"error,omitempty"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
}

// HandlePostJob handles POST /recommendations/jobs requests.
func (h *JobsHandler) HandlePostJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_job"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req recommendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	j, err := h.deps.SubmitJob(r.Context(), req.WalletAddress, req.TopN)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.Header().Set("Location", "/recommendations/jobs/"+j.ID)
	writeJSON(w, http.StatusAccepted, jobAccepted{JobID: j.ID, Status: j.Status, SubmittedAt: j.SubmittedAt})
}

// HandleGetJob handles GET /recommendations/jobs/{job_id} requests.
func (h *JobsHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_job"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/recommendations/jobs/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	j, err := h.deps.Job(r.Context(), id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}

	resp := jobResponse{JobID: j.ID, Status: j.Status}
	if j.Result != nil {
		rec := newRecommendResponse(j.Result)
		resp.Result = &rec
	}
	if j.Status == model.JobFailed {
		resp.Error = &errorResponse{Code: j.ErrorCode, Message: j.Error}
	}
	if !j.FinishedAt.IsZero() {
		finished := j.FinishedAt
		resp.FinishedAt = &finished
	}
	writeJSON(w, http.StatusOK, resp)
}
