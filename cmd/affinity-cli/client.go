package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/affinity/pkg/logger"
)

type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d %s: %s", e.Status, e.Code, e.Message)
}

type jobState struct {
	JobID  string    `json:"job_id"`
	Status string    `json:"status"`
	Error  *apiError `json:"error,omitempty"`
}

func recommendPayload(wallet string, topN int) map[string]any {
	payload := map[string]any{"wallet_address": wallet}
	if topN > 0 {
		payload["top_n"] = topN
	}
	return payload
}

// recommend posts to /recommendations and returns the decoded body.
func (c *apiClient) recommend(ctx context.Context, wallet string, topN int) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodPost, "/recommendations", recommendPayload(wallet, topN), http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// submitJob queues an asynchronous recommendation.
func (c *apiClient) submitJob(ctx context.Context, wallet string, topN int) (jobState, error) {
	var out jobState
	err := c.do(ctx, http.MethodPost, "/recommendations/jobs", recommendPayload(wallet, topN), http.StatusAccepted, &out)
	return out, err
}

// job reads a job's current state.
func (c *apiClient) job(ctx context.Context, id string) (jobState, error) {
	var out jobState
	err := c.do(ctx, http.MethodGet, "/recommendations/jobs/"+id, nil, http.StatusOK, &out)
	return out, err
}

// health checks that the server answers /healthz.
func (c *apiClient) health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, nil)
}

// do sends payload as JSON and decodes a response with status want into out.
// Any other status is returned as an *apiError.
func (c *apiClient) do(ctx context.Context, method, path string, payload any, want int, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	logger.Get().Debug(ctx, "api call",
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.Duration("took", time.Since(start)))

	if resp.StatusCode != want {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
