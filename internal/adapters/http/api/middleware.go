package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	service "github.com/okian/affinity/internal/app"
	"github.com/okian/affinity/pkg/logger"
	"github.com/okian/affinity/pkg/metrics"
)

// MetricsMiddleware records request count, latency and error class for
// endpoint. A panicking handler is answered with 500 internal_error when
// nothing has been written yet.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				logPanic(r.Context(), endpoint, p)
				if !rec.wrote {
					writeError(rec, http.StatusInternalServerError, service.CodeInternal, nil)
				}
			}
			observe(endpoint, r.Method, rec.status, time.Since(start))
		}()

		next.ServeHTTP(rec, r)
	}
}

func observe(endpoint, method string, status int, took time.Duration) {
	code := strconv.Itoa(status)
	ms := float64(took.Microseconds()) / 1000

	metrics.RecordHTTPRequest(endpoint, method, code)
	metrics.RecordHTTPRequestDuration(endpoint, method, code, ms)
	if status >= http.StatusBadRequest {
		class := errorClass(status)
		metrics.RecordErrorByEndpoint(endpoint, method, class)
		metrics.RecordErrorByType(class, severity(status))
	}
}

func logPanic(ctx context.Context, endpoint string, p any) {
	defer func() { _ = recover() }() // logger not initialized
	logger.Get().Error(ctx, "handler panic",
		logger.String("endpoint", endpoint),
		logger.String("panic", fmt.Sprint(p)))
}

// errorClass buckets a status into the error_type label.
func errorClass(status int) string {
	switch status {
	case http.StatusTooManyRequests:
		return "rate_limit"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "insufficient_data"
	case http.StatusBadGateway:
		return "upstream"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	if status >= http.StatusInternalServerError {
		return "server_error"
	}
	return "client_error"
}

// severity is high for failures the operator owns, medium otherwise.
func severity(status int) string {
	if status >= http.StatusInternalServerError {
		return "high"
	}
	return "medium"
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if rw.wrote {
		return
	}
	rw.status = code
	rw.wrote = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wrote = true
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
