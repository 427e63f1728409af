package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"order-analysis/internal/database"
	"order-analysis/internal/export"
	"order-analysis/internal/orders"
	"order-analysis/internal/report"
	"order-analysis/internal/source"
	"order-analysis/internal/workers"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}

// badRequest marks errors in the caller's query parameters.
type badRequest struct {
	err error
}

func (e *badRequest) Error() string { return e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

func invalidParam(name, value string, err error) error {
	return &badRequest{err: fmt.Errorf("invalid %s %q: %w", name, value, err)}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		bad     *badRequest
		missing *orders.MissingColumnError
		fetch   *source.FetchError
	)
	switch {
	case errors.As(err, &bad),
		errors.Is(err, report.ErrUnknownHub),
		errors.Is(err, export.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, export.ErrUnknownTable),
		errors.Is(err, database.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, workers.ErrSnapshotInProgress):
		return http.StatusConflict
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity
	case errors.As(err, &fetch):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		logger.Warn("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
