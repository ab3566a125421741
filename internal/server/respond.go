package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/voyagen/lulutv/internal/fetcher"
	"github.com/voyagen/lulutv/internal/log"
	"github.com/voyagen/lulutv/internal/service"
)

// APIError is the standard error envelope for all error responses.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// statusFor maps service sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrJobRunning):
		return http.StatusConflict
	case errors.Is(err, service.ErrLanguageNotFound),
		errors.Is(err, service.ErrCountryNotFound),
		errors.Is(err, service.ErrSubdivisionNotFound),
		errors.Is(err, service.ErrCityNotFound):
		return http.StatusNotFound
	case errors.Is(err, fetcher.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		logger := log.WithComponentFromContext(r.Context(), "server")
		logger.Error().
			Err(err).
			Str("event", "http.error").
			Int("status", status).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	writeErr(w, status, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponent("server")
		logger.Warn().Err(err).Str("event", "http.encode_failed").Msg("writeJSON")
	}
}

func writeErr(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}

// intParam reads an optional integer query parameter. hi <= 0 means unbounded.
func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", name, v)
	}
	if n < lo || (hi > 0 && n > hi) {
		if hi > 0 {
			return 0, fmt.Errorf("invalid %s: %d (must be %d-%d)", name, n, lo, hi)
		}
		return 0, fmt.Errorf("invalid %s: %d (must be >= %d)", name, n, lo)
	}
	return n, nil
}

func boolParam(r *http.Request, name string, def bool) (bool, error) {
	switch v := r.URL.Query().Get(name); v {
	case "":
		return def, nil
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s: %s (use true or false)", name, v)
	}
}
