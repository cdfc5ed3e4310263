// Package handlers exposes the wallet service's HTTP surface: a single
// Handlers struct holding every repository and service the endpoints use,
// whose RegisterRoutes mounts every resource group on a chi.Router.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aristath/walletcore/internal/walleterr"
)

// writeJSON encodes v as the response body with status code and a JSON
// content type header.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to the status dictated by its walleterr.Kind
// and writes a small JSON body. Errors that are not *walleterr.Error are
// treated as KindFatal -> 500, never leaking their message to the client.
func writeError(w http.ResponseWriter, err error) {
	if e, ok := walleterr.As(err); ok {
		if e.Retryable() {
			w.Header().Set("Retry-After", "1")
		}
		body := map[string]interface{}{"error": e.Message}
		if e.Detail != "" {
			body["detail"] = e.Detail
		}
		writeJSON(w, e.HTTPStatus(), body)
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "internal error"})
}

// decodeJSON decodes r's body into dst, returning a validation error on
// malformed input rather than a bare 500.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return walleterr.Validation("invalid request body: %v", err)
	}
	return nil
}

// uuidParam parses a chi URL param as a uuid.UUID, returning a validation
// error (never a panic) on malformed input.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, walleterr.Validation("invalid %s %q", name, raw)
	}
	return id, nil
}

// stringParam returns a chi URL param verbatim, for path segments that are
// not UUIDs (e.g. a metal type code).
func stringParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// batchResult is the shape returned by every batch-write endpoint:
// {updated, failed:[{id, detail}]}.
type batchResult struct {
	Updated int           `json:"updated"`
	Failed  []batchFailure `json:"failed"`
}

type batchFailure struct {
	ID     string `json:"id"`
	Detail string `json:"detail"`
}
