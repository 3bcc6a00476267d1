package handler

// RESPONSE HELPERS:
// Every JSON endpoint answers through writeJSON / writeError, so success and
// failure bodies have one shape across the API:
//
//	{"error": "not_found", "message": "listing not found with id 7"}
//
// The catalog page and the admin grid both parse that shape; a 4xx from any
// endpoint can be shown to the user as-is via "message".

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sakif/veiculos/internal/apperror"
)

// maxJSONBody caps request bodies on the JSON endpoints. The bulk grid save
// is the largest legitimate payload.
const maxJSONBody = 8 << 20

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable kind, e.g. "not_found"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // offending input, for validation errors
}

// writeJSON sets the content type, then the status, then encodes the body.
// Headers are frozen once WriteHeader runs.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Status already sent; all we can do is log.
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// errorStatus maps a domain error onto an HTTP status and error kind.
//
// errors.Is walks the whole Unwrap chain, so a service error like
//
//	fmt.Errorf("creating listing: %w", apperror.ValidationFailed(...))
//
// still lands on ErrValidation.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError sends err in the standard error shape.
//
// Only *apperror.AppError messages reach the client. Anything else becomes
// a generic 500: raw errors carry file paths and SQL.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status, kind := errorStatus(err)
	writeJSON(w, status, ErrorResponse{
		Error:   kind,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// isJSON reports whether the request body is JSON. Browsers posting the
// plain HTML forms send urlencoded or multipart bodies instead.
func isJSON(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "application/json"
}

// decodeJSON reads a single JSON value into dst. Unknown fields are ignored
// so the grid can post back the listing views it was given.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("body", "request body is empty")
		}
		return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// queryInt64 parses an optional integer query parameter. Absent or blank
// means nil; anything else must parse.
func queryInt64(q url.Values, key string) (*int64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperror.ValidationFailed(key, fmt.Sprintf("%s must be a whole number", key))
	}
	return &v, nil
}

func queryInt(q url.Values, key string) (*int, error) {
	v, err := queryInt64(q, key)
	if err != nil || v == nil {
		return nil, err
	}
	i := int(*v)
	return &i, nil
}

// formInt64 parses an integer form field. Blank reads as zero and is left
// to the service's range checks.
func formInt64(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(r.FormValue(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.ValidationFailed(key, fmt.Sprintf("%s must be a whole number", key))
	}
	return v, nil
}

// formBool accepts the values HTML checkboxes and the grid send.
func formBool(r *http.Request, key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.FormValue(key))) {
	case "1", "true", "on", "yes", "sim":
		return true
	}
	return false
}
