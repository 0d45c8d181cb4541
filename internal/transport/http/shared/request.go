package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
)

// DecodeJSON reads one JSON object into dst, rejecting unknown fields. It
// writes the failure response itself and reports whether decoding worked.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", middleware.GetRequestID(r.Context()))
			return false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "request body must contain a single JSON object", middleware.GetRequestID(r.Context()))
		return false
	}
	return true
}

// Bind decodes and validates a payload. false means a response was written.
func Bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !DecodeJSON(w, r, dst) {
		return false
	}
	v := NewValidator()
	v.Struct(dst)
	return !v.Reject(w, middleware.GetRequestID(r.Context()))
}

func ClientIP(r *http.Request) string {
	return middleware.ClientIP(r)
}

// QueryTrim returns a trimmed query parameter.
func QueryTrim(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
