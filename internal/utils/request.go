package utils

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"ms-moviebooking/internal/models"
)

// DecodeJSON reads the request body into v. Malformed bodies are validation errors.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return models.Invalid("invalid request body: %v", err)
	}
	return nil
}

// QueryInt returns the integer query parameter key, or def when absent.
func QueryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.Invalid("%s must be an integer, got %q", key, raw)
	}
	return v, nil
}

// QueryTime parses an RFC 3339 query parameter; absent means the zero time.
func QueryTime(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	v, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, models.Invalid("%s must be an RFC 3339 time, got %q", key, raw)
	}
	return v.UTC(), nil
}
