// Package request holds the input-parsing helpers shared by the JSON and
// form handlers. Every failure is a registry validation error so the
// handlers can hand it straight to response.FromError.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aanand-mishra/health-registry/internal/registry"
)

// MaxBodyBytes caps JSON and form bodies.
const MaxBodyBytes = 1 << 20

// DecodeJSON reads the request body into v. Unknown fields are ignored.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return registry.Invalid("request body is empty")
	}
	if err != nil {
		return registry.Invalid(fmt.Sprintf("invalid request body: %s", err.Error()))
	}
	return nil
}

// PathID parses the {id} path segment as a positive integer.
func PathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, registry.Invalid("invalid id: must be a positive integer")
	}
	return id, nil
}

// ParseForm parses a urlencoded or multipart body with the size cap.
func ParseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return registry.Invalid(fmt.Sprintf("invalid form: %s", err.Error()))
	}
	return nil
}

// FormString returns the trimmed value of key, or nil when it is empty.
func FormString(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.PostFormValue(key))
	if v == "" {
		return nil
	}
	return &v
}

// FormInt returns the value of key as an int, nil when the field is empty,
// and a validation error when it is not a whole number.
func FormInt(r *http.Request, key string) (*int, error) {
	v := strings.TrimSpace(r.PostFormValue(key))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, registry.Invalid(fmt.Sprintf("%s must be a whole number", key))
	}
	return &n, nil
}

// FormID returns the value of key as an id. Missing or malformed values
// come back as 0 and are rejected by the "required" rule downstream.
func FormID(r *http.Request, key string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue(key)), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
