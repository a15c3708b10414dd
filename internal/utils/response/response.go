// Package response provides helpers for writing consistent JSON HTTP
// responses and for turning registry errors into status codes.
//
// Success responses may be any JSON shape (a client, a list, an id...).
// Error responses always look like:
//
//	{ "status": "error", "error": "field name is required" }
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/health-registry/internal/registry"
)

// Response is the standard envelope returned for error cases.
type Response struct {
	Status string `json:"status"` // "ok" or "error"
	Error  string `json:"error,omitempty"` // human-readable error detail
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// WriteJSON writes data as JSON with the given HTTP status code.
//
// Order matters: Header() → WriteHeader() → body. Once WriteHeader is
// called, headers are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps any Go error into the standard Response shape.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ValidationError converts validator field errors into a single
// human-readable Response, one sentence per failing field joined by ", ".
//
//	{ "status": "error", "error": "field name is required, field age must be at least 0" }
func ValidationError(errs validator.ValidationErrors) Response {
	var errMessages []string

	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is required", e.Field()))
		case "notblank":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must not be blank", e.Field()))
		case "max":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be at most %s characters", e.Field(), e.Param()))
		case "gte":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be at least %s", e.Field(), e.Param()))
		case "lte":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be at most %s", e.Field(), e.Param()))
		case "gt":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be greater than %s", e.Field(), e.Param()))
		default:
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return Response{
		Status: StatusError,
		Error:  strings.Join(errMessages, ", "),
	}
}

// FromError picks the HTTP status and body for an error returned by the
// registry. A duplicate enrollment is reported as 400 alongside other
// input problems. Unclassified errors become a 500 with a generic message
// so internal details do not leak; callers should log the original.
func FromError(err error) (int, Response) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest, ValidationError(verrs)
	case errors.Is(err, registry.ErrValidation), errors.Is(err, registry.ErrConflict):
		return http.StatusBadRequest, GeneralError(err)
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound, GeneralError(err)
	default:
		return http.StatusInternalServerError, GeneralError(errors.New("internal server error"))
	}
}

// WriteError is FromError followed by WriteJSON.
func WriteError(w http.ResponseWriter, err error) error {
	status, body := FromError(err)
	return WriteJSON(w, status, body)
}

// Fail logs err under msg and writes the matching error response.
// Client mistakes are logged at info, server failures at error.
func Fail(w http.ResponseWriter, log *slog.Logger, msg string, err error) {
	status, body := FromError(err)
	if status >= http.StatusInternalServerError {
		log.Error(msg, slog.String("error", err.Error()))
	} else {
		log.Info(msg, slog.String("error", err.Error()))
	}
	WriteJSON(w, status, body)
}
