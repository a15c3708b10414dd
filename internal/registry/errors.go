package registry

import (
	"errors"

	"github.com/aanand-mishra/health-registry/internal/storage"
)

// Error categories. Match them with errors.Is; the message shown to the
// caller comes from *Error.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = storage.ErrNotFound
	ErrConflict   = storage.ErrConflict
)

// Error is a domain failure with a caller-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Invalid reports input the caller has to fix.
func Invalid(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func notFound(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func conflict(msg string) error {
	return &Error{Kind: ErrConflict, Message: msg}
}
