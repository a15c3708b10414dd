// Package storage defines the Storage interface, the contract any database
// backend must satisfy to work with this application.
//
// Handlers and the registry depend only on this interface, so tests can
// swap in a mock and a different database only needs a new implementation.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/aanand-mishra/health-registry/internal/types"
)

// Sentinel errors for storage facts. Implementations wrap these (with %w)
// so callers can translate them with errors.Is.
var (
	// ErrNotFound: the row does not exist, or a referenced row is missing.
	ErrNotFound = errors.New("not found")
	// ErrConflict: the write would break a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

// Storage is the database contract.
type Storage interface {
	// CreateClient inserts a client and returns its generated id.
	CreateClient(ctx context.Context, client types.Client) (int64, error)

	// GetClientByID returns ErrNotFound (wrapped) when no row matches.
	GetClientByID(ctx context.Context, id int64) (types.Client, error)

	// GetClients returns every client in id order, never nil.
	GetClients(ctx context.Context) ([]types.Client, error)

	// SearchClientsByName returns clients whose name contains fragment,
	// ignoring case. Wildcard characters in fragment match literally.
	SearchClientsByName(ctx context.Context, fragment string) ([]types.Client, error)

	CreateProgram(ctx context.Context, program types.Program) (int64, error)
	GetProgramByID(ctx context.Context, id int64) (types.Program, error)
	GetPrograms(ctx context.Context) ([]types.Program, error)

	// CreateEnrollment returns ErrConflict when the (client, program) pair
	// is already enrolled and ErrNotFound when either side does not exist.
	CreateEnrollment(ctx context.Context, clientID, programID int64, at time.Time) (int64, error)
	GetEnrollments(ctx context.Context) ([]types.Enrollment, error)

	// GetProgramsByClientID joins through enrollments, in enrollment order.
	GetProgramsByClientID(ctx context.Context, clientID int64) ([]types.Program, error)

	Ping(ctx context.Context) error
	Close() error
}
