// Package registry implements the domain operations of the health
// registry: registering clients, defining programs, enrolling clients into
// programs, and the read side (lookups, search, profiles, dashboard).
//
// Both the JSON API and the server-rendered pages go through a *Service,
// so validation and error semantics are identical on every surface.
//
// Failures come back as one of:
//   - validator.ValidationErrors, or *Error wrapping ErrValidation: bad input
//   - *Error wrapping ErrNotFound: a referenced entity does not exist
//   - *Error wrapping ErrConflict: the client is already enrolled
//   - anything else: an infrastructure failure
package registry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/aanand-mishra/health-registry/internal/metrics"
	"github.com/aanand-mishra/health-registry/internal/storage"
	"github.com/aanand-mishra/health-registry/internal/types"
)

type Service struct {
	store    storage.Storage
	validate *validator.Validate
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*Service)

// WithMetrics records domain events on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the source of enrollment timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		store:    store,
		validate: newValidator(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newValidator reports fields by their json name ("client_id", not
// "ClientID") so messages match what callers actually sent.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("registry: register notblank: %v", err))
	}
	return v
}

// ─────────────────────────────────────────────────────────────────────────────
// Clients
// ─────────────────────────────────────────────────────────────────────────────

// CreateClient validates and persists a client and returns its id.
// Nothing is written when validation fails.
func (s *Service) CreateClient(ctx context.Context, client types.Client) (int64, error) {
	if err := s.validate.Struct(client); err != nil {
		return 0, err
	}

	id, err := s.store.CreateClient(ctx, client)
	if err != nil {
		return 0, fmt.Errorf("create client: %w", err)
	}

	s.metrics.ClientRegistered()
	return id, nil
}

func (s *Service) GetClient(ctx context.Context, id int64) (types.Client, error) {
	client, err := s.store.GetClientByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return types.Client{}, notFound("client not found")
		}
		return types.Client{}, fmt.Errorf("get client: %w", err)
	}
	return client, nil
}

// SearchClients returns clients whose name contains pattern, ignoring
// case. Surrounding whitespace in pattern is ignored; a blank pattern is
// a validation error. No match yields an empty slice.
func (s *Service) SearchClients(ctx context.Context, pattern string) ([]types.Client, error) {
	req := types.SearchRequest{Name: strings.TrimSpace(pattern)}
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	clients, err := s.store.SearchClientsByName(ctx, req.Name)
	if err != nil {
		return nil, fmt.Errorf("search clients: %w", err)
	}
	return clients, nil
}

func (s *Service) ListClients(ctx context.Context) ([]types.Client, error) {
	clients, err := s.store.GetClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Programs
// ─────────────────────────────────────────────────────────────────────────────

func (s *Service) CreateProgram(ctx context.Context, program types.Program) (int64, error) {
	if err := s.validate.Struct(program); err != nil {
		return 0, err
	}

	id, err := s.store.CreateProgram(ctx, program)
	if err != nil {
		return 0, fmt.Errorf("create program: %w", err)
	}

	s.metrics.ProgramCreated()
	return id, nil
}

func (s *Service) GetProgram(ctx context.Context, id int64) (types.Program, error) {
	program, err := s.store.GetProgramByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return types.Program{}, notFound("program not found")
		}
		return types.Program{}, fmt.Errorf("get program: %w", err)
	}
	return program, nil
}

func (s *Service) ListPrograms(ctx context.Context) ([]types.Program, error) {
	programs, err := s.store.GetPrograms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	return programs, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Enrollment
// ─────────────────────────────────────────────────────────────────────────────

// Enroll links a client to a program and returns the enrollment id.
//
// The existence lookups only pick the right message; the storage layer's
// unique and foreign key constraints are what actually guard the insert,
// so concurrent callers cannot produce a duplicate pair.
func (s *Service) Enroll(ctx context.Context, req types.EnrollRequest) (int64, error) {
	if err := s.validate.Struct(req); err != nil {
		s.metrics.EnrollmentRejected(metrics.ReasonInvalid)
		return 0, err
	}

	if _, err := s.GetClient(ctx, req.ClientID); err != nil {
		s.rejected(err)
		return 0, err
	}
	if _, err := s.GetProgram(ctx, req.ProgramID); err != nil {
		s.rejected(err)
		return 0, err
	}

	id, err := s.store.CreateEnrollment(ctx, req.ClientID, req.ProgramID, s.now().UTC())
	switch {
	case errors.Is(err, storage.ErrConflict):
		err = conflict("client is already enrolled in this program")
	case errors.Is(err, storage.ErrNotFound):
		err = notFound("client or program not found")
	case err != nil:
		return 0, fmt.Errorf("enroll: %w", err)
	}
	if err != nil {
		s.rejected(err)
		return 0, err
	}

	s.metrics.Enrolled()
	return id, nil
}

func (s *Service) rejected(err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		s.metrics.EnrollmentRejected(metrics.ReasonNotFound)
	case errors.Is(err, ErrConflict):
		s.metrics.EnrollmentRejected(metrics.ReasonConflict)
	}
}

func (s *Service) ListEnrollments(ctx context.Context) ([]types.Enrollment, error) {
	enrollments, err := s.store.GetEnrollments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// ClientProfile returns the client with the programs it is enrolled in.
func (s *Service) ClientProfile(ctx context.Context, clientID int64) (types.ClientProfile, error) {
	client, err := s.GetClient(ctx, clientID)
	if err != nil {
		return types.ClientProfile{}, err
	}

	programs, err := s.store.GetProgramsByClientID(ctx, clientID)
	if err != nil {
		return types.ClientProfile{}, fmt.Errorf("client profile: %w", err)
	}

	return types.ClientProfile{Client: client, Programs: programs}, nil
}

// Ping reports whether storage is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
