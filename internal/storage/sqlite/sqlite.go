// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface.
//
// Rows are mapped onto the db-tagged structs in package types with sqlx;
// the driver is mattn/go-sqlite3, registered by the blank import below.
//
// Two invariants are enforced by the schema itself rather than by
// read-then-write checks:
//   - UNIQUE(client_id, program_id) on enrollments
//   - foreign keys from enrollments to clients and programs
//
// Foreign key enforcement is off by default in SQLite, so the DSN turns it
// on for every connection in the pool.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/health-registry/internal/config"
	"github.com/aanand-mishra/health-registry/internal/storage"
	"github.com/aanand-mishra/health-registry/internal/types"
)

// schema is applied on every startup; each statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS clients (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		name    TEXT    NOT NULL,
		age     INTEGER,
		gender  TEXT,
		contact TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS programs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL,
		description TEXT,
		category    TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS enrollments (
		id          INTEGER  PRIMARY KEY AUTOINCREMENT,
		client_id   INTEGER  NOT NULL REFERENCES clients(id),
		program_id  INTEGER  NOT NULL REFERENCES programs(id),
		enrolled_at DATETIME NOT NULL,
		UNIQUE (client_id, program_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_enrollments_program_id ON enrollments (program_id)`,
}

// SQLite is the concrete implementation of storage.Storage.
// The embedded *sqlx.DB is a connection pool and safe for concurrent use.
type SQLite struct {
	Db *sqlx.DB
}

var _ storage.Storage = (*SQLite)(nil)

// New opens the database at cfg.StoragePath, creates the tables if they do
// not exist yet, and returns a ready-to-use *SQLite.
func New(cfg *config.Config) (*SQLite, error) {
	db, err := sqlx.Connect("sqlite3", DSN(cfg.StoragePath, cfg.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	s := NewFromDB(db)
	if err := s.CreateSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: %w", err)
	}

	return s, nil
}

// NewFromDB wraps an already opened handle without touching the schema.
func NewFromDB(db *sqlx.DB) *SQLite {
	return &SQLite{Db: db}
}

// DSN builds the go-sqlite3 data source name for path.
//
//	_foreign_keys: enforce REFERENCES clauses
//	_busy_timeout: wait (ms) for a lock instead of failing with SQLITE_BUSY
//	_loc         : decode DATETIME columns as UTC
func DSN(path string, busyTimeout time.Duration) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=%d&_loc=UTC",
		path, busyTimeout.Milliseconds())
}

// CreateSchema applies the table definitions.
func (s *SQLite) CreateSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.Db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.Db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.Db.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Clients
// ─────────────────────────────────────────────────────────────────────────────

// CreateClient inserts a new row into clients. Nil optional fields are
// stored as NULL.
func (s *SQLite) CreateClient(ctx context.Context, client types.Client) (int64, error) {
	result, err := s.Db.NamedExecContext(ctx,
		`INSERT INTO clients (name, age, gender, contact)
		 VALUES (:name, :age, :gender, :contact)`,
		client,
	)
	if err != nil {
		return 0, fmt.Errorf("CreateClient: exec: %w", err)
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("CreateClient: last insert id: %w", err)
	}

	return lastID, nil
}

func (s *SQLite) GetClientByID(ctx context.Context, id int64) (types.Client, error) {
	var client types.Client
	err := s.Db.GetContext(ctx, &client,
		"SELECT id, name, age, gender, contact FROM clients WHERE id = ? LIMIT 1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Client{}, fmt.Errorf("no client found with id %d: %w", id, storage.ErrNotFound)
		}
		return types.Client{}, fmt.Errorf("GetClientByID: %w", err)
	}

	return client, nil
}

func (s *SQLite) GetClients(ctx context.Context) ([]types.Client, error) {
	// Non-nil so an empty table encodes as [] rather than null.
	clients := make([]types.Client, 0)
	if err := s.Db.SelectContext(ctx, &clients,
		"SELECT id, name, age, gender, contact FROM clients ORDER BY id"); err != nil {
		return nil, fmt.Errorf("GetClients: %w", err)
	}
	return clients, nil
}

// SearchClientsByName relies on LIKE being case-insensitive for ASCII in
// SQLite. The fragment is escaped so "%" and "_" only match themselves.
func (s *SQLite) SearchClientsByName(ctx context.Context, fragment string) ([]types.Client, error) {
	clients := make([]types.Client, 0)
	if err := s.Db.SelectContext(ctx, &clients,
		`SELECT id, name, age, gender, contact FROM clients
		 WHERE name LIKE ? ESCAPE '\' ORDER BY id`,
		"%"+escapeLike(fragment)+"%",
	); err != nil {
		return nil, fmt.Errorf("SearchClientsByName: %w", err)
	}
	return clients, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ─────────────────────────────────────────────────────────────────────────────
// Programs
// ─────────────────────────────────────────────────────────────────────────────

func (s *SQLite) CreateProgram(ctx context.Context, program types.Program) (int64, error) {
	result, err := s.Db.NamedExecContext(ctx,
		`INSERT INTO programs (name, description, category)
		 VALUES (:name, :description, :category)`,
		program,
	)
	if err != nil {
		return 0, fmt.Errorf("CreateProgram: exec: %w", err)
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("CreateProgram: last insert id: %w", err)
	}

	return lastID, nil
}

func (s *SQLite) GetProgramByID(ctx context.Context, id int64) (types.Program, error) {
	var program types.Program
	err := s.Db.GetContext(ctx, &program,
		"SELECT id, name, description, category FROM programs WHERE id = ? LIMIT 1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Program{}, fmt.Errorf("no program found with id %d: %w", id, storage.ErrNotFound)
		}
		return types.Program{}, fmt.Errorf("GetProgramByID: %w", err)
	}

	return program, nil
}

func (s *SQLite) GetPrograms(ctx context.Context) ([]types.Program, error) {
	programs := make([]types.Program, 0)
	if err := s.Db.SelectContext(ctx, &programs,
		"SELECT id, name, description, category FROM programs ORDER BY id"); err != nil {
		return nil, fmt.Errorf("GetPrograms: %w", err)
	}
	return programs, nil
}

// GetProgramsByClientID returns the programs a client is enrolled in,
// oldest enrollment first.
func (s *SQLite) GetProgramsByClientID(ctx context.Context, clientID int64) ([]types.Program, error) {
	programs := make([]types.Program, 0)
	if err := s.Db.SelectContext(ctx, &programs,
		`SELECT p.id, p.name, p.description, p.category
		 FROM programs p
		 JOIN enrollments e ON e.program_id = p.id
		 WHERE e.client_id = ?
		 ORDER BY e.id`,
		clientID,
	); err != nil {
		return nil, fmt.Errorf("GetProgramsByClientID: %w", err)
	}
	return programs, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Enrollments
// ─────────────────────────────────────────────────────────────────────────────

// CreateEnrollment inserts a single row. Duplicate pairs and dangling
// references are rejected by the schema in the same statement, so there
// is no window between a check and the insert.
func (s *SQLite) CreateEnrollment(ctx context.Context, clientID, programID int64, at time.Time) (int64, error) {
	result, err := s.Db.ExecContext(ctx,
		"INSERT INTO enrollments (client_id, program_id, enrolled_at) VALUES (?, ?, ?)",
		clientID, programID, at.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("CreateEnrollment: %w", translate(err))
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("CreateEnrollment: last insert id: %w", err)
	}

	return lastID, nil
}

func (s *SQLite) GetEnrollments(ctx context.Context) ([]types.Enrollment, error) {
	enrollments := make([]types.Enrollment, 0)
	if err := s.Db.SelectContext(ctx, &enrollments,
		"SELECT id, client_id, program_id, enrolled_at FROM enrollments ORDER BY id"); err != nil {
		return nil, fmt.Errorf("GetEnrollments: %w", err)
	}
	return enrollments, nil
}

// translate maps constraint violations onto the storage sentinels while
// keeping the driver error in the chain.
func translate(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %w", storage.ErrConflict, err)
	case sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	}
	return err
}
