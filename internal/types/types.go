// Package types holds the shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, registry, and storage all import types without depending on
// each other.
//
// Struct tags:
//
//  1. json:"..."    : the field name in API payloads.
//  2. db:"..."      : the column name, used by sqlx when scanning rows.
//  3. validate:"...": rules checked by go-playground/validator.
//
// Optional columns are pointers so that "absent" (NULL / JSON null) stays
// distinguishable from a zero value.
package types

import "time"

// Client is a registered individual tracked by the system.
type Client struct {
	ID      int64   `json:"id"      db:"id"`
	Name    string  `json:"name"    db:"name"    validate:"required,notblank,max=100"`
	Age     *int    `json:"age"     db:"age"     validate:"omitempty,gte=0,lte=150"`
	Gender  *string `json:"gender"  db:"gender"  validate:"omitempty,max=10"`
	Contact *string `json:"contact" db:"contact" validate:"omitempty,max=100"`
}

// Program is a named health program clients can be enrolled into.
type Program struct {
	ID          int64   `json:"id"          db:"id"`
	Name        string  `json:"name"        db:"name"        validate:"required,notblank,max=100"`
	Description *string `json:"description" db:"description"`
	Category    *string `json:"category"    db:"category"    validate:"omitempty,max=50"`
}

// Enrollment links one Client to one Program at a point in time.
// EnrolledAt is assigned by the server and is always UTC.
type Enrollment struct {
	ID         int64     `json:"id"         db:"id"`
	ClientID   int64     `json:"client_id"  db:"client_id"`
	ProgramID  int64     `json:"program_id" db:"program_id"`
	EnrolledAt time.Time `json:"date"       db:"enrolled_at"`
}

// ClientProfile is a client together with every program it is enrolled in.
type ClientProfile struct {
	Client   Client    `json:"client"`
	Programs []Program `json:"programs"`
}

// EnrollRequest is the input of an enrollment. A zero id means "missing".
type EnrollRequest struct {
	ClientID  int64 `json:"client_id"  validate:"required,gt=0"`
	ProgramID int64 `json:"program_id" validate:"required,gt=0"`
}

// SearchRequest carries the name fragment for a client search.
type SearchRequest struct {
	Name string `json:"name" validate:"required,notblank"`
}

// Dashboard is the summary shown on the index page and served at
// /api/dashboard.
type Dashboard struct {
	Clients     int   `json:"clients"`
	Programs    int   `json:"programs"`
	Enrollments int   `json:"enrollments"`
	Categories  Chart `json:"categories"`
	Trend       Chart `json:"trend"`
}

// Chart is chart-ready series data: one label per point and one or more
// datasets whose Data line up with Labels.
type Chart struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Label string `json:"label"`
	Data  []int  `json:"data"`
}
