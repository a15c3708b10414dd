// Package enrollment contains the JSON API handlers for enrollments and
// the dashboard summary built from them.
package enrollment

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/health-registry/internal/http/middleware"
	"github.com/aanand-mishra/health-registry/internal/types"
	"github.com/aanand-mishra/health-registry/internal/utils/request"
	"github.com/aanand-mishra/health-registry/internal/utils/response"
)

// SuccessMessage accompanies the id of a new enrollment.
const SuccessMessage = "Enrollment successful"

type Registry interface {
	Enroll(ctx context.Context, req types.EnrollRequest) (int64, error)
	ListEnrollments(ctx context.Context) ([]types.Enrollment, error)
	Dashboard(ctx context.Context) (types.Dashboard, error)
}

// Created is the 201 body of POST /api/enroll.
type Created struct {
	EnrollmentID int64  `json:"enrollment_id"`
	Msg          string `json:"msg"`
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/enroll
//
// Request body (JSON):
//
//	{ "client_id": 1, "program_id": 2 }
//
// Success response (201 Created):
//
//	{ "enrollment_id": 1, "msg": "Enrollment successful" }
//
// Error responses:
//
//	400: missing ids, or the client is already enrolled in the program
//	404: client or program does not exist
//
// ─────────────────────────────────────────────────────────────────────────────
func New(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.LoggerFrom(r.Context())
		log.Info("enrolling a client")

		var req types.EnrollRequest
		if err := request.DecodeJSON(w, r, &req); err != nil {
			response.WriteError(w, err)
			return
		}

		id, err := reg.Enroll(r.Context(), req)
		if err != nil {
			response.Fail(w, log, "error enrolling client", err)
			return
		}

		log.Info("client enrolled",
			slog.Int64("id", id),
			slog.Int64("client_id", req.ClientID),
			slog.Int64("program_id", req.ProgramID))
		response.WriteJSON(w, http.StatusCreated, Created{EnrollmentID: id, Msg: SuccessMessage})
	}
}

// GetList handles GET /api/enrollments and returns the flat list of
// enrollments. Chart-shaped data is served by Dashboard instead.
func GetList(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.LoggerFrom(r.Context())
		log.Info("getting all enrollments")

		enrollments, err := reg.ListEnrollments(r.Context())
		if err != nil {
			response.Fail(w, log, "error getting enrollments", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, enrollments)
	}
}

// Dashboard handles GET /api/dashboard
func Dashboard(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.LoggerFrom(r.Context())

		dash, err := reg.Dashboard(r.Context())
		if err != nil {
			response.Fail(w, log, "error building dashboard", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, dash)
	}
}
