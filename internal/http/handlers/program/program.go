// Package program contains the JSON API handlers for the Program resource.
package program

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/health-registry/internal/http/middleware"
	"github.com/aanand-mishra/health-registry/internal/types"
	"github.com/aanand-mishra/health-registry/internal/utils/request"
	"github.com/aanand-mishra/health-registry/internal/utils/response"
)

type Registry interface {
	CreateProgram(ctx context.Context, program types.Program) (int64, error)
	ListPrograms(ctx context.Context) ([]types.Program, error)
}

// New handles POST /api/programs
//
//	{ "name": "TB Program", "description": "Tuberculosis treatment", "category": "Infectious" }
//
// and answers 201 with { "program_id": 1 }.
func New(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.LoggerFrom(r.Context())
		log.Info("creating a program")

		var program types.Program
		if err := request.DecodeJSON(w, r, &program); err != nil {
			response.WriteError(w, err)
			return
		}

		id, err := reg.CreateProgram(r.Context(), program)
		if err != nil {
			response.Fail(w, log, "error creating program", err)
			return
		}

		log.Info("program created", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusCreated, map[string]int64{"program_id": id})
	}
}

// GetList handles GET /api/programs
func GetList(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.LoggerFrom(r.Context())
		log.Info("getting all programs")

		programs, err := reg.ListPrograms(r.Context())
		if err != nil {
			response.Fail(w, log, "error getting programs", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, programs)
	}
}
