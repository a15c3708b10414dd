// Package router wires every handler onto a ServeMux and wraps it with
// the shared middleware. main and the end-to-end tests both build the
// server through New, so they exercise the same route table.
package router

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/health-registry/internal/http/handlers/client"
	"github.com/aanand-mishra/health-registry/internal/http/handlers/enrollment"
	"github.com/aanand-mishra/health-registry/internal/http/handlers/program"
	"github.com/aanand-mishra/health-registry/internal/http/handlers/web"
	"github.com/aanand-mishra/health-registry/internal/http/middleware"
	"github.com/aanand-mishra/health-registry/internal/metrics"
	"github.com/aanand-mishra/health-registry/internal/registry"
	"github.com/aanand-mishra/health-registry/internal/utils/response"
)

// New builds the application handler.
//
// Route table:
//
//	GET  /                    index page
//	GET  /programs            program form + list      POST /programs
//	GET  /clients             client form + list       POST /clients
//	GET  /enroll              enrollment form          POST /enroll
//	GET  /clients/search      search form/results      POST /clients/search
//	GET  /clients/{id}        client profile page
//
//	GET  /api/clients         list clients             POST /api/clients
//	GET  /api/clients/search  ?name= search
//	GET  /api/clients/{id}    client profile
//	GET  /api/programs        list programs            POST /api/programs
//	POST /api/enroll          enroll a client
//	GET  /api/enrollments     list enrollments
//	GET  /api/dashboard       totals + chart data
//
//	GET  /healthz             storage liveness
//	GET  /metrics             Prometheus
func New(svc *registry.Service, m *metrics.Metrics, log *slog.Logger) (http.Handler, error) {
	pages, err := web.New(svc)
	if err != nil {
		return nil, fmt.Errorf("router.New: %w", err)
	}

	router := http.NewServeMux()

	router.HandleFunc("GET /{$}", pages.Index)
	router.HandleFunc("GET /programs", pages.Programs)
	router.HandleFunc("POST /programs", pages.CreateProgram)
	router.HandleFunc("GET /clients", pages.Clients)
	router.HandleFunc("POST /clients", pages.RegisterClient)
	router.HandleFunc("GET /enroll", pages.Enroll)
	router.HandleFunc("POST /enroll", pages.CreateEnrollment)
	router.HandleFunc("GET /clients/search", pages.Search)
	router.HandleFunc("POST /clients/search", pages.Search)
	router.HandleFunc("GET /clients/{id}", pages.Profile)

	router.HandleFunc("GET /api/clients", client.GetList(svc))
	router.HandleFunc("POST /api/clients", client.New(svc))
	router.HandleFunc("GET /api/clients/search", client.Search(svc))
	router.HandleFunc("GET /api/clients/{id}", client.GetProfile(svc))
	router.HandleFunc("GET /api/programs", program.GetList(svc))
	router.HandleFunc("POST /api/programs", program.New(svc))
	router.HandleFunc("POST /api/enroll", enrollment.New(svc))
	router.HandleFunc("GET /api/enrollments", enrollment.GetList(svc))
	router.HandleFunc("GET /api/dashboard", enrollment.Dashboard(svc))

	router.HandleFunc("GET /healthz", healthz(svc))
	router.Handle("GET /metrics", m.Handler())

	return middleware.Chain(router,
		middleware.RequestID(log),
		middleware.AccessLog,
		middleware.Recover,
		middleware.Instrument(m),
	), nil
}

func healthz(svc *registry.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Ping(r.Context()); err != nil {
			middleware.LoggerFrom(r.Context()).Error("health check failed", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusServiceUnavailable, response.GeneralError(err))
			return
		}
		response.WriteJSON(w, http.StatusOK, response.Response{Status: response.StatusOK})
	}
}
