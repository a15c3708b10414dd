// Package client contains the JSON API handlers for the Client resource.
//
// Every exported function is a factory: it receives its dependencies once
// at route registration and returns the http.HandlerFunc that serves each
// request.
//
//	router.HandleFunc("POST /api/clients", client.New(reg))
package client

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/health-registry/internal/http/middleware"
	"github.com/aanand-mishra/health-registry/internal/types"
	"github.com/aanand-mishra/health-registry/internal/utils/request"
	"github.com/aanand-mishra/health-registry/internal/utils/response"
)

// Registry is the subset of registry.Service these handlers use.
type Registry interface {
	CreateClient(ctx context.Context, client types.Client) (int64, error)
	ListClients(ctx context.Context) ([]types.Client, error)
	SearchClients(ctx context.Context, pattern string) ([]types.Client, error)
	ClientProfile(ctx context.Context, clientID int64) (types.ClientProfile, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/clients
//
// Request body (JSON), only name is required:
//
//	{ "name": "John Doe", "age": 30, "gender": "Male", "contact": "john@example.com" }
//
// Success response (201 Created):
//
//	{ "client_id": 1 }
//
// ─────────────────────────────────────────────────────────────────────────────
func New(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.LoggerFrom(r.Context())
		log.Info("creating a client")

		var client types.Client
		if err := request.DecodeJSON(w, r, &client); err != nil {
			response.WriteError(w, err)
			return
		}

		id, err := reg.CreateClient(r.Context(), client)
		if err != nil {
			response.Fail(w, log, "error creating client", err)
			return
		}

		log.Info("client created", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusCreated, map[string]int64{"client_id": id})
	}
}

// GetList handles GET /api/clients and returns every client, [] when
// there are none.
func GetList(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.LoggerFrom(r.Context())
		log.Info("getting all clients")

		clients, err := reg.ListClients(r.Context())
		if err != nil {
			response.Fail(w, log, "error getting clients", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, clients)
	}
}

// Search handles GET /api/clients/search?name=doe
func Search(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		log := middleware.LoggerFrom(r.Context())
		log.Info("searching clients", slog.String("name", name))

		clients, err := reg.SearchClients(r.Context(), name)
		if err != nil {
			response.Fail(w, log, "error searching clients", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, clients)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetProfile handles GET /api/clients/{id}
//
// Success response (200 OK):
//
//	{
//	  "client":   { "id": 1, "name": "Jane Doe", "age": 25, ... },
//	  "programs": [ { "id": 1, "name": "HIV Program", ... } ]
//	}
//
// 400 when id is not a positive integer, 404 when the client is unknown.
// ─────────────────────────────────────────────────────────────────────────────
func GetProfile(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.LoggerFrom(r.Context())
		log.Info("getting a client profile", slog.String("id", r.PathValue("id")))

		id, err := request.PathID(r)
		if err != nil {
			response.WriteError(w, err)
			return
		}

		profile, err := reg.ClientProfile(r.Context(), id)
		if err != nil {
			response.Fail(w, log, "error getting client profile", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, profile)
	}
}
