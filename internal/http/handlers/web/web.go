// Package web serves the human-facing, server-rendered pages: forms to
// register clients, create programs and enroll clients, a client search,
// and client profiles.
//
// Successful form posts redirect to the index (POST/redirect/GET). Failed
// posts re-render the same form with the error message and the status
// the JSON API would have used for the same error.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/health-registry/internal/http/middleware"
	"github.com/aanand-mishra/health-registry/internal/types"
	"github.com/aanand-mishra/health-registry/internal/utils/request"
	"github.com/aanand-mishra/health-registry/internal/utils/response"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"index.html",
	"clients.html",
	"programs.html",
	"enroll.html",
	"search.html",
	"profile.html",
	"error.html",
}

type Registry interface {
	CreateClient(ctx context.Context, client types.Client) (int64, error)
	ListClients(ctx context.Context) ([]types.Client, error)
	SearchClients(ctx context.Context, pattern string) ([]types.Client, error)
	ClientProfile(ctx context.Context, clientID int64) (types.ClientProfile, error)
	CreateProgram(ctx context.Context, program types.Program) (int64, error)
	ListPrograms(ctx context.Context) ([]types.Program, error)
	Enroll(ctx context.Context, req types.EnrollRequest) (int64, error)
	Dashboard(ctx context.Context) (types.Dashboard, error)
}

// Pages holds the parsed templates; each page is parsed together with
// the shared layout.
type Pages struct {
	reg       Registry
	templates map[string]*template.Template
}

// page is the data handed to every template. Each page reads the fields
// it needs.
type page struct {
	Title     string
	Error     string
	Status    int
	Clients   []types.Client
	Programs  []types.Program
	Profile   types.ClientProfile
	Dashboard types.Dashboard
	Query     string
	Searched  bool
}

var funcs = template.FuncMap{
	"optString": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"optInt": func(n *int) string {
		if n == nil {
			return ""
		}
		return strconv.Itoa(*n)
	},
}

func New(reg Registry) (*Pages, error) {
	templates := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("web.New: parse %s: %w", name, err)
		}
		templates[name] = t
	}
	return &Pages{reg: reg, templates: templates}, nil
}

// Index handles GET /
func (p *Pages) Index(w http.ResponseWriter, r *http.Request) {
	dash, err := p.reg.Dashboard(r.Context())
	if err != nil {
		p.fail(w, r, "error building dashboard", err)
		return
	}
	p.render(w, r, http.StatusOK, "index.html", page{Title: "Health Registry", Dashboard: dash})
}

// ─────────────────────────────────────────────────────────────────────────────
// Programs
// ─────────────────────────────────────────────────────────────────────────────

// Programs handles GET /programs
func (p *Pages) Programs(w http.ResponseWriter, r *http.Request) {
	p.programsPage(w, r, http.StatusOK, "")
}

// CreateProgram handles POST /programs (form: name, description, category).
func (p *Pages) CreateProgram(w http.ResponseWriter, r *http.Request) {
	if err := request.ParseForm(w, r); err != nil {
		p.formError(w, r, err, p.programsPage)
		return
	}

	program := types.Program{
		Description: request.FormString(r, "description"),
		Category:    request.FormString(r, "category"),
	}
	if name := request.FormString(r, "name"); name != nil {
		program.Name = *name
	}

	id, err := p.reg.CreateProgram(r.Context(), program)
	if err != nil {
		p.formError(w, r, err, p.programsPage)
		return
	}

	middleware.LoggerFrom(r.Context()).Info("program created", slog.Int64("id", id))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (p *Pages) programsPage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	programs, err := p.reg.ListPrograms(r.Context())
	if err != nil {
		p.fail(w, r, "error getting programs", err)
		return
	}
	p.render(w, r, status, "programs.html", page{Title: "Programs", Error: msg, Programs: programs})
}

// ─────────────────────────────────────────────────────────────────────────────
// Clients
// ─────────────────────────────────────────────────────────────────────────────

// Clients handles GET /clients
func (p *Pages) Clients(w http.ResponseWriter, r *http.Request) {
	p.clientsPage(w, r, http.StatusOK, "")
}

// RegisterClient handles POST /clients (form: name, age, gender, contact).
func (p *Pages) RegisterClient(w http.ResponseWriter, r *http.Request) {
	if err := request.ParseForm(w, r); err != nil {
		p.formError(w, r, err, p.clientsPage)
		return
	}

	age, err := request.FormInt(r, "age")
	if err != nil {
		p.formError(w, r, err, p.clientsPage)
		return
	}
	client := types.Client{
		Age:     age,
		Gender:  request.FormString(r, "gender"),
		Contact: request.FormString(r, "contact"),
	}
	if name := request.FormString(r, "name"); name != nil {
		client.Name = *name
	}

	id, err := p.reg.CreateClient(r.Context(), client)
	if err != nil {
		p.formError(w, r, err, p.clientsPage)
		return
	}

	middleware.LoggerFrom(r.Context()).Info("client created", slog.Int64("id", id))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (p *Pages) clientsPage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	clients, err := p.reg.ListClients(r.Context())
	if err != nil {
		p.fail(w, r, "error getting clients", err)
		return
	}
	p.render(w, r, status, "clients.html", page{Title: "Clients", Error: msg, Clients: clients})
}

// Search handles GET and POST /clients/search. A GET without ?name= shows
// the empty form; a POST requires the name field.
func (p *Pages) Search(w http.ResponseWriter, r *http.Request) {
	var name string
	if r.Method == http.MethodPost {
		if err := request.ParseForm(w, r); err != nil {
			p.formError(w, r, err, p.searchPage)
			return
		}
		name = r.PostFormValue("name")
	} else {
		name = r.URL.Query().Get("name")
		if name == "" {
			p.searchPage(w, r, http.StatusOK, "")
			return
		}
	}

	clients, err := p.reg.SearchClients(r.Context(), name)
	if err != nil {
		p.formError(w, r, err, p.searchPage)
		return
	}
	p.render(w, r, http.StatusOK, "search.html", page{
		Title:    "Search clients",
		Clients:  clients,
		Query:    name,
		Searched: true,
	})
}

func (p *Pages) searchPage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	p.render(w, r, status, "search.html", page{Title: "Search clients", Error: msg})
}

// Profile handles GET /clients/{id}
func (p *Pages) Profile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		p.render(w, r, http.StatusNotFound, "error.html",
			page{Title: "Not found", Status: http.StatusNotFound, Error: "client not found"})
		return
	}

	profile, err := p.reg.ClientProfile(r.Context(), id)
	if err != nil {
		p.fail(w, r, "error getting client profile", err)
		return
	}
	p.render(w, r, http.StatusOK, "profile.html", page{Title: profile.Client.Name, Profile: profile})
}

// ─────────────────────────────────────────────────────────────────────────────
// Enrollment
// ─────────────────────────────────────────────────────────────────────────────

// Enroll handles GET /enroll
func (p *Pages) Enroll(w http.ResponseWriter, r *http.Request) {
	p.enrollPage(w, r, http.StatusOK, "")
}

// CreateEnrollment handles POST /enroll (form: client_id, program_id).
func (p *Pages) CreateEnrollment(w http.ResponseWriter, r *http.Request) {
	if err := request.ParseForm(w, r); err != nil {
		p.formError(w, r, err, p.enrollPage)
		return
	}

	req := types.EnrollRequest{
		ClientID:  request.FormID(r, "client_id"),
		ProgramID: request.FormID(r, "program_id"),
	}
	id, err := p.reg.Enroll(r.Context(), req)
	if err != nil {
		p.formError(w, r, err, p.enrollPage)
		return
	}

	middleware.LoggerFrom(r.Context()).Info("client enrolled", slog.Int64("id", id))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (p *Pages) enrollPage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	clients, err := p.reg.ListClients(r.Context())
	if err != nil {
		p.fail(w, r, "error getting clients", err)
		return
	}
	programs, err := p.reg.ListPrograms(r.Context())
	if err != nil {
		p.fail(w, r, "error getting programs", err)
		return
	}
	p.render(w, r, status, "enroll.html", page{
		Title:    "Enroll a client",
		Error:    msg,
		Clients:  clients,
		Programs: programs,
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Rendering
// ─────────────────────────────────────────────────────────────────────────────

// formError re-renders a form with the message for err, or falls through
// to the error page for server-side failures.
func (p *Pages) formError(w http.ResponseWriter, r *http.Request, err error,
	form func(http.ResponseWriter, *http.Request, int, string)) {
	status, body := response.FromError(err)
	if status >= http.StatusInternalServerError {
		p.fail(w, r, "form submission failed", err)
		return
	}
	middleware.LoggerFrom(r.Context()).Info("form rejected", slog.String("error", err.Error()))
	form(w, r, status, body.Error)
}

func (p *Pages) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status, body := response.FromError(err)
	log := middleware.LoggerFrom(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(msg, slog.String("error", err.Error()))
	} else {
		log.Info(msg, slog.String("error", err.Error()))
	}
	p.render(w, r, status, "error.html", page{
		Title:  http.StatusText(status),
		Status: status,
		Error:  body.Error,
	})
}

// render executes the page into a buffer first so a template error never
// leaves a half-written 200 behind.
func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, name string, data page) {
	var buf bytes.Buffer
	if err := p.templates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		middleware.LoggerFrom(r.Context()).Error("render page",
			slog.String("page", name),
			slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
