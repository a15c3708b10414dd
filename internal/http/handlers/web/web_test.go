package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/aanand-mishra/health-registry/internal/config"
	"github.com/aanand-mishra/health-registry/internal/registry"
	"github.com/aanand-mishra/health-registry/internal/storage/sqlite"
	"github.com/aanand-mishra/health-registry/internal/types"
)

type PagesSuite struct {
	suite.Suite
	store *sqlite.SQLite
	svc   *registry.Service
	mux   *http.ServeMux
}

func TestPagesSuite(t *testing.T) {
	suite.Run(t, new(PagesSuite))
}

func (s *PagesSuite) SetupTest() {
	store, err := sqlite.New(&config.Config{
		StoragePath: filepath.Join(s.T().TempDir(), "web.db"),
		BusyTimeout: time.Second,
	})
	s.Require().NoError(err)
	s.store = store
	s.svc = registry.New(store)

	pages, err := New(s.svc)
	s.Require().NoError(err)

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /{$}", pages.Index)
	s.mux.HandleFunc("GET /programs", pages.Programs)
	s.mux.HandleFunc("POST /programs", pages.CreateProgram)
	s.mux.HandleFunc("GET /clients", pages.Clients)
	s.mux.HandleFunc("POST /clients", pages.RegisterClient)
	s.mux.HandleFunc("GET /enroll", pages.Enroll)
	s.mux.HandleFunc("POST /enroll", pages.CreateEnrollment)
	s.mux.HandleFunc("GET /clients/search", pages.Search)
	s.mux.HandleFunc("POST /clients/search", pages.Search)
	s.mux.HandleFunc("GET /clients/{id}", pages.Profile)
}

func (s *PagesSuite) TearDownTest() {
	s.store.Close()
}

func (s *PagesSuite) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func (s *PagesSuite) post(target string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func (s *PagesSuite) seed() (clientID, programID int64) {
	ctx := context.Background()
	clientID, err := s.svc.CreateClient(ctx, types.Client{Name: "Jane Doe"})
	s.Require().NoError(err)
	programID, err = s.svc.CreateProgram(ctx, types.Program{Name: "HIV Program"})
	s.Require().NoError(err)
	return clientID, programID
}

func (s *PagesSuite) TestPagesRender() {
	s.seed()

	for _, target := range []string{"/", "/programs", "/clients", "/enroll", "/clients/search"} {
		rec := s.get(target)
		s.Equal(http.StatusOK, rec.Code, target)
		s.Equal("text/html; charset=utf-8", rec.Header().Get("Content-Type"), target)
	}

	s.Contains(s.get("/clients").Body.String(), `<a href="/clients/1">Jane Doe</a>`)
	s.Contains(s.get("/enroll").Body.String(), `<option value="1">HIV Program</option>`)
	s.Contains(s.get("/").Body.String(), `<strong id="clients-total">1</strong>`)
}

func (s *PagesSuite) TestRegisterClient() {
	rec := s.post("/clients", url.Values{
		"name": {"  John Doe  "}, "age": {"30"}, "gender": {"Male"}, "contact": {""},
	})
	s.Require().Equal(http.StatusSeeOther, rec.Code)
	s.Equal("/", rec.Header().Get("Location"))

	clients, err := s.svc.ListClients(context.Background())
	s.Require().NoError(err)
	s.Require().Len(clients, 1)
	s.Equal("John Doe", clients[0].Name)
	s.Require().NotNil(clients[0].Age)
	s.Equal(30, *clients[0].Age)
	s.Nil(clients[0].Contact)
}

func (s *PagesSuite) TestRegisterClientRejected() {
	tests := []struct {
		name    string
		form    url.Values
		message string
	}{
		{"missing name", url.Values{"age": {"30"}}, "field name is required"},
		{"age not a number", url.Values{"name": {"Jane"}, "age": {"thirty"}}, "age must be a whole number"},
		{"age out of range", url.Values{"name": {"Jane"}, "age": {"200"}}, "field age must be at most 150"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.post("/clients", tt.form)
			s.Equal(http.StatusBadRequest, rec.Code)
			s.Contains(rec.Body.String(), tt.message)
			s.Contains(rec.Body.String(), `action="/clients"`, "form is shown again")
		})
	}

	clients, err := s.svc.ListClients(context.Background())
	s.Require().NoError(err)
	s.Empty(clients)
}

func (s *PagesSuite) TestCreateProgram() {
	rec := s.post("/programs", url.Values{"name": {"TB Program"}, "category": {"Infectious"}})
	s.Require().Equal(http.StatusSeeOther, rec.Code)

	rec = s.post("/programs", url.Values{"description": {"no name"}})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "field name is required")

	programs, err := s.svc.ListPrograms(context.Background())
	s.Require().NoError(err)
	s.Require().Len(programs, 1)
	s.Equal("TB Program", programs[0].Name)
}

func (s *PagesSuite) TestEnroll() {
	clientID, programID := s.seed()
	form := url.Values{
		"client_id":  {itoa(clientID)},
		"program_id": {itoa(programID)},
	}

	s.Equal(http.StatusSeeOther, s.post("/enroll", form).Code)

	rec := s.post("/enroll", form)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "client is already enrolled in this program")

	rec = s.post("/enroll", url.Values{})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "field client_id is required")

	rec = s.post("/enroll", url.Values{"client_id": {"99"}, "program_id": {itoa(programID)}})
	s.Equal(http.StatusNotFound, rec.Code)
	s.Contains(rec.Body.String(), "client not found")

	profile := s.get("/clients/" + itoa(clientID)).Body.String()
	s.Contains(profile, "<li>HIV Program</li>")
}

func (s *PagesSuite) TestSearch() {
	s.seed()

	rec := s.get("/clients/search?name=JANE")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Jane Doe")

	rec = s.post("/clients/search", url.Values{"name": {"nobody"}})
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "No clients match.")

	rec = s.post("/clients/search", url.Values{"name": {"   "}})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.NotContains(rec.Body.String(), "Results for")
}

func (s *PagesSuite) TestProfileNotFound() {
	for _, target := range []string{"/clients/42", "/clients/abc"} {
		rec := s.get(target)
		s.Equal(http.StatusNotFound, rec.Code, target)
		s.Contains(rec.Body.String(), "client not found", target)
	}
}

type failingRegistry struct{ Registry }

func (failingRegistry) ListClients(context.Context) ([]types.Client, error) {
	return nil, errors.New("no such table: clients")
}

func (s *PagesSuite) TestServerErrorsRenderErrorPage() {
	pages, err := New(failingRegistry{Registry: s.svc})
	s.Require().NoError(err)

	rec := httptest.NewRecorder()
	pages.Clients(rec, httptest.NewRequest(http.MethodGet, "/clients", nil))

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), "internal server error")
	s.NotContains(rec.Body.String(), "no such table")
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
