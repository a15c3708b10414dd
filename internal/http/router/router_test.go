package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/health-registry/internal/config"
	"github.com/aanand-mishra/health-registry/internal/http/middleware"
	"github.com/aanand-mishra/health-registry/internal/metrics"
	"github.com/aanand-mishra/health-registry/internal/registry"
	"github.com/aanand-mishra/health-registry/internal/storage/sqlite"
	"github.com/aanand-mishra/health-registry/internal/types"
	"github.com/aanand-mishra/health-registry/internal/utils/response"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := sqlite.New(&config.Config{
		StoragePath: filepath.Join(t.TempDir(), "health.db"),
		BusyTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := metrics.New()
	h, err := New(registry.New(store, registry.WithMetrics(m)), m,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return h
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(t *testing.T, h http.Handler, target string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestAPIEnrollmentScenario(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/clients", map[string]any{
		"name": "Jane Doe", "age": 25, "gender": "Female",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	clientID := decode[map[string]int64](t, rec)["client_id"]
	require.Positive(t, clientID)

	rec = do(t, h, http.MethodPost, "/api/programs", map[string]any{
		"name": "HIV Program", "description": "Antiretroviral therapy", "category": "Infectious",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	programID := decode[map[string]int64](t, rec)["program_id"]
	require.Positive(t, programID)

	rec = do(t, h, http.MethodPost, "/api/enroll", map[string]any{
		"client_id": clientID, "program_id": programID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[struct {
		EnrollmentID int64  `json:"enrollment_id"`
		Msg          string `json:"msg"`
	}](t, rec)
	assert.Positive(t, created.EnrollmentID)
	assert.Equal(t, "Enrollment successful", created.Msg)

	rec = do(t, h, http.MethodGet, "/api/clients/"+itoa(clientID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[types.ClientProfile](t, rec)
	assert.Equal(t, "Jane Doe", profile.Client.Name)
	require.Len(t, profile.Programs, 1)
	assert.Equal(t, "HIV Program", profile.Programs[0].Name)

	rec = do(t, h, http.MethodPost, "/api/enroll", map[string]any{
		"client_id": clientID, "program_id": programID,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "client is already enrolled in this program", decode[response.Response](t, rec).Error)

	rec = do(t, h, http.MethodGet, "/api/enrollments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	enrollments := decode[[]map[string]any](t, rec)
	require.Len(t, enrollments, 1)
	assert.EqualValues(t, clientID, enrollments[0]["client_id"])
	assert.Contains(t, enrollments[0], "date")

	rec = do(t, h, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[types.Dashboard](t, rec)
	assert.Equal(t, 1, dash.Clients)
	assert.Equal(t, []string{"Infectious"}, dash.Categories.Labels)
}

func TestAPIValidationAndNotFound(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name    string
		method  string
		target  string
		body    any
		status  int
		message string
	}{
		{"client without name", http.MethodPost, "/api/clients", map[string]any{"age": 30}, http.StatusBadRequest, "field name is required"},
		{"client blank name", http.MethodPost, "/api/clients", map[string]any{"name": "  "}, http.StatusBadRequest, "field name must not be blank"},
		{"client empty body", http.MethodPost, "/api/clients", nil, http.StatusBadRequest, "request body is empty"},
		{"program without name", http.MethodPost, "/api/programs", map[string]any{"description": "x"}, http.StatusBadRequest, "field name is required"},
		{"enroll missing ids", http.MethodPost, "/api/enroll", map[string]any{}, http.StatusBadRequest, "field client_id is required, field program_id is required"},
		{"enroll unknown client", http.MethodPost, "/api/enroll", map[string]any{"client_id": 99, "program_id": 1}, http.StatusNotFound, "client not found"},
		{"profile unknown client", http.MethodGet, "/api/clients/99", nil, http.StatusNotFound, "client not found"},
		{"profile bad id", http.MethodGet, "/api/clients/abc", nil, http.StatusBadRequest, "invalid id: must be a positive integer"},
		{"search without name", http.MethodGet, "/api/clients/search", nil, http.StatusBadRequest, "field name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body)
			require.Equal(t, tt.status, rec.Code)
			body := decode[response.Response](t, rec)
			assert.Equal(t, response.StatusError, body.Status)
			assert.Equal(t, tt.message, body.Error)
		})
	}

	rec := do(t, h, http.MethodGet, "/api/clients", nil)
	assert.JSONEq(t, "[]", rec.Body.String(), "failed creates must not persist")
}

func TestAPISearchAndLists(t *testing.T) {
	h := newTestRouter(t)
	for _, name := range []string{"Jane Doe", "John Doe", "Mary Smith"} {
		require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/clients", map[string]any{"name": name}).Code)
	}
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/programs", map[string]any{"name": "TB Program"}).Code)

	rec := do(t, h, http.MethodGet, "/api/clients/search?name=doe", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]types.Client](t, rec), 2)

	rec = do(t, h, http.MethodGet, "/api/clients/search?name=zzz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/clients", nil)
	assert.Len(t, decode[[]types.Client](t, rec), 3)

	rec = do(t, h, http.MethodGet, "/api/programs", nil)
	programs := decode[[]types.Program](t, rec)
	require.Len(t, programs, 1)
	assert.Equal(t, "TB Program", programs[0].Name)
	assert.Nil(t, programs[0].Category)
}

func TestWebFlow(t *testing.T) {
	h := newTestRouter(t)

	rec := postForm(t, h, "/clients", url.Values{"name": {"Jane Doe"}, "age": {"25"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = postForm(t, h, "/programs", url.Values{"name": {"HIV Program"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = postForm(t, h, "/enroll", url.Values{"client_id": {"1"}, "program_id": {"1"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = postForm(t, h, "/enroll", url.Values{"client_id": {"1"}, "program_id": {"1"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "client is already enrolled in this program")

	rec = do(t, h, http.MethodGet, "/clients/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Jane Doe")
	assert.Contains(t, rec.Body.String(), "HIV Program")

	rec = do(t, h, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<strong id="enrollments-total">1</strong>`)
}

func TestHealthzAndMetrics(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	do(t, h, http.MethodPost, "/api/clients", map[string]any{"name": "Jane Doe"})

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "health_registry_clients_registered_total 1")
	assert.Contains(t, body, `route="POST /api/clients"`)
}

func TestUnknownRouteIs404(t *testing.T) {
	h := newTestRouter(t)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/nope", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodDelete, "/api/clients", nil).Code)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
