package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/pipeline"
	"github.com/Ramsey-B/sorrel/pkg/policy"
	"github.com/Ramsey-B/sorrel/pkg/routes/health"
	"github.com/Ramsey-B/sorrel/pkg/routes/runs"
	"github.com/Ramsey-B/sorrel/pkg/store/memstore"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func ts(day int) *time.Time {
	t := time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
	return &t
}

type testServer struct {
	e       *echo.Echo
	store   *memstore.Store
	history *runs.MemoryHistory
	checker *health.Checker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := testLogger()
	s := memstore.New(
		models.Document{ID: "A", CreatedAt: ts(1), Properties: map[string]any{"email": "a@x.com", "phone": ""}},
		models.Document{ID: "B", CreatedAt: ts(2), Properties: map[string]any{"email": "A@x.com", "phone": "555"}},
	)
	history := runs.NewMemoryHistory(10)
	pl := pipeline.New(policy.DefaultPolicy(), s, pipeline.Config{}, logger, pipeline.WithReportSinks(history))
	checker := health.NewChecker("test")

	e := NewServer(ServerConfig{AppName: "sorrel-test", AllowOrigins: []string{"*"}, AllowMethods: []string{"GET", "POST"}},
		checker, runs.NewHandler(pl, history, 5, logger), logger)
	return &testServer{e: e, store: s, history: history, checker: checker}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func TestServer_DryRunThenLiveRun(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/v1/runs", `{"mode":"dry_run"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var planned models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &planned))
	assert.Equal(t, models.RunStatusPlanned, planned.Status)
	assert.Empty(t, s.store.Calls())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = s.do(http.MethodPost, "/api/v1/runs", `{}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var live models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &live))
	assert.Equal(t, models.RunStatusSuccess, live.Status)
	assert.Equal(t, 1, live.Counts.RecordsArchived)

	rec = s.do(http.MethodGet, "/api/v1/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, live.RunID, listed[0].RunID)

	rec = s.do(http.MethodGet, "/api/v1/runs/"+planned.RunID, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Errors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/v1/runs", `{"mode":"everything"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["request_id"])

	rec = s.do(http.MethodGet, "/api/v1/runs?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/v1/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.checker.SetReady(true)
	rec = s.do(http.MethodGet, "/api/v1/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	s.checker.AddCheck("store", func(context.Context) error { return nil })
	rec = s.do(http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
