package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reeveops/reeve/internal/config"
	"github.com/reeveops/reeve/internal/events"
	"github.com/reeveops/reeve/internal/history"
	"github.com/reeveops/reeve/internal/logger"
	"github.com/reeveops/reeve/internal/metrics"
	"github.com/reeveops/reeve/internal/model"
	"github.com/reeveops/reeve/internal/resolve"
)

type fakeRunner struct {
	mu       sync.Mutex
	jid      string
	err      error
	launches []bool
	notify   chan bool
}

func (f *fakeRunner) Launch(ctx context.Context, dryRun bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.launches = append(f.launches, dryRun)
	if f.notify != nil {
		select {
		case f.notify <- dryRun:
		default:
		}
	}
	return f.jid, nil
}

func (f *fakeRunner) launched() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.launches...)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Options{Level: "error", Writer: testWriter{}})
	require.NoError(t, err)
	return log
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func storeWithUser(t *testing.T, username, password string) *resolve.SecureStore {
	t.Helper()

	hash, err := HashPassword(password)
	require.NoError(t, err)

	content := fmt.Sprintf("users:\n  %s: %q\nserver:\n  jwt_secret: \"test-secret\"\n", username, hash)
	path := filepath.Join(t.TempDir(), "secure.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	store, err := resolve.LoadStore(path, nil)
	require.NoError(t, err)
	return store
}

type testServer struct {
	server  *Server
	runner  *fakeRunner
	history *history.Store
	bus     *events.Bus
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	log := testLogger(t)

	store, err := history.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	auth, err := NewAuthenticator(storeWithUser(t, "admin", "hunter2"), time.Hour)
	require.NoError(t, err)

	runner := &fakeRunner{jid: model.NewJID(time.Now())}
	bus := events.NewBus(log, 64)
	mets := metrics.New()

	srv, err := New(Options{
		Addr:    "127.0.0.1:0",
		Plan:    &config.Plan{Name: "edge"},
		Runner:  runner,
		History: store,
		Events:  bus,
		Metrics: mets,
		Auth:    auth,
		Logger:  log,
	})
	require.NoError(t, err)

	return &testServer{server: srv, runner: runner, history: store, bus: bus, metrics: mets}
}

func (ts *testServer) login(t *testing.T) string {
	t.Helper()

	body := strings.NewReader(`{"username": "admin", "password": "hunter2"}`)
	req := httptest.NewRequest(http.MethodPost, "/login", body)
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)
	return rec
}

func TestNewRejectsMissingCollaborators(t *testing.T) {
	t.Parallel()

	log := testLogger(t)
	store, err := history.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	auth, err := NewAuthenticator(resolve.EmptyStore(), 0)
	require.NoError(t, err)

	complete := Options{
		Runner:  &fakeRunner{},
		History: store,
		Events:  events.NewBus(log, 8),
		Metrics: metrics.New(),
		Auth:    auth,
	}

	tests := []struct {
		name  string
		strip func(*Options)
	}{
		{"runner", func(o *Options) { o.Runner = nil }},
		{"history", func(o *Options) { o.History = nil }},
		{"events", func(o *Options) { o.Events = nil }},
		{"metrics", func(o *Options) { o.Metrics = nil }},
		{"auth", func(o *Options) { o.Auth = nil }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := complete
			tt.strip(&opts)
			_, err := New(opts)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.name)
		})
	}

	_, err = New(complete)
	require.NoError(t, err)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
	require.Contains(t, rec.Body.String(), `"plan":"edge"`)
}

func TestLoginIssuesUsableToken(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token := ts.login(t)

	rec := ts.do(t, http.MethodGet, "/jobs", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/login", "", `{"username": "admin", "password": "wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/login", "", `{"username": "admin"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobsRequireAuth(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	require.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/jobs", "", "").Code)
	require.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/jobs", "", "").Code)
	require.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/jobs/anything", "", "").Code)
	require.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/jobs", "not-a-token", "").Code)
}

func TestSubmitJobLaunchesRun(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token := ts.login(t)

	rec := ts.do(t, http.MethodPost, "/jobs", token, "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), ts.runner.jid)
	require.Equal(t, []bool{false}, ts.runner.launched())

	rec = ts.do(t, http.MethodPost, "/jobs", token, `{"dry_run": true}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, []bool{false, true}, ts.runner.launched())
}

func TestSubmitJobReportsLaunchFailure(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.runner.err = fmt.Errorf("a run is already in flight")
	token := ts.login(t)

	rec := ts.do(t, http.MethodPost, "/jobs", token, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "already in flight")
}

func TestListJobsReturnsHistory(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token := ts.login(t)

	first := model.NewJID(time.Now().Add(-time.Minute))
	second := model.NewJID(time.Now())
	require.NoError(t, ts.history.Save(history.NewRecord(first, "edge", false, &model.RunSummary{TotalOps: 2, Satisfied: 2})))
	require.NoError(t, ts.history.Save(history.NewRecord(second, "edge", true, &model.RunSummary{TotalOps: 1, WouldChange: 1})))

	rec := ts.do(t, http.MethodGet, "/jobs", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Jobs []map[string]any `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 2)
	require.Equal(t, second, resp.Jobs[0]["jid"])
	require.Equal(t, true, resp.Jobs[0]["dry_run"])
	require.Equal(t, float64(1), resp.Jobs[0]["would_change"])
}

func TestListJobsRejectsBadLimit(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token := ts.login(t)

	require.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/jobs?limit=nope", token, "").Code)
	require.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/jobs?limit=0", token, "").Code)
}

func TestGetJobReturnsWireResults(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token := ts.login(t)

	jid := model.NewJID(time.Now())
	summary := &model.RunSummary{}
	res := model.NewSuccessResult("nginx", map[string]model.Change{
		"state": {Old: "stopped", New: "running"},
	}, "Start succeeded for nginx")
	res.OpID = "svc"
	summary.Add(res)
	require.NoError(t, ts.history.Save(history.NewRecord(jid, "edge", false, summary)))

	rec := ts.do(t, http.MethodGet, "/jobs/"+jid, token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"name":"nginx"`)
	require.Contains(t, rec.Body.String(), `"result":true`)
	require.Contains(t, rec.Body.String(), "Start succeeded for nginx")
}

func TestGetJobMissing(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token := ts.login(t)

	rec := ts.do(t, http.MethodGet, "/jobs/20250101000000000000", token, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.metrics.ObserveRun("edge", false, &model.RunSummary{TotalOps: 1, Satisfied: 1, Duration: time.Second})

	rec := ts.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "reeve_jobs_total")
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", "", "")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "caller-chosen")
	echo := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(echo, req)
	require.Equal(t, "caller-chosen", echo.Header().Get("X-Request-ID"))
}
