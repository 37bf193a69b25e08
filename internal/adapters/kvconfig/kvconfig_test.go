package kvconfigadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reeveops/reeve/internal/adapter"
	"github.com/reeveops/reeve/internal/model"
)

// kvServer is an in-memory KV service speaking the adapter's wire form.
type kvServer struct {
	mu    sync.Mutex
	data  map[string]any
	token string
}

func newKVServer(t *testing.T, token string) (*kvServer, *httptest.Server) {
	t.Helper()

	s := &kvServer{data: make(map[string]any), token: token}
	srv := httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(srv.Close)
	return s, srv
}

func (s *kvServer) handle(w http.ResponseWriter, r *http.Request) {
	if s.token != "" && r.Header.Get("X-Config-Token") != s.token {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/")

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		value, ok := s.data[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"value": value})

	case http.MethodPut:
		var payload struct {
			Value any `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.data[key] = payload.Value
		w.WriteHeader(http.StatusOK)

	case http.MethodDelete:
		delete(s.data, key)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *kvServer) get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *kvServer) set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func request(name, endpoint string, desired map[string]any) *adapter.Request {
	return &adapter.Request{
		OpID:    "op",
		Name:    name,
		Desired: desired,
		Params:  map[string]any{"endpoint": endpoint, "timeout_ms": 2000},
	}
}

func TestProbeReadsValue(t *testing.T) {
	t.Parallel()

	store, srv := newKVServer(t, "")
	store.set("app/feature/rate", map[string]any{"limit": float64(10)})

	a := New()
	state, err := a.Probe(context.Background(), request("app/feature/rate", srv.URL, nil))
	require.NoError(t, err)
	require.True(t, state.Exists)
	require.Equal(t, map[string]any{"limit": float64(10)}, state.Attrs["value"])
}

func TestProbeMissingKey(t *testing.T) {
	t.Parallel()

	_, srv := newKVServer(t, "")

	a := New()
	state, err := a.Probe(context.Background(), request("app/absent", srv.URL, nil))
	require.NoError(t, err)
	require.False(t, state.Exists)
}

func TestProbeSendsToken(t *testing.T) {
	t.Parallel()

	store, srv := newKVServer(t, "s3cret")
	store.set("guarded", "v1")

	a := New()
	req := request("guarded", srv.URL, nil)
	req.Params["token"] = "s3cret"

	state, err := a.Probe(context.Background(), req)
	require.NoError(t, err)
	require.True(t, state.Exists)
	require.Equal(t, "v1", state.Attrs["value"])

	req.Params["token"] = "wrong"
	_, err = a.Probe(context.Background(), req)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status 403")
}

func TestProbeServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	a := New()
	_, err := a.Probe(context.Background(), request("any", srv.URL, nil))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status 500")
}

func TestProbeTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	a := New()
	req := request("slow", srv.URL, nil)
	req.Params["timeout_ms"] = 20

	_, err := a.Probe(context.Background(), req)
	require.Error(t, err)
}

func TestInvokePutWritesValue(t *testing.T) {
	t.Parallel()

	store, srv := newKVServer(t, "")

	a := New()
	req := request("app/feature/rate", srv.URL, map[string]any{"value": map[string]any{"limit": 25}})
	action := adapter.Action{
		Kind: adapter.ActionCreate,
		Req:  req,
		Diff: map[string]model.Change{"value": {Old: nil, New: req.Desired["value"]}},
	}

	outcome := a.Invoke(context.Background(), action)
	require.True(t, outcome.Success)
	require.NoError(t, outcome.Err)
	require.Equal(t, http.StatusOK, outcome.StatusCode)

	stored, ok := store.get("app/feature/rate")
	require.True(t, ok)
	require.Equal(t, map[string]any{"limit": float64(25)}, stored)
}

func TestInvokeDeleteRemovesKey(t *testing.T) {
	t.Parallel()

	store, srv := newKVServer(t, "")
	store.set("app/stale", "old")

	a := New()
	req := request("app/stale", srv.URL, nil)
	req.Absent = true
	action := adapter.Action{
		Kind: adapter.ActionDelete,
		Req:  req,
		Diff: map[string]model.Change{"app/stale": {Old: "old", New: nil}},
	}

	outcome := a.Invoke(context.Background(), action)
	require.True(t, outcome.Success)
	require.Equal(t, http.StatusNoContent, outcome.StatusCode)

	_, ok := store.get("app/stale")
	require.False(t, ok)
}

func TestInvokeReportsRefusal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("write lock held\n"))
	}))
	t.Cleanup(srv.Close)

	a := New()
	req := request("app/locked", srv.URL, map[string]any{"value": 1})
	action := adapter.Action{Kind: adapter.ActionUpdate, Req: req}

	outcome := a.Invoke(context.Background(), action)
	require.False(t, outcome.Success)
	require.NoError(t, outcome.Err)
	require.Equal(t, http.StatusConflict, outcome.StatusCode)
	require.Equal(t, "write lock held", string(outcome.Body))
}

func TestInvokeNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	a := New()
	req := request("app/any", srv.URL, map[string]any{"value": 1})
	action := adapter.Action{Kind: adapter.ActionUpdate, Req: req}

	outcome := a.Invoke(context.Background(), action)
	require.False(t, outcome.Success)
	require.Error(t, outcome.Err)
	require.Contains(t, outcome.Err.Error(), "update key 'app/any'")
}

func TestInvokeRejectsCustomVerb(t *testing.T) {
	t.Parallel()

	a := New()
	action := adapter.Action{
		Kind:       adapter.ActionCustom,
		CustomVerb: "rotate",
		Req:        request("app/any", "http://unused", nil),
	}

	outcome := a.Invoke(context.Background(), action)
	require.False(t, outcome.Success)
	require.Error(t, outcome.Err)
	require.Contains(t, outcome.Err.Error(), "does not support verb 'rotate'")
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	a := New().(*kvAdapter)

	t.Run("requires endpoint", func(t *testing.T) {
		t.Parallel()
		req := &adapter.Request{Name: "k", Desired: map[string]any{"value": 1}}
		require.Error(t, a.ValidateRequest(req))
	})

	t.Run("rejects unknown attribute", func(t *testing.T) {
		t.Parallel()
		req := request("k", "http://kv", map[string]any{"payload": 1})
		err := a.ValidateRequest(req)
		require.Error(t, err)
		require.Contains(t, err.Error(), "unknown attribute 'payload'")
	})

	t.Run("requires value for present keys", func(t *testing.T) {
		t.Parallel()
		req := request("k", "http://kv", map[string]any{})
		require.Error(t, a.ValidateRequest(req))
	})

	t.Run("absent key needs no value", func(t *testing.T) {
		t.Parallel()
		req := request("k", "http://kv", nil)
		req.Absent = true
		require.NoError(t, a.ValidateRequest(req))
	})

	t.Run("accepts value", func(t *testing.T) {
		t.Parallel()
		req := request("k", "http://kv", map[string]any{"value": []any{"a", "b"}})
		require.NoError(t, a.ValidateRequest(req))
	})
}

func TestKeyURLEscapesSegments(t *testing.T) {
	t.Parallel()

	require.Equal(t, "http://kv/v1/app/rate%20limit", keyURL("http://kv/v1/", "app/rate limit"))
	require.Equal(t, "http://kv/app", keyURL("http://kv", "app"))
}

func TestMetadataAndDefaults(t *testing.T) {
	t.Parallel()

	a := New()
	meta := a.Metadata()
	require.Equal(t, "kvconfig", meta.Name)
	require.NoError(t, meta.Validate())
	require.Equal(t, defaultTimeoutMS, a.Defaults()["timeout_ms"])
}
