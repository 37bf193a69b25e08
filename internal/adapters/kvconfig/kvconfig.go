// Package kvconfigadapter manages keys in a REST key-value configuration
// service. Keys are read with GET, written with PUT and removed with
// DELETE against <endpoint>/<key>; values travel as a JSON document of the
// form {"value": ...}.
package kvconfigadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reeveops/reeve/internal/adapter"
)

const (
	defaultTimeoutMS = 5000
	tokenHeader      = "X-Config-Token"

	// maxBodyBytes bounds how much of a response is read; config values
	// are small and anything larger indicates a misconfigured endpoint.
	maxBodyBytes = 1 << 20
)

// Params is the parameter schema for kvconfig operations.
type Params struct {
	// Endpoint is the base URL of the KV service, e.g.
	// http://config.internal:8500/v1/kv. Usually supplied through the
	// secure store rather than the plan.
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
	// Token is sent as the X-Config-Token header when set.
	Token string `yaml:"token"`
	// TimeoutMS bounds each HTTP call.
	TimeoutMS int `yaml:"timeout_ms" validate:"omitempty,gt=0"`
}

type kvAdapter struct {
	client *http.Client
}

// New creates a kvconfig adapter with its own HTTP client. Calls are
// bounded per request from the timeout_ms parameter, so the client itself
// carries no timeout.
func New() adapter.Adapter {
	return &kvAdapter{client: &http.Client{}}
}

var _ adapter.Adapter = (*kvAdapter)(nil)
var _ adapter.RequestValidator = (*kvAdapter)(nil)

func (a *kvAdapter) Metadata() adapter.Metadata {
	return adapter.Metadata{
		Name:        "kvconfig",
		Version:     "1.0.1",
		APIVersion:  "1.x",
		Description: "Manages keys in a REST key-value configuration service.",
	}
}

func (a *kvAdapter) Defaults() map[string]any {
	return map[string]any{"timeout_ms": defaultTimeoutMS}
}

func (a *kvAdapter) Schema() any {
	return Params{}
}

func (a *kvAdapter) ValidateRequest(req *adapter.Request) error {
	if req.StringParam("endpoint", "") == "" {
		return fmt.Errorf("kvconfig '%s': 'endpoint' parameter is required", req.Name)
	}
	for key := range req.Desired {
		if key != "value" {
			return fmt.Errorf("kvconfig '%s': unknown attribute '%s'", req.Name, key)
		}
	}
	if !req.Absent {
		if _, ok := req.Desired["value"]; !ok {
			return fmt.Errorf("kvconfig '%s': desired 'value' is required", req.Name)
		}
	}
	return nil
}

// Probe reads the key. 404 is a clean absent; any other non-200 status
// fails the probe so a flaky endpoint is never mistaken for a missing key.
func (a *kvAdapter) Probe(ctx context.Context, req *adapter.Request) (*adapter.State, error) {
	resp, err := a.do(ctx, req, http.MethodGet, nil)
	if err != nil {
		return nil, fmt.Errorf("get key '%s': %w", req.Name, err)
	}

	switch resp.status {
	case http.StatusNotFound:
		return &adapter.State{Exists: false}, nil
	case http.StatusOK:
	default:
		return nil, fmt.Errorf("get key '%s': unexpected status %d", req.Name, resp.status)
	}

	var payload struct {
		Value any `json:"value"`
	}
	if err := json.Unmarshal(resp.body, &payload); err != nil {
		return nil, fmt.Errorf("decode key '%s': %w", req.Name, err)
	}

	return &adapter.State{Exists: true, Attrs: map[string]any{"value": payload.Value}}, nil
}

// Invoke writes or removes the key. The raw outcome carries the service's
// status code and body verbatim so refusals surface in the comment.
func (a *kvAdapter) Invoke(ctx context.Context, action adapter.Action) adapter.RawOutcome {
	req := action.Req

	var (
		resp *kvResponse
		err  error
	)

	switch action.Kind {
	case adapter.ActionDelete:
		resp, err = a.do(ctx, req, http.MethodDelete, nil)

	case adapter.ActionCreate, adapter.ActionUpdate:
		body, marshalErr := json.Marshal(map[string]any{"value": req.Desired["value"]})
		if marshalErr != nil {
			return adapter.ErrorOutcome(fmt.Errorf("encode key '%s': %w", req.Name, marshalErr))
		}
		resp, err = a.do(ctx, req, http.MethodPut, body)

	default:
		return adapter.ErrorOutcome(fmt.Errorf("kvconfig does not support verb '%s'", action.Verb()))
	}

	if err != nil {
		return adapter.ErrorOutcome(fmt.Errorf("%s key '%s': %w", strings.ToLower(action.Verb()), req.Name, err))
	}

	return adapter.RawOutcome{
		Success:    resp.status >= 200 && resp.status < 300,
		Body:       bytes.TrimSpace(resp.body),
		StatusCode: resp.status,
	}
}

// kvResponse is a fully drained HTTP response. Draining happens inside do,
// while the per-call timeout is still alive.
type kvResponse struct {
	status int
	body   []byte
}

func (a *kvAdapter) do(ctx context.Context, req *adapter.Request, method string, body []byte) (*kvResponse, error) {
	endpoint := req.StringParam("endpoint", "")
	if endpoint == "" {
		return nil, fmt.Errorf("'endpoint' parameter is required")
	}

	timeout := time.Duration(intParam(req, "timeout_ms", defaultTimeoutMS)) * time.Millisecond
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, keyURL(endpoint, req.Name), reader)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token := req.StringParam("token", ""); token != "" {
		httpReq.Header.Set(tokenHeader, token)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &kvResponse{status: resp.StatusCode, body: data}, nil
}

// keyURL joins the endpoint and key path. Key segments are escaped
// individually so hierarchical keys like app/feature/rate keep their
// structure.
func keyURL(endpoint, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimSuffix(endpoint, "/") + "/" + strings.Join(segments, "/")
}

func intParam(req *adapter.Request, key string, def int) int {
	switch v := req.Param(key, nil).(type) {
	case int:
		if v > 0 {
			return v
		}
	case int64:
		if v > 0 {
			return int(v)
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return def
}
