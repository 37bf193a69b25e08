package adapter

import (
	"context"
)

// Initializer allows an adapter to receive a reference to the registry
// during startup. Adapters that do not need initialization can ignore this
// interface; the registry detects it via type assertion and only calls Init
// when implemented.
type Initializer interface {
	Init(registry *Registry) error
}

// RequestValidator is implemented by adapters that want to reject a resolved
// request before any probe runs. The engine detects the capability via type
// assertion; adapters without it accept every request their schema admits.
type RequestValidator interface {
	ValidateRequest(req *Request) error
}

// Adapter defines the contract all reeve adapters must satisfy.
//
// An adapter owns one class of remote target (a service manager, a KV store,
// an ASG). It never decides whether to act: the engine probes, diffs and
// decides, the adapter reads state and dispatches actions.
//
// Implementations should:
//   - Return identity via Metadata()
//   - Provide parameter defaults via Defaults()
//   - Provide a parameter schema via Schema()
//   - Implement read-only state observation via Probe()
//   - Implement action dispatch via Invoke()
//   - Optionally implement RequestValidator or Initializer
type Adapter interface {
	// Metadata returns the adapter's identity.
	Metadata() Metadata

	// Defaults returns the adapter's built-in parameter values, the lowest
	// layer of parameter resolution. May be nil when the adapter has none.
	Defaults() map[string]any

	// Schema returns a struct that defines the parameter schema for this
	// adapter's operations. The returned struct should have validate tags
	// consumed by plan validation.
	Schema() any

	// Probe performs a STRICTLY READ-ONLY observation of the target named
	// in the request.
	//
	// CRITICAL CONTRACT: this method MUST NOT mutate any remote state.
	//
	// A target that is cleanly absent returns (&State{Exists: false}, nil).
	// An error return means the target could not be read at all; the engine
	// reports that as a failure, never as "absent".
	Probe(ctx context.Context, req *Request) (*State, error)

	// Invoke dispatches a single action against the remote system and
	// reports what actually came back. Transport failures belong in the
	// returned RawOutcome's Err field; Invoke does not panic and does not
	// wrap refusals in Go errors.
	//
	// This method MUST be idempotent: dispatching the same action twice
	// must converge on the same final state.
	Invoke(ctx context.Context, action Action) RawOutcome
}
