package adapter

// Request is one fully-resolved operation handed to an adapter: the target
// it names, the state it should end up in, and the connection parameters the
// adapter needs to reach it.
type Request struct {
	// OpID is the plan-unique identifier of the operation.
	OpID string

	// Name identifies the target (service name, key path, bucket name).
	Name string

	// Absent is true when the operation wants the target removed rather
	// than converged on Desired.
	Absent bool

	// Desired holds the attribute values the target should have. Keys the
	// adapter does not know are a validation error, not a silent no-op.
	Desired map[string]any

	// Params holds resolved adapter parameters (endpoints, credentials,
	// regions). Resolution order: explicit plan values, then the secure
	// store, then the adapter's Defaults().
	Params map[string]any
}

// Param returns the named parameter, or def when the parameter is unset.
func (r *Request) Param(key string, def any) any {
	if r == nil || r.Params == nil {
		return def
	}
	v, ok := r.Params[key]
	if !ok || v == nil {
		return def
	}
	return v
}

// StringParam returns the named parameter as a string, or def when unset or
// not a string.
func (r *Request) StringParam(key, def string) string {
	v := r.Param(key, nil)
	if v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// State is the observed condition of a target: whether it exists at all and
// the attribute values read from it. Attrs is only meaningful when Exists is
// true.
type State struct {
	Exists bool
	Attrs  map[string]any
}
