package adapter

import (
	"github.com/reeveops/reeve/internal/model"
)

// ActionKind enumerates the ways an adapter can be asked to change a target.
type ActionKind string

const (
	// ActionCreate brings a missing target into existence.
	ActionCreate ActionKind = "create"
	// ActionUpdate converges an existing target on its desired attributes.
	ActionUpdate ActionKind = "update"
	// ActionDelete removes a target that should be absent.
	ActionDelete ActionKind = "delete"
	// ActionCustom dispatches an adapter-specific verb (restart, rotate).
	ActionCustom ActionKind = "custom"
)

// IsValid reports whether k is one of the defined kinds.
func (k ActionKind) IsValid() bool {
	switch k {
	case ActionCreate, ActionUpdate, ActionDelete, ActionCustom:
		return true
	default:
		return false
	}
}

// Action is a single mutation dispatched to a remote system. The engine
// constructs actions; adapters only execute them.
type Action struct {
	Kind ActionKind

	// CustomVerb names the adapter-specific operation when Kind is
	// ActionCustom. Empty otherwise.
	CustomVerb string

	// Req is the resolved request the action derives from.
	Req *Request

	// Diff is the attribute-level change set the action is expected to
	// produce, as computed against the probed state.
	Diff map[string]model.Change
}

// Verb returns the reporting verb for the action. Custom actions report
// their own verb; the rest report their kind capitalized.
func (a Action) Verb() string {
	if a.Kind == ActionCustom && a.CustomVerb != "" {
		return a.CustomVerb
	}
	switch a.Kind {
	case ActionCreate:
		return "Create"
	case ActionUpdate:
		return "Update"
	case ActionDelete:
		return "Delete"
	}
	return string(a.Kind)
}

// RawOutcome is what actually came back from dispatching an action. Remote
// refusals and transport failures are both data here: Success false with
// the refusal body, or Err set for transport-level trouble. Nothing escapes
// as a panic.
type RawOutcome struct {
	// Success reports whether the remote system accepted the action.
	Success bool

	// Body is the raw response payload, when the transport produced one.
	Body []byte

	// StatusCode is the protocol status (HTTP status, process exit code).
	// Zero when the transport has no status concept.
	StatusCode int

	// Err is set when the action never got a usable response: dial
	// failures, timeouts, serialization trouble.
	Err error
}

// ErrorOutcome wraps a transport failure into a RawOutcome.
func ErrorOutcome(err error) RawOutcome {
	return RawOutcome{Success: false, Err: err}
}

// OKOutcome builds a successful outcome carrying the response body.
func OKOutcome(body []byte) RawOutcome {
	return RawOutcome{Success: true, Body: body}
}

// Message renders the outcome's failure detail for reporting: the error
// text when a transport error occurred, otherwise the response body.
func (o RawOutcome) Message() string {
	if o.Err != nil {
		return o.Err.Error()
	}
	return string(o.Body)
}
