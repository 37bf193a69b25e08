package model

import (
	"encoding/json"
	"fmt"
)

// Outcome is the tri-state verdict of an enforcement operation. It replaces
// loose true/false/nil conventions with a closed set of values that cannot be
// confused with strings or partially-set booleans.
type Outcome string

const (
	// OutcomeSuccess means the target is in (or was brought into) the
	// desired state.
	OutcomeSuccess Outcome = "success"
	// OutcomeFailure means the operation failed or the target could not be
	// read.
	OutcomeFailure Outcome = "failure"
	// OutcomeUnknown means no verdict was rendered: the operation ran in
	// preview mode and reports what would change without doing it.
	OutcomeUnknown Outcome = "unknown"
)

// IsValid reports whether o is one of the defined outcomes.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailure, OutcomeUnknown:
		return true
	default:
		return false
	}
}

// Succeeded reports whether the outcome is a definitive success.
func (o Outcome) Succeeded() bool {
	return o == OutcomeSuccess
}

// Failed reports whether the outcome is a definitive failure.
func (o Outcome) Failed() bool {
	return o == OutcomeFailure
}

// MarshalJSON encodes the outcome in the canonical wire form:
// success encodes as true, failure as false, unknown as null.
func (o Outcome) MarshalJSON() ([]byte, error) {
	switch o {
	case OutcomeSuccess:
		return []byte("true"), nil
	case OutcomeFailure:
		return []byte("false"), nil
	case OutcomeUnknown:
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("cannot encode invalid outcome %q", string(o))
	}
}

// UnmarshalJSON decodes the wire form back into an outcome.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var v *bool
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("outcome must be true, false or null: %w", err)
	}
	switch {
	case v == nil:
		*o = OutcomeUnknown
	case *v:
		*o = OutcomeSuccess
	default:
		*o = OutcomeFailure
	}
	return nil
}

func (o Outcome) String() string {
	return string(o)
}
