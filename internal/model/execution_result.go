package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Change records the observed and desired value of a single target
// attribute. Old is nil when the attribute is being created, New is nil when
// the target is being removed.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// ExecutionResult is the canonical record every operation produces,
// regardless of which adapter ran it or whether it succeeded.
type ExecutionResult struct {
	// Name identifies the target the operation addressed (service name,
	// bucket name, config key). It is the name callers correlate on.
	Name string

	// Result is the tri-state verdict. OutcomeUnknown is reserved for
	// preview runs; live runs always render success or failure.
	Result Outcome

	// Changes maps attribute names to old/new pairs. Always non-nil.
	// Empty means nothing changed (or, on failure, that no change may be
	// claimed).
	Changes map[string]Change

	// Comments accumulates human-readable lines describing what happened.
	// The wire form joins them with newlines.
	Comments []string

	// Execution metadata. Not part of the wire contract.
	OpID      string
	Adapter   string
	Skipped   bool
	Duration  time.Duration
	Timestamp time.Time
}

// NewSuccessResult builds a success record carrying the applied changes.
// A nil changes map normalizes to an empty one.
func NewSuccessResult(name string, changes map[string]Change, comment string) *ExecutionResult {
	if changes == nil {
		changes = map[string]Change{}
	}
	return &ExecutionResult{
		Name:      name,
		Result:    OutcomeSuccess,
		Changes:   changes,
		Comments:  commentLines(comment),
		Timestamp: time.Now().UTC(),
	}
}

// NewFailureResult builds a failure record. Failures never report changes:
// an operation that did not complete may not claim to have changed anything.
func NewFailureResult(name string, comment string) *ExecutionResult {
	return &ExecutionResult{
		Name:      name,
		Result:    OutcomeFailure,
		Changes:   map[string]Change{},
		Comments:  commentLines(comment),
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownResult builds a preview record describing the changes that would
// be applied without rendering a verdict.
func NewUnknownResult(name string, changes map[string]Change, comment string) *ExecutionResult {
	if changes == nil {
		changes = map[string]Change{}
	}
	return &ExecutionResult{
		Name:      name,
		Result:    OutcomeUnknown,
		Changes:   changes,
		Comments:  commentLines(comment),
		Timestamp: time.Now().UTC(),
	}
}

func commentLines(comment string) []string {
	if comment == "" {
		return nil
	}
	return []string{comment}
}

// AppendComment adds a further comment line to the record.
func (r *ExecutionResult) AppendComment(line string) {
	if line == "" {
		return
	}
	r.Comments = append(r.Comments, line)
}

// Changed reports whether the record carries any attribute changes.
func (r *ExecutionResult) Changed() bool {
	return len(r.Changes) > 0
}

// Comment returns the newline-joined comment text as it appears on the wire.
func (r *ExecutionResult) Comment() string {
	return strings.Join(r.Comments, "\n")
}

// Validate checks the structural invariants of the record: a known name, a
// valid outcome, a non-nil changes map, and no changes on failure.
func (r *ExecutionResult) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("execution result has no target name")
	}
	if !r.Result.IsValid() {
		return fmt.Errorf("execution result for %s has invalid outcome %q", r.Name, string(r.Result))
	}
	if r.Changes == nil {
		return fmt.Errorf("execution result for %s has nil changes map", r.Name)
	}
	if r.Result == OutcomeFailure && len(r.Changes) > 0 {
		return fmt.Errorf("execution result for %s reports failure with %d changes", r.Name, len(r.Changes))
	}
	return nil
}

// wireResult is the serialized contract consumed by reporting backends.
// Exactly these four keys, nothing else.
type wireResult struct {
	Name    string            `json:"name"`
	Result  Outcome           `json:"result"`
	Changes map[string]Change `json:"changes"`
	Comment string            `json:"comment"`
}

// MarshalJSON encodes the canonical wire form. Execution metadata stays off
// the wire.
func (r *ExecutionResult) MarshalJSON() ([]byte, error) {
	changes := r.Changes
	if changes == nil {
		changes = map[string]Change{}
	}
	return json.Marshal(wireResult{
		Name:    r.Name,
		Result:  r.Result,
		Changes: changes,
		Comment: r.Comment(),
	})
}

// UnmarshalJSON decodes a wire-form record. Comment text splits back into
// lines; metadata fields are left zero.
func (r *ExecutionResult) UnmarshalJSON(data []byte) error {
	var w wireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Name = w.Name
	r.Result = w.Result
	r.Changes = w.Changes
	if r.Changes == nil {
		r.Changes = map[string]Change{}
	}
	r.Comments = nil
	if w.Comment != "" {
		r.Comments = strings.Split(w.Comment, "\n")
	}
	return nil
}
