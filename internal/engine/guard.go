package engine

import (
	"reflect"

	"github.com/reeveops/reeve/internal/adapter"
	"github.com/reeveops/reeve/internal/model"
)

// Decision is the verdict of the idempotence check.
type Decision string

const (
	// DecisionSatisfied means the target already matches the desired
	// attributes and nothing will be dispatched.
	DecisionSatisfied Decision = "satisfied"
	// DecisionWouldChange means drift was found during a preview run.
	DecisionWouldChange Decision = "would_change"
	// DecisionNeedsChange means drift was found and an action should be
	// dispatched.
	DecisionNeedsChange Decision = "needs_change"
)

// GuardResult carries the idempotence verdict and the attribute-level diff
// backing it. The diff is empty when the target is satisfied.
type GuardResult struct {
	Decision Decision
	Diff     map[string]model.Change
}

// Check compares the desired attributes against the probed state and
// produces the per-key diff. Keys absent from the probed state count as
// drift. List-valued attributes compare as multisets, so ordering
// differences alone never trigger an action. When absent is set the check
// inverts: an existing target is the drift, and the diff records its removal
// under the operation name. dryRun selects WouldChange over NeedsChange for
// drifted targets.
func Check(name string, desired map[string]any, current *adapter.State, absent, dryRun bool) *GuardResult {
	exists := current != nil && current.Exists

	if absent {
		if !exists {
			return &GuardResult{Decision: DecisionSatisfied, Diff: map[string]model.Change{}}
		}
		return &GuardResult{
			Decision: driftDecision(dryRun),
			Diff:     map[string]model.Change{name: {Old: current.Attrs, New: nil}},
		}
	}

	diff := make(map[string]model.Change)

	if !exists {
		for key, want := range desired {
			diff[key] = model.Change{Old: nil, New: want}
		}
		if len(diff) == 0 {
			diff[name] = model.Change{Old: nil, New: "present"}
		}
		return &GuardResult{Decision: driftDecision(dryRun), Diff: diff}
	}

	for key, want := range desired {
		have, ok := current.Attrs[key]
		if !ok {
			diff[key] = model.Change{Old: nil, New: want}
			continue
		}
		if !valuesEqual(have, want) {
			diff[key] = model.Change{Old: have, New: want}
		}
	}

	if len(diff) == 0 {
		return &GuardResult{Decision: DecisionSatisfied, Diff: diff}
	}
	return &GuardResult{Decision: driftDecision(dryRun), Diff: diff}
}

func driftDecision(dryRun bool) Decision {
	if dryRun {
		return DecisionWouldChange
	}
	return DecisionNeedsChange
}

// valuesEqual compares attribute values loosely enough to survive the
// type drift between YAML plans and probed wire data: numeric types compare
// by value, lists compare as multisets, everything else by deep equality.
func valuesEqual(a, b any) bool {
	if la, ok := asList(a); ok {
		lb, ok := asList(b)
		if !ok || len(la) != len(lb) {
			return false
		}
		return multisetEqual(la, lb)
	}

	if na, ok := asFloat(a); ok {
		if nb, ok := asFloat(b); ok {
			return na == nb
		}
		return false
	}

	return reflect.DeepEqual(a, b)
}

func multisetEqual(a, b []any) bool {
	used := make([]bool, len(b))
outer:
	for _, av := range a {
		for i, bv := range b {
			if used[i] {
				continue
			}
			if valuesEqual(av, bv) {
				used[i] = true
				continue outer
			}
		}
		return false
	}
	return true
}

func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, true
	}
	return nil, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
