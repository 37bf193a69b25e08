package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOutcomeWireEncoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{"success encodes as true", OutcomeSuccess, "true"},
		{"failure encodes as false", OutcomeFailure, "false"},
		{"unknown encodes as null", OutcomeUnknown, "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data, err := json.Marshal(tt.outcome)
			require.NoError(t, err)
			require.Equal(t, tt.want, string(data))

			var back Outcome
			require.NoError(t, json.Unmarshal(data, &back))
			require.Equal(t, tt.outcome, back)
		})
	}
}

func TestOutcomeRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	_, err := json.Marshal(Outcome("maybe"))
	require.Error(t, err)

	var o Outcome
	require.Error(t, json.Unmarshal([]byte(`"True"`), &o))
}

func TestOutcome_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		outcome Outcome
		want    bool
	}{
		{"success is valid", OutcomeSuccess, true},
		{"failure is valid", OutcomeFailure, true},
		{"unknown is valid", OutcomeUnknown, true},
		{"invalid outcome", Outcome("invalid"), false},
		{"empty outcome", Outcome(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, tt.outcome.IsValid())
		})
	}
}

func TestExecutionResultConstructors(t *testing.T) {
	t.Parallel()

	t.Run("success carries changes and comment", func(t *testing.T) {
		t.Parallel()
		changes := map[string]Change{"state": {Old: "stopped", New: "running"}}
		result := NewSuccessResult("nginx", changes, "start succeeded for nginx")

		require.Equal(t, "nginx", result.Name)
		require.Equal(t, OutcomeSuccess, result.Result)
		require.Equal(t, changes, result.Changes)
		require.Equal(t, []string{"start succeeded for nginx"}, result.Comments)
		require.True(t, result.Changed())
		require.NoError(t, result.Validate())
	})

	t.Run("success normalizes nil changes to empty map", func(t *testing.T) {
		t.Parallel()
		result := NewSuccessResult("nginx", nil, "nginx already in desired state")

		require.NotNil(t, result.Changes)
		require.Empty(t, result.Changes)
		require.False(t, result.Changed())
	})

	t.Run("failure never carries changes", func(t *testing.T) {
		t.Parallel()
		result := NewFailureResult("nginx", "start failed for nginx")

		require.Equal(t, OutcomeFailure, result.Result)
		require.NotNil(t, result.Changes)
		require.Empty(t, result.Changes)
		require.NoError(t, result.Validate())
	})

	t.Run("unknown carries predicted changes", func(t *testing.T) {
		t.Parallel()
		changes := map[string]Change{"state": {Old: "stopped", New: "running"}}
		result := NewUnknownResult("nginx", changes, "nginx would be changed")

		require.Equal(t, OutcomeUnknown, result.Result)
		require.True(t, result.Changed())
	})
}

func TestExecutionResultValidateRejectsFailureWithChanges(t *testing.T) {
	t.Parallel()

	result := &ExecutionResult{
		Name:    "nginx",
		Result:  OutcomeFailure,
		Changes: map[string]Change{"state": {Old: "stopped", New: "running"}},
	}
	require.Error(t, result.Validate())
}

func TestExecutionResultWireForm(t *testing.T) {
	t.Parallel()

	t.Run("serializes exactly four keys", func(t *testing.T) {
		t.Parallel()
		result := NewSuccessResult("web-pool", map[string]Change{
			"min_size": {Old: float64(2), New: float64(4)},
		}, "update succeeded for web-pool")
		result.AppendComment("scaled by policy")
		result.OpID = "ensure_pool"
		result.Adapter = "asg"
		result.Duration = 2 * time.Second

		data, err := json.Marshal(result)
		require.NoError(t, err)

		var raw map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &raw))
		require.Len(t, raw, 4)
		require.Contains(t, raw, "name")
		require.Contains(t, raw, "result")
		require.Contains(t, raw, "changes")
		require.Contains(t, raw, "comment")
	})

	t.Run("joins comments with newlines", func(t *testing.T) {
		t.Parallel()
		result := NewSuccessResult("web-pool", nil, "first line")
		result.AppendComment("second line")

		data, err := json.Marshal(result)
		require.NoError(t, err)

		var wire struct {
			Comment string `json:"comment"`
		}
		require.NoError(t, json.Unmarshal(data, &wire))
		require.Equal(t, "first line\nsecond line", wire.Comment)
	})

	t.Run("empty changes marshal as object not null", func(t *testing.T) {
		t.Parallel()
		result := NewFailureResult("web-pool", "update failed for web-pool")

		data, err := json.Marshal(result)
		require.NoError(t, err)
		require.Contains(t, string(data), `"changes":{}`)
	})

	t.Run("round trips through wire form", func(t *testing.T) {
		t.Parallel()
		original := NewUnknownResult("db", map[string]Change{
			"version": {Old: "15.2", New: "16.1"},
		}, "db would be changed")

		data, err := json.Marshal(original)
		require.NoError(t, err)

		var decoded ExecutionResult
		require.NoError(t, json.Unmarshal(data, &decoded))
		require.Equal(t, original.Name, decoded.Name)
		require.Equal(t, OutcomeUnknown, decoded.Result)
		require.Equal(t, []string{"db would be changed"}, decoded.Comments)
		require.Len(t, decoded.Changes, 1)
	})
}

func TestDisplayStatus(t *testing.T) {
	t.Parallel()

	skipped := NewSuccessResult("a", nil, "condition not met")
	skipped.Skipped = true

	tests := []struct {
		name   string
		result *ExecutionResult
		want   string
	}{
		{"nil is unknown", nil, StatusUnknown},
		{"skipped wins", skipped, StatusSkipped},
		{"failure", NewFailureResult("a", "boom"), StatusFailed},
		{"preview drift", NewUnknownResult("a", map[string]Change{"k": {}}, ""), StatusWouldChange},
		{"changed", NewSuccessResult("a", map[string]Change{"k": {}}, ""), StatusChanged},
		{"satisfied", NewSuccessResult("a", nil, ""), StatusSatisfied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, DisplayStatus(tt.result))
		})
	}
}

func TestRunSummary(t *testing.T) {
	t.Parallel()

	t.Run("counts per display status", func(t *testing.T) {
		t.Parallel()
		summary := &RunSummary{}
		summary.Add(NewSuccessResult("a", nil, ""))
		summary.Add(NewSuccessResult("b", map[string]Change{"k": {}}, ""))
		summary.Add(NewFailureResult("c", "boom"))
		summary.Add(NewUnknownResult("d", map[string]Change{"k": {}}, ""))

		require.Equal(t, 4, summary.TotalOps)
		require.Equal(t, 1, summary.Satisfied)
		require.Equal(t, 1, summary.Changed)
		require.Equal(t, 1, summary.Failed)
		require.Equal(t, 1, summary.WouldChange)
	})

	t.Run("all satisfied when only satisfied and skipped", func(t *testing.T) {
		t.Parallel()
		skipped := NewSuccessResult("b", nil, "")
		skipped.Skipped = true

		summary := &RunSummary{}
		summary.Add(NewSuccessResult("a", nil, ""))
		summary.Add(skipped)

		require.True(t, summary.AllSatisfied())
		require.Equal(t, 0, summary.ExitCode())
	})

	t.Run("exit code prioritizes failures", func(t *testing.T) {
		t.Parallel()
		summary := &RunSummary{}
		summary.Add(NewUnknownResult("a", map[string]Change{"k": {}}, ""))
		summary.Add(NewFailureResult("b", "boom"))

		require.True(t, summary.HasFailures())
		require.Equal(t, 2, summary.ExitCode())
	})

	t.Run("drift yields exit code 1", func(t *testing.T) {
		t.Parallel()
		summary := &RunSummary{}
		summary.Add(NewUnknownResult("a", map[string]Change{"k": {}}, ""))

		require.Equal(t, 1, summary.ExitCode())
	})

	t.Run("zero operations are satisfied", func(t *testing.T) {
		t.Parallel()
		summary := &RunSummary{}
		require.True(t, summary.AllSatisfied())
		require.Equal(t, 0, summary.ExitCode())
	})
}
