package model

const (
	// StatusPending indicates an operation has not started yet.
	StatusPending = "pending"
	// StatusRunning indicates an operation is actively executing.
	StatusRunning = "running"
	// StatusSatisfied means the target was already in the desired state.
	StatusSatisfied = "satisfied"
	// StatusChanged means the target was brought into the desired state.
	StatusChanged = "changed"
	// StatusWouldChange means a preview run detected drift.
	StatusWouldChange = "would_change"
	// StatusFailed marks a failure during probing or enforcement.
	StatusFailed = "failed"
	// StatusSkipped indicates the operation's condition did not hold.
	StatusSkipped = "skipped"
	// StatusUnknown covers preview records without detected drift.
	StatusUnknown = "unknown"
)

// DisplayStatus maps a finished record to its display status.
func DisplayStatus(r *ExecutionResult) string {
	switch {
	case r == nil:
		return StatusUnknown
	case r.Skipped:
		return StatusSkipped
	case r.Result == OutcomeFailure:
		return StatusFailed
	case r.Result == OutcomeUnknown && r.Changed():
		return StatusWouldChange
	case r.Result == OutcomeUnknown:
		return StatusUnknown
	case r.Changed():
		return StatusChanged
	default:
		return StatusSatisfied
	}
}
