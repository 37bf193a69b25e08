package model

import (
	"time"
)

// RunSummary aggregates the records of one plan run.
type RunSummary struct {
	TotalOps    int
	Satisfied   int
	Changed     int
	WouldChange int
	Failed      int
	Skipped     int
	Unknown     int
	Duration    time.Duration
	Results     []*ExecutionResult
}

// Add appends a record and updates the counters.
func (s *RunSummary) Add(r *ExecutionResult) {
	if r == nil {
		return
	}
	s.Results = append(s.Results, r)
	s.TotalOps++

	switch DisplayStatus(r) {
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	case StatusWouldChange:
		s.WouldChange++
	case StatusChanged:
		s.Changed++
	case StatusSatisfied:
		s.Satisfied++
	default:
		s.Unknown++
	}
}

// AllSatisfied reports whether no operation needed (or would need) action.
func (s *RunSummary) AllSatisfied() bool {
	return s.Satisfied+s.Skipped == s.TotalOps
}

// HasFailures reports whether any operation failed.
func (s *RunSummary) HasFailures() bool {
	return s.Failed > 0
}

// ExitCode maps the summary to a process exit code: 0 when nothing needs
// doing, 2 when any operation failed, 1 when drift was detected or applied.
func (s *RunSummary) ExitCode() int {
	switch {
	case s.Failed > 0:
		return 2
	case s.WouldChange > 0 || s.Changed > 0:
		return 1
	default:
		return 0
	}
}
