package history

import (
	"time"

	"github.com/reeveops/reeve/internal/model"
)

// Record is the stored envelope of one plan run. Per-operation entries
// are kept in their wire form, so a record replays exactly what a
// reporting backend received.
type Record struct {
	JID         string                   `json:"jid"`
	Plan        string                   `json:"plan"`
	DryRun      bool                     `json:"dry_run"`
	StartedAt   time.Time                `json:"started_at"`
	Duration    time.Duration            `json:"duration_ns"`
	Satisfied   int                      `json:"satisfied"`
	Changed     int                      `json:"changed"`
	WouldChange int                      `json:"would_change"`
	Failed      int                      `json:"failed"`
	Skipped     int                      `json:"skipped"`
	Results     []*model.ExecutionResult `json:"results"`
}

// NewRecord assembles a record from a finished run. StartedAt derives
// from the jid, which encodes the start timestamp.
func NewRecord(jid, plan string, dryRun bool, summary *model.RunSummary) *Record {
	rec := &Record{
		JID:    jid,
		Plan:   plan,
		DryRun: dryRun,
	}
	if started, err := model.ParseJID(jid); err == nil {
		rec.StartedAt = started
	}
	if summary != nil {
		rec.Duration = summary.Duration
		rec.Satisfied = summary.Satisfied
		rec.Changed = summary.Changed
		rec.WouldChange = summary.WouldChange
		rec.Failed = summary.Failed
		rec.Skipped = summary.Skipped
		rec.Results = summary.Results
	}
	return rec
}

// ExitCode maps the record to a process exit code the same way a live
// run summary does: failures win, then drift.
func (r *Record) ExitCode() int {
	switch {
	case r.Failed > 0:
		return 2
	case r.WouldChange > 0 || r.Changed > 0:
		return 1
	default:
		return 0
	}
}
