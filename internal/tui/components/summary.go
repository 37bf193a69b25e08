package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/reeveops/reeve/internal/model"
)

// SummaryData carries the state the close-out needs to render.
type SummaryData struct {
	Summary   *model.RunSummary
	DryRun    bool
	Finished  bool
	Cancelled bool
}

// Summary renders a textual close-out for a run.
type Summary struct {
	data SummaryData
}

// NewSummary creates a new Summary component.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

// View renders the summary. It stays empty while operations are still in
// flight.
func (s Summary) View() string {
	var lines []string

	if s.data.Cancelled {
		lines = append(lines, "Run cancelled")
	}

	sum := s.data.Summary
	if sum == nil || !s.data.Finished {
		return strings.Join(lines, "\n")
	}

	counts := fmt.Sprintf("Satisfied: %d  Changed: %d  Failed: %d  Skipped: %d",
		sum.Satisfied, sum.Changed, sum.Failed, sum.Skipped)
	if sum.WouldChange > 0 {
		counts = fmt.Sprintf("%s  Would change: %d", counts, sum.WouldChange)
	}
	lines = append(lines, counts)

	if sum.Duration > 0 {
		lines = append(lines, fmt.Sprintf("Duration: %s", sum.Duration.Truncate(time.Millisecond)))
	}

	lines = append(lines, verdict(sum, s.data.DryRun))

	return strings.Join(lines, "\n")
}

func verdict(sum *model.RunSummary, dryRun bool) string {
	switch {
	case sum.HasFailures():
		return "Run finished with failures"
	case dryRun && sum.WouldChange > 0:
		return "Preview finished, drift detected"
	case dryRun:
		return "Preview finished, no drift detected"
	case sum.Changed > 0:
		return "Run finished, drift corrected"
	default:
		return "All targets in desired state"
	}
}
