package components

import (
	"github.com/reeveops/reeve/internal/model"
)

// OpEntry pairs an operation with its display status and, once finished,
// its record.
type OpEntry struct {
	ID     string
	Status string
	Result *model.ExecutionResult
}

// OpList renders the plan's operations with their current status.
type OpList struct {
	entries []OpEntry
}

// NewOpList constructs an operation list component. Order decides rendering
// order; results may be missing for operations that have not finished.
func NewOpList(order []string, status map[string]string, results map[string]*model.ExecutionResult) OpList {
	entries := make([]OpEntry, 0, len(order))
	for _, id := range order {
		entries = append(entries, OpEntry{ID: id, Status: status[id], Result: results[id]})
	}
	return OpList{entries: entries}
}

// Entries returns the ordered operation entries.
func (l OpList) Entries() []OpEntry {
	clone := make([]OpEntry, len(l.entries))
	copy(clone, l.entries)
	return clone
}
