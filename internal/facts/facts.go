// Package facts gathers the runtime information plan conditions evaluate
// against.
package facts

import (
	"os"
	"runtime"
)

// Facts is a flat view of the enforcing host and any plan-declared values.
type Facts map[string]any

// Collect gathers host facts once per run.
func Collect() Facts {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return Facts{
		"host":     host,
		"os":       runtime.GOOS,
		"arch":     runtime.GOARCH,
		"num_cpus": runtime.NumCPU(),
	}
}

// Merge returns a copy of f with extra overlaid on top. Plan-declared facts
// win over collected ones.
func (f Facts) Merge(extra map[string]any) Facts {
	merged := make(Facts, len(f)+len(extra))
	for k, v := range f {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
